package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type Sale struct {
	Category     string          `json:"category"`
	Product      string          `json:"product,omitempty"`
	Price        decimal.Decimal `json:"price"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Location     Location        `json:"location"`
	Seller       string          `json:"seller"`
}

// Query is the part of a selection answered by the data API.
type Query struct {
	Region string `json:"region"`
	Year   int    `json:"year,omitempty"`
}

// Key identifies a fetched record set.
func (q Query) Key() string {
	return q.Region + "|" + yearKey(q.Year)
}

func yearKey(year int) string {
	if year == 0 {
		return "all"
	}
	return strconv.Itoa(year)
}

// Selection is the full set of user controls. Region and Year require a
// fetch; Sellers and TopN are applied to the records already fetched.
type Selection struct {
	Query
	Sellers []string `json:"sellers,omitempty"`
	TopN    int      `json:"top_n"`
}

type Metric string

const (
	MetricRevenue Metric = "revenue"
	MetricCount   Metric = "count"
)

func (m Metric) Valid() bool {
	return m == MetricRevenue || m == MetricCount
}

type LocationSummary struct {
	Location Location        `json:"location"`
	Revenue  decimal.Decimal `json:"revenue"`
	Count    int             `json:"count"`
}

type MonthSummary struct {
	MonthEnd  time.Time       `json:"month_end"`
	Year      int             `json:"year"`
	MonthName string          `json:"month_name"`
	Revenue   decimal.Decimal `json:"revenue"`
	Count     int             `json:"count"`
}

type CategorySummary struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
	Count    int             `json:"count"`
}

type SellerSummary struct {
	Seller  string          `json:"seller"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// MetricTables holds the grouped tables ordered by one metric.
type MetricTables struct {
	Metric     Metric            `json:"metric"`
	ByLocation []LocationSummary `json:"by_location"`
	ByMonth    []MonthSummary    `json:"by_month"`
	ByCategory []CategorySummary `json:"by_category"`
}

type Totals struct {
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

type SummaryTables struct {
	Totals   Totals          `json:"totals"`
	Revenue  MetricTables    `json:"revenue"`
	Count    MetricTables    `json:"count"`
	BySeller []SellerSummary `json:"by_seller"`
}

// Value returns the row's figure for m as a float for charting.
func (s LocationSummary) Value(m Metric) float64 { return metricValue(m, s.Revenue, s.Count) }

func (s MonthSummary) Value(m Metric) float64 { return metricValue(m, s.Revenue, s.Count) }

func (s CategorySummary) Value(m Metric) float64 { return metricValue(m, s.Revenue, s.Count) }

func (s SellerSummary) Value(m Metric) float64 { return metricValue(m, s.Revenue, s.Count) }

func metricValue(m Metric, revenue decimal.Decimal, count int) float64 {
	if m == MetricCount {
		return float64(count)
	}
	return revenue.InexactFloat64()
}
