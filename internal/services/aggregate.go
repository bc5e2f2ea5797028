package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const (
	MinTopN     = 2
	MaxTopN     = 10
	DefaultTopN = 5

	// TopLocations is how many locations the top-locations bars show.
	TopLocations = 5
)

// FilterBySellers keeps the records sold by one of sellers. An empty
// seller set keeps everything and returns records unchanged.
func FilterBySellers(records []models.Sale, sellers []string) []models.Sale {
	if len(sellers) == 0 {
		return records
	}

	allowed := make(map[string]struct{}, len(sellers))
	for _, s := range sellers {
		allowed[s] = struct{}{}
	}

	out := make([]models.Sale, 0, len(records))
	for _, r := range records {
		if _, ok := allowed[r.Seller]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate builds every summary table for the records that pass the
// seller filter of sel. It never fails; no records yields empty tables.
func Aggregate(records []models.Sale, sel models.Selection) models.SummaryTables {
	filtered := FilterBySellers(records, sel.Sellers)

	locations := groupByLocation(filtered)
	categories := groupByCategory(filtered)
	months := groupByMonth(filtered)

	return models.SummaryTables{
		Totals: totals(filtered),
		Revenue: models.MetricTables{
			Metric:     models.MetricRevenue,
			ByLocation: rank(locations, models.MetricRevenue, locationRevenue, locationCount),
			ByMonth:    months,
			ByCategory: rank(categories, models.MetricRevenue, categoryRevenue, categoryCount),
		},
		Count: models.MetricTables{
			Metric:     models.MetricCount,
			ByLocation: rank(locations, models.MetricCount, locationRevenue, locationCount),
			ByMonth:    months,
			ByCategory: rank(categories, models.MetricCount, categoryRevenue, categoryCount),
		},
		BySeller: groupBySeller(filtered),
	}
}

// TopSellers returns at most n sellers ordered by m, ties in table order.
func TopSellers(table []models.SellerSummary, n int, m models.Metric) []models.SellerSummary {
	ranked := rank(table, m, sellerRevenue, sellerCount)
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// ClampTopN maps any requested size into the range the stepper allows;
// zero selects the default.
func ClampTopN(n int) int {
	switch {
	case n == 0:
		return DefaultTopN
	case n < MinTopN:
		return MinTopN
	case n > MaxTopN:
		return MaxTopN
	default:
		return n
	}
}

// SellerNames lists distinct salespeople in order of first appearance.
func SellerNames(records []models.Sale) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Seller]; ok {
			continue
		}
		seen[r.Seller] = struct{}{}
		names = append(names, r.Seller)
	}
	return names
}

// KeepSellers drops the selected sellers that are not in names. The
// result is never nil.
func KeepSellers(selected, names []string) []string {
	kept := make([]string, 0, len(selected))
	for _, s := range selected {
		if slices.Contains(names, s) {
			kept = append(kept, s)
		}
	}
	return kept
}

func totals(records []models.Sale) models.Totals {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Price)
	}
	return models.Totals{Revenue: sum, Count: len(records)}
}

func groupByLocation(records []models.Sale) []models.LocationSummary {
	index := make(map[string]int)
	rows := make([]models.LocationSummary, 0)
	for _, r := range records {
		i, ok := index[r.Location.Name]
		if !ok {
			i = len(rows)
			index[r.Location.Name] = i
			// the first record of a location supplies its coordinates
			rows = append(rows, models.LocationSummary{Location: r.Location, Revenue: decimal.Zero})
		}
		rows[i].Revenue = rows[i].Revenue.Add(r.Price)
		rows[i].Count++
	}
	return rows
}

func groupByCategory(records []models.Sale) []models.CategorySummary {
	index := make(map[string]int)
	rows := make([]models.CategorySummary, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(rows)
			index[r.Category] = i
			rows = append(rows, models.CategorySummary{Category: r.Category, Revenue: decimal.Zero})
		}
		rows[i].Revenue = rows[i].Revenue.Add(r.Price)
		rows[i].Count++
	}
	return rows
}

func groupBySeller(records []models.Sale) []models.SellerSummary {
	index := make(map[string]int)
	rows := make([]models.SellerSummary, 0)
	for _, r := range records {
		i, ok := index[r.Seller]
		if !ok {
			i = len(rows)
			index[r.Seller] = i
			rows = append(rows, models.SellerSummary{Seller: r.Seller, Revenue: decimal.Zero})
		}
		rows[i].Revenue = rows[i].Revenue.Add(r.Price)
		rows[i].Count++
	}
	return rows
}

// groupByMonth buckets records by calendar month. Each bucket is keyed by
// its last day; months without records produce no row.
func groupByMonth(records []models.Sale) []models.MonthSummary {
	buckets := make(map[time.Time]*models.MonthSummary)
	for _, r := range records {
		d := r.PurchaseDate
		end := time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[end]
		if !ok {
			b = &models.MonthSummary{
				MonthEnd:  end,
				Year:      end.Year(),
				MonthName: end.Month().String(),
				Revenue:   decimal.Zero,
			}
			buckets[end] = b
		}
		b.Revenue = b.Revenue.Add(r.Price)
		b.Count++
	}

	rows := make([]models.MonthSummary, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, *b)
	}
	slices.SortFunc(rows, func(a, b models.MonthSummary) int {
		return a.MonthEnd.Compare(b.MonthEnd)
	})
	return rows
}

// rank returns a copy of rows sorted descending by m. The sort is stable
// so equal rows keep their first-appearance order.
func rank[T any](rows []T, m models.Metric, revenue func(T) decimal.Decimal, count func(T) int) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int {
		if m == models.MetricCount {
			return cmp.Compare(count(b), count(a))
		}
		return revenue(b).Cmp(revenue(a))
	})
	return out
}

func locationRevenue(s models.LocationSummary) decimal.Decimal { return s.Revenue }
func locationCount(s models.LocationSummary) int               { return s.Count }
func categoryRevenue(s models.CategorySummary) decimal.Decimal { return s.Revenue }
func categoryCount(s models.CategorySummary) int               { return s.Count }
func sellerRevenue(s models.SellerSummary) decimal.Decimal     { return s.Revenue }
func sellerCount(s models.SellerSummary) int                   { return s.Count }
