package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/cache"
	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/format"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/sales"
)

const currencyPrefix = "R$"

// Metrics are the two headline figures, already formatted.
type Metrics struct {
	Revenue string `json:"revenue"`
	Count   string `json:"count"`
}

// View is everything one dashboard render needs for a selection.
type View struct {
	Selection    models.Selection       `json:"selection"`
	SellerNames  []string               `json:"seller_names"`
	Fetched      int                    `json:"fetched"`
	Tables       models.SummaryTables   `json:"tables"`
	TopByRevenue []models.SellerSummary `json:"top_by_revenue"`
	TopByCount   []models.SellerSummary `json:"top_by_count"`
	Metrics      Metrics                `json:"metrics"`
}

// Dashboard fetches record sets through a source, caches them per
// region/year query and derives views from them.
type Dashboard struct {
	source  sales.Source
	records *cache.LRU[[]models.Sale]
	group   singleflight.Group
	logger  *slog.Logger

	fetches atomic.Int64
	mu      sync.RWMutex
	last    time.Time
}

func NewDashboard(source sales.Source, records *cache.LRU[[]models.Sale], logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if records == nil {
		records = cache.NewLRU[[]models.Sale](1, 0)
	}
	return &Dashboard{
		source:  source,
		records: records,
		logger:  logger,
	}
}

// NormalizeSelection validates region, year and top-N and tidies the
// seller list. A zero TopN selects the default.
func NormalizeSelection(sel models.Selection) (models.Selection, error) {
	region, err := sales.NormalizeRegion(sel.Region)
	if err != nil {
		return models.Selection{}, apperrors.ValidationWrap(err, "invalid region")
	}
	if !sales.ValidYear(sel.Year) {
		return models.Selection{}, apperrors.Validation(
			fmt.Sprintf("year must be between %d and %d", sales.MinYear, sales.MaxYear))
	}
	if sel.TopN != 0 && (sel.TopN < MinTopN || sel.TopN > MaxTopN) {
		return models.Selection{}, apperrors.Validation(
			fmt.Sprintf("top-N must be between %d and %d", MinTopN, MaxTopN))
	}

	sellers := make([]string, 0, len(sel.Sellers))
	for _, s := range sel.Sellers {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(sellers, s) {
			sellers = append(sellers, s)
		}
	}

	return models.Selection{
		Query:   models.Query{Region: region, Year: sel.Year},
		Sellers: sellers,
		TopN:    ClampTopN(sel.TopN),
	}, nil
}

// Records returns the record set for q, fetching it at most once per
// cache lifetime even under concurrent callers.
func (d *Dashboard) Records(ctx context.Context, q models.Query) ([]models.Sale, error) {
	key := q.Key()
	if records, ok := d.records.Get(key); ok {
		return records, nil
	}

	v, err, shared := d.group.Do(key, func() (any, error) {
		// the shared fetch outlives any single caller
		records, err := d.source.Fetch(context.WithoutCancel(ctx), q)
		if err != nil {
			return nil, err
		}
		d.records.Set(key, records)
		d.fetches.Add(1)
		d.mu.Lock()
		d.last = time.Now()
		d.mu.Unlock()
		return records, nil
	})
	if err != nil {
		d.logger.Error("sales fetch failed", "region", q.Region, "year", q.Year, "error", err)
		return nil, apperrors.UpstreamWrap(err, "sales data unavailable")
	}

	records := v.([]models.Sale)
	d.logger.Info("sales loaded", "region", q.Region, "year", q.Year, "records", len(records), "shared", shared)
	return records, nil
}

// View fetches (or reuses) the records of sel and derives every table.
// sel must already be normalized.
func (d *Dashboard) View(ctx context.Context, sel models.Selection) (*View, error) {
	records, err := d.Records(ctx, sel.Query)
	if err != nil {
		return nil, err
	}
	return BuildView(records, sel), nil
}

// BuildView is the pure part of View. Selected sellers missing from
// records are dropped from the returned selection.
func BuildView(records []models.Sale, sel models.Selection) *View {
	names := SellerNames(records)
	sel.Sellers = KeepSellers(sel.Sellers, names)

	tables := Aggregate(records, sel)
	n := ClampTopN(sel.TopN)

	return &View{
		Selection:    sel,
		SellerNames:  names,
		Fetched:      len(records),
		Tables:       tables,
		TopByRevenue: TopSellers(tables.BySeller, n, models.MetricRevenue),
		TopByCount:   TopSellers(tables.BySeller, n, models.MetricCount),
		Metrics: Metrics{
			Revenue: format.Number(tables.Totals.Revenue.InexactFloat64(), currencyPrefix),
			Count:   format.Number(float64(tables.Totals.Count), ""),
		},
	}
}

// Stats is the monitoring snapshot served on /admin/stats.
func (d *Dashboard) Stats() map[string]any {
	d.mu.RLock()
	last := d.last
	d.mu.RUnlock()

	return map[string]any{
		"fetches":    d.fetches.Load(),
		"last_fetch": last,
		"cache":      d.records.Stats(),
	}
}
