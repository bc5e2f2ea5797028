package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// parseSelection reads regiao, ano, vendedores and n from the query string.
func parseSelection(r *http.Request) (models.Selection, error) {
	q := r.URL.Query()

	var sel models.Selection
	sel.Region = q.Get("regiao")

	if v := q.Get("ano"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return models.Selection{}, errors.ValidationWrap(err, "ano must be a year")
		}
		sel.Year = year
	}

	if v := q.Get("vendedores"); v != "" {
		sel.Sellers = strings.Split(v, ",")
	}

	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.Selection{}, errors.ValidationWrap(err, "n must be a number")
		}
		if n < services.MinTopN || n > services.MaxTopN {
			return models.Selection{}, errors.Validation("n must be between 2 and 10")
		}
		sel.TopN = n
	}

	return services.NormalizeSelection(sel)
}

func parseMetric(r *http.Request) (models.Metric, error) {
	v := r.URL.Query().Get("metric")
	if v == "" {
		return models.MetricRevenue, nil
	}
	m := models.Metric(v)
	if !m.Valid() {
		return "", errors.Validation("metric must be revenue or count")
	}
	return m, nil
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleRegions(w http.ResponseWriter, r *http.Request) {

	data := map[string]any{
		"regions":       sales.Regions,
		"min_year":      sales.MinYear,
		"max_year":      sales.MaxYear,
		"min_top_n":     services.MinTopN,
		"max_top_n":     services.MaxTopN,
		"default_top_n": services.DefaultTopN,
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleSales(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	records, err := h.dashboard.Records(r.Context(), sel.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, services.FilterBySellers(records, sel.Sellers), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.dashboard.View(r.Context(), sel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	errors.WriteSuccessWithHeaders(w, view, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleTopSellers(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	metric, err := parseMetric(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.dashboard.View(r.Context(), sel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data := map[string]any{
		"metric":  metric,
		"n":       sel.TopN,
		"sellers": services.TopSellers(view.Tables.BySeller, sel.TopN, metric),
	}
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, stats)
}
