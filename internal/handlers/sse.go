package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	chartsSignal  = "_charts"
	sellersSignal = "vendedores"
)

// signalInt accepts both JSON numbers and numeric strings; range inputs
// may report either.
type signalInt int

func (n *signalInt) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*n = signalInt(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = signalInt(f)
	return nil
}

// dashboardSignals are the sidebar and stepper controls of the page.
type dashboardSignals struct {
	Regiao     string    `json:"regiao"`
	TodosAnos  bool      `json:"todosAnos"`
	Ano        signalInt `json:"ano"`
	Vendedores []string  `json:"vendedores"`
	TopN       signalInt `json:"topN"`
}

func (s dashboardSignals) selection() (models.Selection, error) {
	sel := models.Selection{
		Query:   models.Query{Region: s.Regiao},
		Sellers: s.Vendedores,
		TopN:    services.ClampTopN(int(s.TopN)),
	}
	if !s.TodosAnos {
		sel.Year = int(s.Ano)
	}
	return services.NormalizeSelection(sel)
}

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

func (h *SSEHandlers) readSelection(r *http.Request) (models.Selection, error) {
	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return models.Selection{}, errors.ValidationWrap(err, "Invalid dashboard signals")
	}
	return signals.selection()
}

// fail logs err and shows it in the page error banner.
func (h *SSEHandlers) fail(r *http.Request, sse *datastar.ServerSentEventGenerator, err error) {
	appErr := errors.As(err)
	h.logger.Error("dashboard update failed",
		"error", err,
		"error_code", appErr.Code,
		"request_id", observability.GetRequestID(r.Context()),
	)
	if err := sse.PatchElementTempl(templates.ErrorBanner(appErr.Message)); err != nil {
		h.logger.Warn("patch error banner", "error", err)
	}
}

// chartSignals encodes the chart options, plus the effective seller
// selection when sellers is not nil.
func chartSignals(list []charts.Chart, sellers []string) ([]byte, error) {
	options := make(map[string]string, len(list))
	for _, c := range list {
		options[c.ID] = string(c.Option)
	}
	signals := map[string]any{chartsSignal: options}
	if sellers != nil {
		signals[sellersSignal] = sellers
	}
	return json.Marshal(signals)
}

// HandleDashboard re-renders everything for the current controls: seller
// options, headline metrics and every chart.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, selErr := h.readSelection(r)
	sse := datastar.NewSSE(w, r)
	if selErr != nil {
		h.fail(r, sse, selErr)
		return
	}

	view, err := h.dashboard.View(r.Context(), sel)
	if err != nil {
		h.fail(r, sse, err)
		return
	}

	list, err := charts.Dashboard(r.Context(), view)
	if err != nil {
		h.fail(r, sse, errors.InternalWrap(err, "Failed to build charts"))
		return
	}
	signals, err := chartSignals(list, view.Selection.Sellers)
	if err != nil {
		h.fail(r, sse, errors.InternalWrap(err, "Failed to encode charts"))
		return
	}

	if err := h.patchPage(r.Context(), sse, view); err != nil {
		h.logger.Error("patch dashboard", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Error("patch chart signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) patchPage(ctx context.Context, sse *datastar.ServerSentEventGenerator, view *services.View) error {
	if err := sse.PatchElementTempl(templates.ErrorBanner("")); err != nil {
		return err
	}
	if err := sse.PatchElementTempl(templates.SellerSelect(view.SellerNames, view.Selection.Sellers)); err != nil {
		return err
	}
	for _, tab := range templates.Tabs {
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics := templates.Metrics(tab.ID, view.Metrics.Revenue, view.Metrics.Count)
		if err := sse.PatchElementTempl(metrics); err != nil {
			return err
		}
	}
	return nil
}

// HandleSellers only rebuilds the top-N seller charts; it is what the
// stepper calls.
func (h *SSEHandlers) HandleSellers(w http.ResponseWriter, r *http.Request) {
	sel, selErr := h.readSelection(r)
	sse := datastar.NewSSE(w, r)
	if selErr != nil {
		h.fail(r, sse, selErr)
		return
	}

	view, err := h.dashboard.View(r.Context(), sel)
	if err != nil {
		h.fail(r, sse, err)
		return
	}

	list, err := charts.Sellers(r.Context(), view)
	if err != nil {
		h.fail(r, sse, errors.InternalWrap(err, "Failed to build charts"))
		return
	}
	signals, err := chartSignals(list, nil)
	if err != nil {
		h.fail(r, sse, errors.InternalWrap(err, "Failed to encode charts"))
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Error("patch seller signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
