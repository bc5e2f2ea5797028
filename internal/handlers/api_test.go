package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/services"
)

type failingSource struct{}

func (failingSource) Fetch(ctx context.Context, q models.Query) ([]models.Sale, error) {
	return nil, fmt.Errorf("fetch sales: unexpected status 503")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestRecords() []models.Sale {
	sp := models.Location{Name: "SP", Lat: -22.19, Lon: -48.79}
	ba := models.Location{Name: "BA", Lat: -13.29, Lon: -41.71}
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	return []models.Sale{
		{Category: "eletronicos", Product: "Celular", Price: decimal.RequireFromString("1500.00"), PurchaseDate: date(2022, 1, 18), Location: sp, Seller: "Juliana Costa"},
		{Category: "livros", Product: "Romance", Price: decimal.RequireFromString("45.90"), PurchaseDate: date(2022, 2, 3), Location: ba, Seller: "Thiago Silva"},
		{Category: "moveis", Product: "Mesa", Price: decimal.RequireFromString("800.00"), PurchaseDate: date(2021, 7, 9), Location: sp, Seller: "Thiago Silva"},
		{Category: "livros", Product: "Guia", Price: decimal.RequireFromString("30.00"), PurchaseDate: date(2021, 11, 30), Location: ba, Seller: "Pedro Gomes"},
	}
}

func createTestDashboard() *services.Dashboard {
	return services.NewDashboard(
		sales.NewMemorySource(createTestRecords()),
		cache.NewLRU[[]models.Sale](8, time.Minute),
		testLogger(),
	)
}

func createFailingDashboard() *services.Dashboard {
	return services.NewDashboard(failingSource{}, cache.NewLRU[[]models.Sale](8, time.Minute), testLogger())
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return response
}

func errorCode(response map[string]any) string {
	e, _ := response["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestNewAPIHandlers(t *testing.T) {
	dashboard := createTestDashboard()
	handlers := NewAPIHandlers(dashboard, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.dashboard != dashboard {
		t.Error("NewAPIHandlers() should set dashboard field")
	}
}

func TestAPIHandlers_HandleRegions(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/regions", nil)
	w := httptest.NewRecorder()
	handlers.HandleRegions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheControl {
		t.Errorf("expected cache-control %q, got %q", cacheControl, cc)
	}

	data := decodeResponse(t, w)["data"].(map[string]any)
	regions, ok := data["regions"].([]any)
	if !ok || len(regions) != 6 || regions[0] != "Brasil" {
		t.Errorf("unexpected regions %v", data["regions"])
	}
	if data["min_year"] != float64(2020) || data["max_year"] != float64(2023) {
		t.Errorf("unexpected year bounds %v-%v", data["min_year"], data["max_year"])
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/summary?regiao=Sudeste&ano=2022", nil)
	w := httptest.NewRecorder()
	handlers.HandleSummary(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	response := decodeResponse(t, w)
	if success, ok := response["success"].(bool); !ok || !success {
		t.Fatal("expected success=true in response")
	}
	data := response["data"].(map[string]any)
	metrics := data["metrics"].(map[string]any)
	if metrics["revenue"] != "R$ 1.50 mil" || metrics["count"] != "1.00" {
		t.Errorf("unexpected metrics %v", metrics)
	}
	if data["fetched"] != float64(1) {
		t.Errorf("fetched = %v, want 1", data["fetched"])
	}
}

func TestAPIHandlers_HandleSummary_SellerFilter(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/summary?vendedores=Thiago%20Silva,Pedro%20Gomes", nil)
	w := httptest.NewRecorder()
	handlers.HandleSummary(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	data := decodeResponse(t, w)["data"].(map[string]any)
	totals := data["tables"].(map[string]any)["totals"].(map[string]any)
	if totals["count"] != float64(3) {
		t.Errorf("count = %v, want 3", totals["count"])
	}
	if names := data["seller_names"].([]any); len(names) != 3 {
		t.Errorf("seller options should ignore the seller filter, got %v", names)
	}
}

func TestAPIHandlers_ValidationErrors(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	tests := []struct {
		name    string
		url     string
		handler http.HandlerFunc
	}{
		{"unknown region", "/api/summary?regiao=Atlantida", handlers.HandleSummary},
		{"year not a number", "/api/summary?ano=dois", handlers.HandleSummary},
		{"year out of range", "/api/sales?ano=2019", handlers.HandleSales},
		{"n too large", "/api/sellers/top?n=11", handlers.HandleTopSellers},
		{"n too small", "/api/sellers/top?n=1", handlers.HandleTopSellers},
		{"bad metric", "/api/sellers/top?metric=profit", handlers.HandleTopSellers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			tt.handler(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			response := decodeResponse(t, w)
			if success, _ := response["success"].(bool); success {
				t.Error("expected success=false")
			}
			if code := errorCode(response); code != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %q", code)
			}
		})
	}
}

func TestAPIHandlers_UpstreamFailure(t *testing.T) {
	handlers := NewAPIHandlers(createFailingDashboard(), testLogger())

	for _, url := range []string{"/api/sales", "/api/summary", "/api/sellers/top"} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()

		switch url {
		case "/api/sales":
			handlers.HandleSales(w, req)
		case "/api/summary":
			handlers.HandleSummary(w, req)
		default:
			handlers.HandleTopSellers(w, req)
		}

		if w.Code != http.StatusBadGateway {
			t.Errorf("%s: expected status %d, got %d", url, http.StatusBadGateway, w.Code)
		}
		if code := errorCode(decodeResponse(t, w)); code != "UPSTREAM_ERROR" {
			t.Errorf("%s: expected UPSTREAM_ERROR, got %q", url, code)
		}
	}
}

func TestAPIHandlers_HandleSales(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sales?regiao=nordeste&vendedores=Pedro%20Gomes", nil)
	w := httptest.NewRecorder()
	handlers.HandleSales(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	data, ok := decodeResponse(t, w)["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected one record, got %v", data)
	}
	record := data[0].(map[string]any)
	if record["seller"] != "Pedro Gomes" || record["price"] != "30" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestAPIHandlers_HandleTopSellers(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	tests := []struct {
		url  string
		want []string
	}{
		{"/api/sellers/top", []string{"Juliana Costa", "Thiago Silva", "Pedro Gomes"}},
		{"/api/sellers/top?n=2&metric=revenue", []string{"Juliana Costa", "Thiago Silva"}},
		{"/api/sellers/top?n=2&metric=count", []string{"Thiago Silva", "Juliana Costa"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			handlers.HandleTopSellers(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			data := decodeResponse(t, w)["data"].(map[string]any)
			sellers := data["sellers"].([]any)
			if len(sellers) != len(tt.want) {
				t.Fatalf("sellers = %d, want %d", len(sellers), len(tt.want))
			}
			for i, s := range sellers {
				if name := s.(map[string]any)["seller"]; name != tt.want[i] {
					t.Errorf("seller %d = %v, want %q", i, name, tt.want[i])
				}
			}
		})
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestDashboard(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	response := decodeResponse(t, w)
	data, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatal("expected health data in response")
	}
	if status, _ := data["status"].(string); status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", status)
	}
	if timestamp, _ := data["timestamp"].(string); timestamp == "" {
		t.Error("expected non-empty timestamp")
	} else if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	dashboard := createTestDashboard()
	handlers := NewAPIHandlers(dashboard, testLogger())

	if _, err := dashboard.Records(context.Background(), models.Query{}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	data := decodeResponse(t, w)["data"].(map[string]any)
	if data["fetches"] != float64(1) {
		t.Errorf("fetches = %v, want 1", data["fetches"])
	}
	if c, ok := data["cache"].(map[string]any); !ok || c["size"] != float64(1) {
		t.Errorf("unexpected cache stats %v", data["cache"])
	}
}
