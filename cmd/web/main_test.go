package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Test helper to create a dashboard over in-memory records
func newTestDashboard() *services.Dashboard {
	loc := models.Location{Name: "SP", Lat: -22.19, Lon: -48.79}
	records := []models.Sale{
		{Category: "eletronicos", Price: decimal.RequireFromString("999.99"), PurchaseDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), Location: loc, Seller: "Ana"},
		{Category: "livros", Price: decimal.RequireFromString("59.98"), PurchaseDate: time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), Location: loc, Seller: "Bruno"},
		{Category: "eletronicos", Price: decimal.RequireFromString("79.99"), PurchaseDate: time.Date(2022, 3, 5, 0, 0, 0, 0, time.UTC), Location: loc, Seller: "Ana"},
	}
	return services.NewDashboard(sales.NewMemorySource(records), cache.NewLRU[[]models.Sale](4, time.Minute), testLogger())
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	page, err := templates.Dashboard(dashboardPage())
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	templateHandlers := &server.TemplateHandlers{Dashboard: newDashboardHandler(page)}
	return server.NewServer(newTestDashboard(), testLogger(), templateHandlers)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/api/regions", http.StatusOK, "application/json"},
		{"/api/sales", http.StatusOK, "application/json"},
		{"/api/summary?regiao=Sudeste&ano=2023", http.StatusOK, "application/json"},
		{"/api/sellers/top?n=2&metric=count", http.StatusOK, "application/json"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/export/summary.xlsx", http.StatusOK, "spreadsheetml"},
		{"/api/summary?regiao=Marte", http.StatusBadRequest, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			// Validate JSON responses
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestServer(t)

	for _, route := range []string{"/sse/dashboard", "/sse/sellers"} {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			// Check for SSE headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

// Test error handling for invalid methods and paths
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/summary", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"PATCH", "/sse/dashboard", http.StatusMethodNotAllowed},
		{"GET", "/api/country-revenue", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// Test dashboard template rendering
func TestDashboardTemplate(t *testing.T) {
	page, err := templates.Dashboard(dashboardPage())
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	newDashboardHandler(page)(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("cache-control = %q, want %q", cc, cacheMaxAge)
	}

	body := w.Body.String()
	expectedComponents := []string{
		"Dashboard de vendas",
		"Filtros",
		"Receita",
		"Quantidade de vendas",
		"Vendedores",
		`<option value="Centro-Oeste">`,
		`id="chart-mapRevenue"`,
		`id="chart-categoriesCount"`,
		`id="chart-sellersCount"`,
	}

	for _, component := range expectedComponents {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	t.Run("remote api", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{APIURL: sales.DefaultBaseURL, FetchTimeout: time.Second}}
		src, err := newSource(ctx, cfg, testLogger())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := src.(*sales.Client); !ok {
			t.Errorf("source = %T, want *sales.Client", src)
		}
	})

	t.Run("data file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vendas.json")
		body := `[{"Categoria do Produto":"livros","Preço":10,"Data da Compra":"01/02/2021","Local da compra":"SP","Vendedor":"Ana"}]`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg := &config.Config{Source: config.SourceConfig{DataFile: path}}
		src, err := newSource(ctx, cfg, testLogger())
		if err != nil {
			t.Fatal(err)
		}
		fs, ok := src.(*sales.FileSource)
		if !ok || fs.Len() != 1 {
			t.Errorf("source = %T, want a file source with one record", src)
		}
	})

	t.Run("missing data file", func(t *testing.T) {
		cfg := &config.Config{Source: config.SourceConfig{DataFile: filepath.Join(t.TempDir(), "nope.json")}}
		if _, err := newSource(ctx, cfg, testLogger()); err == nil {
			t.Error("expected error for a missing file")
		}
	})
}
