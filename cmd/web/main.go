package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/joho/godotenv"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/sales"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	dataLoadTimeout = 30 * time.Second
	cacheMaxAge     = "public, max-age=300"

	maintenanceInterval = time.Minute
	maxVisitorIdle      = 5 * time.Minute
)

func dashboardPage() templates.Page {
	return templates.Page{
		Regions:     sales.Regions,
		MinYear:     sales.MinYear,
		MaxYear:     sales.MaxYear,
		DefaultTopN: services.DefaultTopN,
		MinTopN:     services.MinTopN,
		MaxTopN:     services.MaxTopN,
		MapScript:   charts.MapScript,
		Charts: map[string][]string{
			templates.TabRevenue: {charts.MapRevenue, charts.LocationsRevenue, charts.MonthlyRevenue, charts.CategoriesRevenue},
			templates.TabCount:   {charts.MapCount, charts.LocationsCount, charts.MonthlyCount, charts.CategoriesCount},
			templates.TabSellers: {charts.SellersRevenue, charts.SellersCount},
		},
	}
}

// Template handler functions that can access the template functions
func newDashboardHandler(page templ.Component) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newSource picks the offline data file when one is configured and the
// remote API otherwise.
func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sales.Source, error) {
	if cfg.Source.DataFile == "" {
		logger.Info("using sales API", "url", cfg.Source.APIURL)
		return sales.NewClient(cfg.Source.APIURL, cfg.Source.FetchTimeout, logger), nil
	}

	start := time.Now()
	src, err := sales.LoadFile(ctx, cfg.Source.DataFile)
	if err != nil {
		return nil, err
	}
	logger.Info("sales data file loaded",
		"path", cfg.Source.DataFile,
		"records", src.Len(),
		"duration", time.Since(start),
	)
	return src, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	ctx, cancel := context.WithTimeout(context.Background(), dataLoadTimeout)
	defer cancel()

	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up sales source", "error", err)
		os.Exit(1)
	}

	records := cache.NewLRU[[]models.Sale](cfg.Source.CacheSize, cfg.Source.CacheTTL)
	dashboard := services.NewDashboard(source, records, logger)

	page, err := templates.Dashboard(dashboardPage())
	if err != nil {
		logger.Error("failed to build dashboard page", "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: newDashboardHandler(page),
	}

	srv := server.NewServer(dashboard, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterPeriodic("cache-cleanup", maintenanceInterval, func(ctx context.Context) {
		if n := records.CleanExpired(); n > 0 {
			logger.Debug("expired record sets removed", "count", n)
		}
	})
	gracefulServer.RegisterPeriodic("rate-limit-cleanup", maintenanceInterval, func(ctx context.Context) {
		rateLimiter.Cleanup(maxVisitorIdle)
	})

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down dashboard service", "stats", dashboard.Stats())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
