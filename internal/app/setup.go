// Package app contains the application setup for the catalog viewer.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalogviewer/internal/client"
	"github.com/abgdnv/catalogviewer/internal/config"
	"github.com/abgdnv/catalogviewer/internal/service"
	"github.com/abgdnv/catalogviewer/internal/session"
	"github.com/abgdnv/catalogviewer/internal/store"
	"github.com/abgdnv/catalogviewer/internal/transport/rest"
	"github.com/abgdnv/catalogviewer/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"
)

type Dependencies struct {
	CatalogService service.CatalogService
	Registry       *session.Registry
	Config         config.CatalogConfig
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// SetupDependencies builds the catalog service and the session registry.
// Every session store records its counters on meterProvider.
func SetupDependencies(cfg config.CatalogConfig, meterProvider metric.MeterProvider, metricsHandler http.Handler, logger *slog.Logger) *Dependencies {
	catalogService := service.NewService(client.New(cfg.API, cfg.CircuitBreaker), logger)
	return SetupDependenciesWith(catalogService, cfg, meterProvider, metricsHandler, logger)
}

// SetupDependenciesWith wires the registry around an existing catalog service.
// Used by tests to replace the remote API.
func SetupDependenciesWith(catalogService service.CatalogService, cfg config.CatalogConfig, meterProvider metric.MeterProvider, metricsHandler http.Handler, logger *slog.Logger) *Dependencies {
	locale := cfg.LocaleTag()
	newStore := func(token string) *store.Store {
		if token == "" {
			token = cfg.Token
		}
		opts := []store.Option{
			store.WithDefaultToken(token),
			store.WithLocale(locale),
			store.WithLogger(logger),
		}
		if meterProvider != nil {
			opts = append(opts, store.WithMeterProvider(meterProvider))
		}
		return store.New(catalogService, opts...)
	}

	return &Dependencies{
		CatalogService: catalogService,
		Registry:       session.NewRegistry(newStore, cfg.MaxSessions, logger),
		Config:         cfg,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	}
}

const defaultMetricsPath = "/metrics"

// SetupHttpHandler initializes the routes and middleware of the catalog viewer,
// serving metrics at /metrics.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	return newHttpHandler(deps, defaultMetricsPath)
}

func newHttpHandler(deps *Dependencies, metricsPath string) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, metricsPath)
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog viewer.
func wireRoutes(mux *chi.Mux, deps *Dependencies, metricsPath string) {
	sessionHandler := rest.NewHandler(deps.Registry, deps.Config.WaitTimeout, deps.Logger)
	sessionHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		if metricsPath == "" {
			metricsPath = defaultMetricsPath
		}
		mux.Method(http.MethodGet, metricsPath, deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog viewer.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := newHttpHandler(deps, cfg.Telemetry.Metrics.Path)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux, "catalog-viewer")
}
