// Package app contains the application setup for the inventory service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tiendatech/inventory/internal/auth"
	"github.com/tiendatech/inventory/internal/catalog"
	"github.com/tiendatech/inventory/internal/config"
	"github.com/tiendatech/inventory/internal/report"
	"github.com/tiendatech/inventory/internal/sales"
	"github.com/tiendatech/inventory/internal/store"
	"github.com/tiendatech/inventory/internal/transport/rest"
	"github.com/tiendatech/inventory/pkg/messaging"
	"github.com/tiendatech/inventory/pkg/server"
)

type Dependencies struct {
	CatalogService catalog.ProductService
	SaleService    sales.SaleService
	ReportService  report.ReportService
	UserService    auth.UserService
	Logger         *slog.Logger
}

// SetupDependencies wires the four core services over one store gateway.
// The publisher may be nil when event publishing is disabled.
func SetupDependencies(gateway store.Gateway, publisher messaging.Publisher, lowStockThreshold int64, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		CatalogService: catalog.NewService(gateway.Products()),
		SaleService:    sales.NewService(gateway.Products(), gateway.Sales(), publisher, logger),
		ReportService:  report.NewService(gateway.Products(), lowStockThreshold),
		UserService:    auth.NewService(gateway.Users(), logger),
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the HTTP routes and middleware.
// Used by tests to exercise the full HTTP surface without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the inventory service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.CatalogService, deps.SaleService, deps.ReportService, deps.UserService, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the HTTP server for the inventory service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
