package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/service-shop/internal/api/http/handlers"
	"github.com/spec-kit/service-shop/internal/auth"
	"github.com/spec-kit/service-shop/internal/domain"
	"github.com/spec-kit/service-shop/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	ServiceRequests *handlers.ServiceRequestsHandler
	Shop            *handlers.ShopHandler
	Invoices        *handlers.InvoicesHandler
	AuthMiddleware  *auth.AuthMiddleware
	Metrics         *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	customer := auth.RequireRole(domain.ActorCustomer)
	manager := auth.RequireRole(domain.ActorManager)
	floor := auth.RequireRole(domain.ActorTechnician, domain.ActorManager)
	anyone := auth.RequireRole(domain.ActorCustomer, domain.ActorTechnician, domain.ActorManager)
	ownerOrManager := auth.RequireRole(domain.ActorCustomer, domain.ActorManager)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	requests := api.Group("/service-requests")
	sr := cfg.ServiceRequests
	requests.Post("/", customer, sr.Create)
	requests.Get("/", anyone, sr.List)
	requests.Get("/:id", anyone, sr.Get)
	requests.Get("/:id/history", anyone, sr.History)
	requests.Post("/:id/assign", manager, sr.Assign)
	requests.Post("/:id/start", floor, sr.Start)
	requests.Post("/:id/complete", floor, sr.Complete)
	requests.Patch("/:id/status", floor, sr.UpdateStatus)
	requests.Post("/:id/pricing", manager, sr.SetPricing)
	requests.Post("/:id/invoice", manager, sr.RetryInvoice)
	requests.Post("/:id/close", manager, sr.Close)
	requests.Post("/:id/cancel", ownerOrManager, sr.Cancel)
	requests.Post("/:id/reschedule", ownerOrManager, sr.Reschedule)

	api.Get("/bays", floor, cfg.Shop.Bays)
	api.Get("/bays/available", floor, cfg.Shop.AvailableBays)
	api.Get("/dashboard", manager, cfg.Shop.Dashboard)

	if cfg.Invoices != nil {
		api.Get("/invoices/service-requests/:id", manager, cfg.Invoices.GetByServiceRequest)
	}
}
