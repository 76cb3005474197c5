package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imiq/imiq-backend/api/controllers"
	kpicontrollers "github.com/imiq/imiq-backend/api/controllers/kpis"
	ordercontrollers "github.com/imiq/imiq-backend/api/controllers/orders"
	shipmentcontrollers "github.com/imiq/imiq-backend/api/controllers/shipments"
	"github.com/imiq/imiq-backend/api/middleware"
	"github.com/imiq/imiq-backend/internal/kpis"
	"github.com/imiq/imiq-backend/internal/orders"
	"github.com/imiq/imiq-backend/internal/shipments"
	"github.com/imiq/imiq-backend/pkg/config"
	"github.com/imiq/imiq-backend/pkg/logger"
	"github.com/imiq/imiq-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	loc *time.Location,
	readiness []controllers.ReadinessCheck,
	ordersSvc orders.Service,
	shipmentsSvc shipments.Service,
	kpisSvc kpis.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, metrics.NewHTTPMetrics(registry)),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, loc, logg))
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/statistics", ordercontrollers.Statistics(ordersSvc, logg))
			r.Get("/without-tracking", ordercontrollers.WithoutTracking(ordersSvc))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Patch("/", ordercontrollers.Update(ordersSvc, logg))
				r.Delete("/", ordercontrollers.Delete(ordersSvc, logg))
				r.Patch("/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
				r.Post("/tracking", ordercontrollers.AddTracking(ordersSvc, logg))
				r.Get("/shipment", shipmentcontrollers.ForOrder(shipmentsSvc, logg))
			})
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", shipmentcontrollers.List(shipmentsSvc, logg))
			r.Post("/", shipmentcontrollers.Create(shipmentsSvc, logg))
			r.Get("/statistics", shipmentcontrollers.Statistics(shipmentsSvc, logg))
			r.Get("/pending-orders", shipmentcontrollers.PendingOrders(shipmentsSvc, logg))
			r.Route("/{shipmentId}", func(r chi.Router) {
				r.Get("/", shipmentcontrollers.Detail(shipmentsSvc, logg))
				r.Patch("/status", shipmentcontrollers.UpdateStatus(shipmentsSvc, logg))
				r.Get("/payload/{courier}", shipmentcontrollers.Payload(shipmentsSvc, logg))
			})
		})

		r.Route("/kpis", func(r chi.Router) {
			r.Get("/dashboard", kpicontrollers.Dashboard(kpisSvc, logg))
			r.Get("/leaderboard", kpicontrollers.Leaderboard(kpisSvc, loc, time.Now, logg))
			r.Get("/overview", kpicontrollers.Overview(kpisSvc, loc, time.Now, logg))
			r.Get("/users/{userId}", kpicontrollers.UserMetrics(kpisSvc, loc, time.Now, logg))
			r.Get("/users/{userId}/report", kpicontrollers.UserReport(kpisSvc, loc, time.Now, logg))
		})
	})

	return r
}
