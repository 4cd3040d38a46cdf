package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artmarket/artmarket-backend/api/controllers"
	cartcontrollers "github.com/artmarket/artmarket-backend/api/controllers/cart"
	"github.com/artmarket/artmarket-backend/api/middleware"
	checkoutsvc "github.com/artmarket/artmarket-backend/internal/checkout"
	"github.com/artmarket/artmarket-backend/pkg/config"
	"github.com/artmarket/artmarket-backend/pkg/logger"
	"github.com/artmarket/artmarket-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	readiness map[string]controllers.Pinger,
	cartSessions cartcontrollers.Sessions,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartSessions, logg))
			r.Delete("/", cartcontrollers.CartClear(cartSessions, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartSessions, logg))
			r.Route("/items/{type}/{id}", func(r chi.Router) {
				r.Delete("/", cartcontrollers.CartRemoveItem(cartSessions, logg))
				r.Post("/increase", cartcontrollers.CartIncreaseQuantity(cartSessions, logg))
				r.Post("/decrease", cartcontrollers.CartDecreaseQuantity(cartSessions, logg))
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutSummary(checkoutService, logg))
			r.Post("/complete", controllers.CheckoutComplete(checkoutService, logg))
			r.Get("/receipts", controllers.CheckoutReceipts(checkoutService, logg))
		})
	})

	return r
}
