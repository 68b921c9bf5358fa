package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/medorders-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/medorders-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/medorders-backend/api/controllers/webhooks"
	"github.com/angelmondragon/medorders-backend/api/middleware"
	"github.com/angelmondragon/medorders-backend/internal/orders"
	product "github.com/angelmondragon/medorders-backend/internal/products"
	"github.com/angelmondragon/medorders-backend/internal/stream"
	razorpaywebhook "github.com/angelmondragon/medorders-backend/internal/webhooks/razorpay"
	"github.com/angelmondragon/medorders-backend/pkg/config"
	"github.com/angelmondragon/medorders-backend/pkg/enums"
	"github.com/angelmondragon/medorders-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness []controllers.ReadinessCheck,
	metricsHandler http.Handler,
	ordersSvc orders.Service,
	productService product.Service,
	hub *stream.Hub,
	razorpayWebhookService *razorpaywebhook.Service,
	razorpayWebhookGuard *razorpaywebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", razorpayWebhookHandler(cfg, razorpayWebhookService, razorpayWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleMedicalStore, enums.RoleDistributor)).
				Post("/", ordercontrollers.Create(ordersSvc, cfg.Razorpay, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Post("/ship", ordercontrollers.Ship(ordersSvc, logg))
				r.Post("/complete", ordercontrollers.Complete(ordersSvc, logg))
				r.Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
				if hub != nil {
					r.Get("/stream", ordercontrollers.Stream(ordersSvc, hub, logg))
				}
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Post("/", controllers.AdminCreateProduct(productService, logg))
				r.Put("/{productId}", controllers.AdminUpdateProduct(productService, logg))
			})
		})
	})

	return r
}

// razorpayWebhookHandler keeps typed nil pointers out of the handler's
// interface parameters.
func razorpayWebhookHandler(cfg *config.Config, svc *razorpaywebhook.Service, guard *razorpaywebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	var service webhookcontrollers.RazorpayWebhookService
	if svc != nil {
		service = svc
	}
	if guard == nil {
		return webhookcontrollers.RazorpayWebhook(service, cfg.Razorpay.WebhookSecret, nil, logg)
	}
	return webhookcontrollers.RazorpayWebhook(service, cfg.Razorpay.WebhookSecret, guard, logg)
}
