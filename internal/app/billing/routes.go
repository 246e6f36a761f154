// Package billing предоставляет маршруты HTTP-приложения биллинга.
package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/rotaplus/driver-billing/internal/config"
	"github.com/rotaplus/driver-billing/internal/http/handlers/checkout/checkoutboleto"
	"github.com/rotaplus/driver-billing/internal/http/handlers/checkout/checkoutcard"
	"github.com/rotaplus/driver-billing/internal/http/handlers/checkout/checkoutpix"
	"github.com/rotaplus/driver-billing/internal/http/handlers/health"
	"github.com/rotaplus/driver-billing/internal/http/handlers/subscription/active"
	"github.com/rotaplus/driver-billing/internal/http/handlers/subscription/cancel"
	"github.com/rotaplus/driver-billing/internal/http/handlers/subscription/recurring"
	"github.com/rotaplus/driver-billing/internal/http/handlers/sweep/sweeprun"
	"github.com/rotaplus/driver-billing/internal/http/handlers/webhook"
	"github.com/rotaplus/driver-billing/internal/http/middlewarectx"
	"github.com/rotaplus/driver-billing/internal/lib/jwt"
	checkoutservice "github.com/rotaplus/driver-billing/internal/services/checkout"
	reconcilerservice "github.com/rotaplus/driver-billing/internal/services/reconciler"
	subscriptionservice "github.com/rotaplus/driver-billing/internal/services/subscription"
	sweepservice "github.com/rotaplus/driver-billing/internal/services/sweep"
	"github.com/rotaplus/driver-billing/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, jwtMaker jwt.Maker,
	db *repository.Storage,
	checkoutSvc *checkoutservice.Service,
	subscriptionSvc *subscriptionservice.Service,
	reconcilerSvc *reconcilerservice.Service,
	sweepSvc *sweepservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(50), 100)

	r.Route("/api/v1", func(r chi.Router) {
		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/checkout/pix", checkoutpix.New(logger, checkoutSvc).ServeHTTP)
			r.Post("/checkout/boleto", checkoutboleto.New(logger, checkoutSvc).ServeHTTP)
			r.Post("/checkout/card", checkoutcard.New(logger, checkoutSvc).ServeHTTP)
			r.Post("/subscriptions/recurring", recurring.New(logger, subscriptionSvc).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, subscriptionSvc).ServeHTTP)
			r.Get("/subscriptions/active", active.New(logger, subscriptionSvc).ServeHTTP)

			// Операционные маршруты только для роли admin
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Post("/sweep/run", sweeprun.New(logger, sweepSvc).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации, токен провайдера в заголовке)
		r.Post("/webhooks/payment", webhook.New(logger, reconcilerSvc, cfg.WebhookSecret).ServeHTTP)

		r.Get("/health", health.New(logger, db).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
