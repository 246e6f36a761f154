// Package billing собирает HTTP-приложение биллинга: хранилище, миграции,
// кеш, брокер уведомлений, клиент платежной сети и маршруты.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/rotaplus/driver-billing/internal/config"
	"github.com/rotaplus/driver-billing/internal/gateway/asaas"
	"github.com/rotaplus/driver-billing/internal/lib/jwt"
	"github.com/rotaplus/driver-billing/internal/migrations"
	"github.com/rotaplus/driver-billing/internal/notifier"
	"github.com/rotaplus/driver-billing/internal/rabbitmq"
	checkoutservice "github.com/rotaplus/driver-billing/internal/services/checkout"
	reconcilerservice "github.com/rotaplus/driver-billing/internal/services/reconciler"
	subscriptionservice "github.com/rotaplus/driver-billing/internal/services/subscription"
	sweepservice "github.com/rotaplus/driver-billing/internal/services/sweep"
	"github.com/rotaplus/driver-billing/internal/storage/cache"
	"github.com/rotaplus/driver-billing/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер биллинга и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение из конфига.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	dispatcher := notifier.New(ch, logger)
	gatewayClient := asaas.NewClient(cfg.GatewayAPIURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	checkoutSvc := checkoutservice.New(db, cacheRedis, gatewayClient, logger)
	subscriptionSvc := subscriptionservice.New(db, gatewayClient, logger)
	reconcilerSvc := reconcilerservice.New(db, gatewayClient, dispatcher, logger)
	sweepSvc := sweepservice.New(db, dispatcher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, jwtMaker, db,
		checkoutSvc, subscriptionSvc, reconcilerSvc, sweepSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.ch.Close(); cerr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", cerr))
		}
		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", cerr))
		}
		if cerr := a.db.DB.Close(); cerr != nil {
			a.logger.Error("failed to close database", slog.Any("err", cerr))
		}
		return err
	}
}
