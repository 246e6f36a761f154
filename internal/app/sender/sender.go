// Package sender собирает приложение доставки уведомлений: потребляет
// очереди писем и пуш-уведомлений.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/rotaplus/driver-billing/internal/config"
	"github.com/rotaplus/driver-billing/internal/lib/smtp"
	"github.com/rotaplus/driver-billing/internal/push"
	"github.com/rotaplus/driver-billing/internal/rabbitmq"
	senderservice "github.com/rotaplus/driver-billing/internal/services/sender"
)

// App представляет приложение доставки уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New создает новый экземпляр приложения доставки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	pushClient := push.NewClient(cfg.PushAPIURL, cfg.PushAppID, cfg.PushAPIKey)
	senderService := senderservice.New(transport, pushClient, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей очередей и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.EmailQueue, a.senderService.SendEmailJob); err != nil {
		a.logger.Error("failed to start email queue consumer", slog.Any("err", err))
		return err
	}

	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.PushQueue, a.senderService.SendPushJob); err != nil {
		a.logger.Error("failed to start push queue consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
