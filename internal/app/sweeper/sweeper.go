// Package sweeper собирает приложение ежедневного прохода по подпискам.
// Проход запускается по расписанию из конфига, один раз в сутки.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/streadway/amqp"

	"github.com/rotaplus/driver-billing/internal/config"
	"github.com/rotaplus/driver-billing/internal/notifier"
	"github.com/rotaplus/driver-billing/internal/rabbitmq"
	sweepservice "github.com/rotaplus/driver-billing/internal/services/sweep"
	"github.com/rotaplus/driver-billing/internal/storage/repository"
)

// App представляет приложение планировщика прохода.
type App struct {
	sweepService *sweepservice.Service
	scheduler    gocron.Scheduler
	conn         *amqp.Connection
	ch           *amqp.Channel
	cfg          *config.Config
	logger       *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		if err := db.CheckDatabaseReady(ctx); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения прохода.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	dispatcher := notifier.New(ch, logger)
	sweepService := sweepservice.New(db, dispatcher, logger)

	return &App{
		sweepService: sweepService,
		scheduler:    scheduler,
		conn:         conn,
		ch:           ch,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", slog.Any("err", err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", slog.Any("err", err))
		}
	}
}

// Run регистрирует ежедневную задачу и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	_, err := a.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(a.cfg.SweepHour), uint(a.cfg.SweepMinute), 0),
		)),
		gocron.NewTask(func() {
			a.sweepService.Run(ctx, time.Now().UTC())
		}),
		gocron.WithName("daily-subscription-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	a.scheduler.Start()
	a.logger.Info("sweep scheduler started",
		slog.Int("hour", a.cfg.SweepHour),
		slog.Int("minute", a.cfg.SweepMinute))

	<-ctx.Done()

	a.logger.Info("shutting down sweep scheduler")
	if err := a.scheduler.Shutdown(); err != nil {
		a.logger.Error("failed to shutdown scheduler", slog.Any("err", err))
	}
	closeResources(a.ch, a.conn, a.logger)
	return nil
}
