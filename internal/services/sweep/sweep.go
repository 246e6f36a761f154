// Package sweep реализует ежедневный проход по подпискам: отмену
// истекших, предупреждения о скором истечении и чистку осиротевших
// незавершенных оформлений.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/metrics"
	"github.com/rotaplus/driver-billing/internal/models"
)

// Пороги предупреждений в днях до истечения, от дальнего к ближнему.
var warningThresholds = []int{10, 5, 2, 1}

// Возраст, после которого незавершенное оформление без платежа считается
// осиротевшим и удаляется.
const orphanAge = 48 * time.Hour

// Repository определяет методы хранилища, нужные ежедневному проходу.
type Repository interface {
	FindExpiredActive(ctx context.Context, now time.Time) ([]*models.ExpiringSubscription, error)
	CancelIfActive(ctx context.Context, id string) (int, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.ExpiringSubscription, error)
	HasMarkerOnDay(ctx context.Context, userUID, markerType string, day time.Time) (bool, error)
	CreateMarker(ctx context.Context, marker models.NotificationMarker) (int, error)
	DeleteOrphanIncomplete(ctx context.Context, olderThan time.Time) (int, error)
}

// Notifier отправляет уведомления пользователю через брокер сообщений.
type Notifier interface {
	SendEmail(ctx context.Context, kind, to string, data map[string]string) error
	SendPush(ctx context.Context, userUID, title, body string, data map[string]string) error
}

// Report — итог одного прохода.
type Report struct {
	Expired int `json:"expired"`
	Warned  int `json:"warned"`
	Orphans int `json:"orphans"`
}

// Service выполняет ежедневный проход.
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
}

// New создает новый Service.
func New(repo Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

// Run выполняет полный проход: отмена истекших, предупреждения, чистка.
// Сбой одного элемента или целой фазы не прерывает остальные, все ошибки
// логируются. Возвращаемый Report отражает фактически сделанное.
func (s *Service) Run(ctx context.Context, now time.Time) Report {
	const op = "services.sweep.Run"

	log := s.log.With(slog.String("op", op))
	log.Info("sweep started", slog.Time("now", now))

	var report Report
	report.Expired = s.expireOverdue(ctx, log, now)
	report.Warned = s.sendWarnings(ctx, log, now)
	report.Orphans = s.cleanupOrphans(ctx, log, now)

	log.Info("sweep finished",
		slog.Int("expired", report.Expired),
		slog.Int("warned", report.Warned),
		slog.Int("orphans", report.Orphans))
	return report
}

// expireOverdue отменяет подписки с прошедшим концом оплаченного периода.
// Перевод в CANCELED выполняется условно, гонка с вебхуком или явной
// отменой разрешается в пользу первого успевшего.
func (s *Service) expireOverdue(ctx context.Context, log *slog.Logger, now time.Time) int {
	items, err := s.repo.FindExpiredActive(ctx, now)
	if err != nil {
		log.Error("failed to list expired subscriptions", sl.Err(err))
		return 0
	}

	var expired int
	for _, item := range items {
		count, err := s.repo.CancelIfActive(ctx, item.SubscriptionID)
		if err != nil {
			log.Error("failed to cancel expired subscription",
				slog.String("subscription_id", item.SubscriptionID), sl.Err(err))
			continue
		}
		if count == 0 {
			// Статус уже изменили параллельно, уведомлять не о чем.
			continue
		}
		expired++
		metrics.SweepExpiredTotal.Inc()

		data := map[string]string{
			"name": item.Name,
			"plan": item.PlanTier,
		}
		if err := s.notifier.SendEmail(ctx, "subscription_expired", item.Email, data); err != nil {
			log.Warn("failed to enqueue expiration email",
				slog.String("subscription_id", item.SubscriptionID), sl.Err(err))
		}
		if err := s.notifier.SendPush(ctx, item.UserUID,
			"Sua assinatura expirou",
			"Renove sua assinatura para continuar com os benefícios.",
			map[string]string{"subscription_id": item.SubscriptionID}); err != nil {
			log.Warn("failed to enqueue expiration push",
				slog.String("subscription_id", item.SubscriptionID), sl.Err(err))
		}
	}
	return expired
}

// sendWarnings отправляет предупреждения подпискам, истекающим через
// 10, 5, 2 и 1 день. Маркер в хранилище гарантирует не больше одного
// предупреждения каждого порога в сутки.
func (s *Service) sendWarnings(ctx context.Context, log *slog.Logger, now time.Time) int {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var warned int
	for _, days := range warningThresholds {
		from := dayStart.AddDate(0, 0, days)
		to := from.AddDate(0, 0, 1)

		items, err := s.repo.FindExpiringBetween(ctx, from, to)
		if err != nil {
			log.Error("failed to list expiring subscriptions",
				slog.Int("threshold_days", days), sl.Err(err))
			continue
		}

		for _, item := range items {
			if s.warnOne(ctx, log, item, days, dayStart) {
				warned++
			}
		}
	}
	return warned
}

func (s *Service) warnOne(ctx context.Context, log *slog.Logger, item *models.ExpiringSubscription, days int, day time.Time) bool {
	markerType := fmt.Sprintf("expiration_warning_%dd", days)

	sent, err := s.repo.HasMarkerOnDay(ctx, item.UserUID, markerType, day)
	if err != nil {
		log.Error("failed to check notification marker",
			slog.String("user_uid", item.UserUID), sl.Err(err))
		return false
	}
	if sent {
		return false
	}

	title := fmt.Sprintf("Sua assinatura expira em %d dias", days)
	if days == 1 {
		title = "Sua assinatura expira amanhã"
	}
	message := fmt.Sprintf("Olá, %s! Sua assinatura %s expira em %s. Renove para não perder o acesso.",
		item.Name, item.PlanTier, item.CurrentPeriodEnd.Format("02/01/2006"))

	data := map[string]string{
		"name": item.Name,
		"plan": item.PlanTier,
		"days": strconv.Itoa(days),
		"date": item.CurrentPeriodEnd.Format("02/01/2006"),
	}
	if err := s.notifier.SendEmail(ctx, "expiration_warning", item.Email, data); err != nil {
		log.Warn("failed to enqueue warning email",
			slog.String("user_uid", item.UserUID), sl.Err(err))
	}
	if err := s.notifier.SendPush(ctx, item.UserUID, title, message,
		map[string]string{"subscription_id": item.SubscriptionID}); err != nil {
		log.Warn("failed to enqueue warning push",
			slog.String("user_uid", item.UserUID), sl.Err(err))
	}

	if _, err := s.repo.CreateMarker(ctx, models.NotificationMarker{
		UserUID: item.UserUID,
		Type:    markerType,
		Title:   title,
		Message: message,
	}); err != nil {
		log.Error("failed to create notification marker",
			slog.String("user_uid", item.UserUID), sl.Err(err))
	}

	metrics.SweepWarningsTotal.WithLabelValues(strconv.Itoa(days)).Inc()
	return true
}

// cleanupOrphans удаляет незавершенные оформления старше orphanAge,
// к которым не привязан ни один платеж.
func (s *Service) cleanupOrphans(ctx context.Context, log *slog.Logger, now time.Time) int {
	deleted, err := s.repo.DeleteOrphanIncomplete(ctx, now.Add(-orphanAge))
	if err != nil {
		log.Error("failed to delete orphan incomplete subscriptions", sl.Err(err))
		return 0
	}
	if deleted > 0 {
		log.Info("orphan incomplete subscriptions deleted", slog.Int("count", deleted))
	}
	return deleted
}
