// Package reconciler обрабатывает уведомления платежной сети. Тело
// уведомления никогда не считается достоверным: по нему берется только
// ID объекта, актуальное состояние перечитывается из платежной сети.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/metrics"
	"github.com/rotaplus/driver-billing/internal/models"
)

// Окно доступа, выдаваемое при подтверждении оплаты.
const accessWindow = 30 * 24 * time.Hour

// Repository определяет методы хранилища, нужные обработке уведомлений.
type Repository interface {
	RecordWebhookEvent(ctx context.Context, eventID, kind string) (bool, error)
	DeleteWebhookEvent(ctx context.Context, eventID string) error
	FindPaymentByProviderID(ctx context.Context, providerID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	ActivateSubscription(ctx context.Context, id string, startedAt, periodEnd time.Time) error
	FindSubscriptionByProviderSubID(ctx context.Context, providerSubID string) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id, status string) (int, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Notifier отправляет уведомления пользователю через брокер сообщений.
type Notifier interface {
	SendEmail(ctx context.Context, kind, to string, data map[string]string) error
	SendPush(ctx context.Context, userUID, title, body string, data map[string]string) error
}

// Notification — разобранное уведомление платежной сети. EventID может
// быть пустым, тогда дедупликация по событию не выполняется.
type Notification struct {
	Kind     string
	ObjectID string
	EventID  string
}

// Виды уведомлений.
const (
	KindPayment      = "payment"
	KindSubscription = "subscription"
)

// Service сверяет локальное состояние с платежной сетью по уведомлениям.
type Service struct {
	repo     Repository
	gw       gateway.Gateway
	notifier Notifier
	log      *slog.Logger
}

// New создает новый Service.
func New(repo Repository, gw gateway.Gateway, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		gw:       gw,
		notifier: notifier,
		log:      log,
	}
}

// Handle обрабатывает одно уведомление. Ошибка возвращается для
// логирования, транспортный ответ от нее не зависит.
func (s *Service) Handle(ctx context.Context, n Notification) error {
	var err error
	switch n.Kind {
	case KindPayment:
		err = s.handlePayment(ctx, n)
	case KindSubscription:
		err = s.handleSubscription(ctx, n)
	default:
		s.log.Warn("unknown notification kind", slog.String("kind", n.Kind))
		metrics.WebhookEventsTotal.WithLabelValues(n.Kind, "skipped").Inc()
		return nil
	}
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(n.Kind, "error").Inc()
		return err
	}
	metrics.WebhookEventsTotal.WithLabelValues(n.Kind, "ok").Inc()
	return nil
}

func (s *Service) handlePayment(ctx context.Context, n Notification) error {
	const op = "services.reconciler.handlePayment"

	log := s.log.With(slog.String("op", op), slog.String("provider_id", n.ObjectID))

	fresh, err := s.claimEvent(ctx, n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		log.Info("duplicate webhook event, skipping", slog.String("event_id", n.EventID))
		return nil
	}

	if err := s.reconcilePayment(ctx, log, n); err != nil {
		s.releaseEvent(ctx, log, n)
		return err
	}
	return nil
}

// reconcilePayment перечитывает платеж из платежной сети и приводит
// локальное состояние к актуальному.
func (s *Service) reconcilePayment(ctx context.Context, log *slog.Logger, n Notification) error {
	const op = "services.reconciler.reconcilePayment"

	payment, err := s.repo.FindPaymentByProviderID(ctx, n.ObjectID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if payment == nil {
		log.Info("payment unknown, ignoring notification")
		return nil
	}

	charge, err := s.gw.GetPayment(ctx, payment.ProviderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, charge.RawStatus); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("payment status reconciled", slog.String("status", charge.RawStatus))

	if !charge.Status.Approved() || payment.SubscriptionID == "" {
		return nil
	}

	now := time.Now().UTC()
	if err := s.repo.ActivateSubscription(ctx, payment.SubscriptionID, now, now.Add(accessWindow)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subscription activated", slog.String("subscription_id", payment.SubscriptionID))

	s.notifyPaymentConfirmed(ctx, log, payment)
	return nil
}

// notifyPaymentConfirmed отправляет письмо и пуш о подтвержденной оплате.
// Каждый канал независим, сбой любого из них только логируется.
func (s *Service) notifyPaymentConfirmed(ctx context.Context, log *slog.Logger, payment *models.Payment) {
	user, err := s.repo.GetUser(ctx, payment.UserUID)
	if err != nil || user == nil {
		log.Warn("failed to load user for notification", sl.Err(err))
		return
	}

	data := map[string]string{
		"name":       user.Name,
		"payment_id": payment.ID,
	}
	if err := s.notifier.SendEmail(ctx, "payment_confirmed", user.Email, data); err != nil {
		log.Warn("failed to enqueue payment confirmation email", sl.Err(err))
	}
	if err := s.notifier.SendPush(ctx, user.UID,
		"Pagamento confirmado",
		"Sua assinatura está ativa. Bom trabalho!",
		map[string]string{"payment_id": payment.ID}); err != nil {
		log.Warn("failed to enqueue payment confirmation push", sl.Err(err))
	}
}

func (s *Service) handleSubscription(ctx context.Context, n Notification) error {
	const op = "services.reconciler.handleSubscription"

	log := s.log.With(slog.String("op", op), slog.String("provider_sub_id", n.ObjectID))

	fresh, err := s.claimEvent(ctx, n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		log.Info("duplicate webhook event, skipping", slog.String("event_id", n.EventID))
		return nil
	}

	if err := s.reconcileSubscription(ctx, log, n); err != nil {
		s.releaseEvent(ctx, log, n)
		return err
	}
	return nil
}

// reconcileSubscription перечитывает рекуррентную подписку из платежной
// сети и переносит ее статус на локальную запись.
func (s *Service) reconcileSubscription(ctx context.Context, log *slog.Logger, n Notification) error {
	const op = "services.reconciler.reconcileSubscription"

	sub, err := s.repo.FindSubscriptionByProviderSubID(ctx, n.ObjectID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		log.Info("subscription unknown, ignoring notification")
		return nil
	}

	remote, err := s.gw.GetSubscription(ctx, n.ObjectID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	local, ok := remote.Status.LocalStatus()
	if !ok {
		log.Info("remote subscription status has no local mapping, ignoring",
			slog.String("remote_status", remote.RawStatus))
		return nil
	}

	if _, err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, local); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subscription status reconciled",
		slog.String("subscription_id", sub.ID), slog.String("status", local))
	return nil
}

// claimEvent атомарно регистрирует событие. Повторная доставка того же
// event_id возвращает fresh=false. Пустой event_id всегда свежий.
func (s *Service) claimEvent(ctx context.Context, n Notification) (bool, error) {
	if n.EventID == "" {
		return true, nil
	}
	return s.repo.RecordWebhookEvent(ctx, n.EventID, n.Kind)
}

// releaseEvent снимает регистрацию события после неудачной обработки,
// чтобы повторная доставка не была отброшена как дубликат. Сбой снятия
// только логируется: платежная сеть все равно доставит событие повторно,
// а ручная сверка остается возможной по журналу.
func (s *Service) releaseEvent(ctx context.Context, log *slog.Logger, n Notification) {
	if n.EventID == "" {
		return
	}
	if err := s.repo.DeleteWebhookEvent(ctx, n.EventID); err != nil {
		log.Error("failed to release webhook event",
			slog.String("event_id", n.EventID), sl.Err(err))
	}
}
