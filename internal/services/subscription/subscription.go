// Package subscription содержит операции над существующей подпиской:
// подключение рекуррентного списания, отмену и выдачу активной подписки.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/models"
)

// Repository определяет методы хранилища, нужные операциям над подпиской.
type Repository interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	SetPlanProviderID(ctx context.Context, planID, providerPlanID string) error
	SetSubscriptionProviderSubID(ctx context.Context, id, providerSubID string) error
	UpdateSubscriptionStatus(ctx context.Context, id, status string) (int, error)
}

// Service реализует операции над подпиской.
type Service struct {
	repo Repository
	gw   gateway.Gateway
	log  *slog.Logger
}

// New создает новый Service.
func New(repo Repository, gw gateway.Gateway, log *slog.Logger) *Service {
	return &Service{repo: repo, gw: gw, log: log}
}

// EnableRecurring подключает рекуррентное списание по карте к активной
// подписке пользователя. При первом обращении к плану создается
// рекуррентный план на стороне платежной сети, его ID дописывается в план.
// Возвращает внешний ID рекуррентной подписки.
func (s *Service) EnableRecurring(ctx context.Context, userUID string, card gateway.CardDetails) (string, error) {
	const op = "services.subscription.EnableRecurring"

	sub, err := s.repo.GetActiveSubscriptionByUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return "", models.ErrSubscriptionNotFound
	}

	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if plan == nil {
		return "", models.ErrPlanInvalid
	}

	providerPlanID, err := s.ensureProviderPlan(ctx, plan)
	if err != nil {
		return "", err
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return "", models.ErrUserNotFound
	}

	customer, err := s.gw.FindOrCreateCustomer(ctx, gateway.CustomerParams{
		Email: user.Email,
		Name:  user.Name,
		TaxID: user.CPF,
		Phone: user.Phone,
	})
	if err != nil {
		return "", err
	}

	remote, err := s.gw.CreateRecurringSubscription(ctx, gateway.RecurringParams{
		CustomerID:     customer.ID,
		ProviderPlanID: providerPlanID,
		Card:           card,
		Metadata: map[string]string{
			"user_uid":        userUID,
			"subscription_id": sub.ID,
		},
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.SetSubscriptionProviderSubID(ctx, sub.ID, remote.ID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("recurring billing enabled",
		slog.String("subscription_id", sub.ID),
		slog.String("provider_sub_id", remote.ID))

	return remote.ID, nil
}

// ensureProviderPlan возвращает внешний ID рекуррентного плана, создавая
// его на стороне платежной сети при первом обращении.
func (s *Service) ensureProviderPlan(ctx context.Context, plan *models.Plan) (string, error) {
	const op = "services.subscription.ensureProviderPlan"

	if plan.ProviderPlanID != nil && *plan.ProviderPlanID != "" {
		return *plan.ProviderPlanID, nil
	}

	providerPlanID, err := s.gw.CreateRecurringPlan(ctx, gateway.PlanParams{
		Name:         fmt.Sprintf("Assinatura %s", plan.Tier),
		AmountCents:  plan.PriceCents,
		IntervalDays: 30,
	})
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPlanProviderID(ctx, plan.ID, providerPlanID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return providerPlanID, nil
}

// Cancel отменяет активную подписку пользователя. Если к подписке привязано
// рекуррентное списание, сначала отменяется оно, локальный статус меняется
// только после успеха на стороне платежной сети.
func (s *Service) Cancel(ctx context.Context, userUID string) error {
	const op = "services.subscription.Cancel"

	sub, err := s.repo.GetActiveSubscriptionByUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return models.ErrSubscriptionNotFound
	}

	if sub.ProviderSubID != nil && *sub.ProviderSubID != "" {
		if err := s.gw.CancelSubscription(ctx, *sub.ProviderSubID); err != nil {
			return err
		}
	}

	if _, err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionStatusCanceled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription canceled", slog.String("subscription_id", sub.ID))
	return nil
}

// Active возвращает активную подписку пользователя.
func (s *Service) Active(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "services.subscription.Active"

	sub, err := s.repo.GetActiveSubscriptionByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return nil, models.ErrSubscriptionNotFound
	}
	return sub, nil
}
