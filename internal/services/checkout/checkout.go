// Package checkout содержит бизнес-логику оформления подписки: проверку
// плана и профиля, создание клиента и списания в платежной сети, запись
// пары подписка+платеж и компенсацию при сбое.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/lib/sl"
	"github.com/rotaplus/driver-billing/internal/metrics"
	"github.com/rotaplus/driver-billing/internal/models"
)

// SubscriptionRepository определяет методы хранилища, нужные оформлению.
type SubscriptionRepository interface {
	// GetPlan возвращает план по ID, nil — если не найден.
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	// GetUser возвращает профиль водителя, nil — если не найден.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// CreateSubscription вставляет подписку в статусе INCOMPLETE.
	CreateSubscription(ctx context.Context, sub models.Subscription) error
	// DeleteSubscription удаляет подписку, возвращает количество строк.
	DeleteSubscription(ctx context.Context, id string) (int, error)
	// CreatePayment вставляет запись платежа.
	CreatePayment(ctx context.Context, payment models.Payment) error
}

// Cache описывает методы для кэширования тарифных планов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Request параметры оформления. Card заполняется только для способа card.
type Request struct {
	PlanID string
	Card   *gateway.CardDetails
}

// Service реализует оркестрацию оформления подписки.
type Service struct {
	repo  SubscriptionRepository
	cache Cache
	gw    gateway.Gateway
	log   *slog.Logger
}

// New создает новый Service.
func New(repo SubscriptionRepository, cache Cache, gw gateway.Gateway, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		gw:    gw,
		log:   log,
	}
}

// Checkout оформляет подписку выбранным способом оплаты.
//
// Подписка записывается в INCOMPLETE до обращения к платежной сети; при
// любом последующем сбое она компенсируется удалением, а вызывающая
// сторона получает исходную ошибку — успех никогда не выдумывается.
func (s *Service) Checkout(ctx context.Context, userUID, method string, req Request) (*models.CheckoutResult, error) {
	result, err := s.checkout(ctx, userUID, method, req)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(method, "error").Inc()
		return nil, err
	}
	metrics.CheckoutsTotal.WithLabelValues(method, "ok").Inc()
	return result, nil
}

func (s *Service) checkout(ctx context.Context, userUID, method string, req Request) (*models.CheckoutResult, error) {
	switch method {
	case models.PaymentMethodPix, models.PaymentMethodBoleto, models.PaymentMethodCard:
	default:
		return nil, models.ErrUnsupportedMethod
	}

	plan, err := s.plan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, models.ErrPlanInvalid
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if err := validateProfile(method, user); err != nil {
		return nil, err
	}

	customer, err := s.gw.FindOrCreateCustomer(ctx, gateway.CustomerParams{
		Email: user.Email,
		Name:  user.Name,
		TaxID: user.CPF,
		Phone: user.Phone,
	})
	if err != nil {
		return nil, err
	}

	sub := models.Subscription{
		ID:       uuid.NewString(),
		UserUID:  userUID,
		PlanID:   plan.ID,
		Status:   models.SubscriptionStatusIncomplete,
		Provider: s.gw.Name(),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	charge, err := s.createCharge(ctx, method, plan, user, customer, req.Card)
	if err != nil {
		s.compensate(ctx, sub.ID)
		return nil, err
	}

	payment := models.Payment{
		ID:             uuid.NewString(),
		UserUID:        userUID,
		SubscriptionID: sub.ID,
		Method:         method,
		Provider:       s.gw.Name(),
		ProviderID:     charge.ID,
		Status:         charge.RawStatus,
		AmountCents:    plan.PriceCents,
		PixQRCode:      charge.PixQRCode,
		PixQRCodeText:  charge.PixQRCodeText,
		BoletoURL:      charge.BoletoURL,
		BoletoBarcode:  charge.BoletoBarcode,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		s.compensate(ctx, sub.ID)
		return nil, err
	}

	s.log.Info("checkout completed",
		slog.String("subscription_id", sub.ID),
		slog.String("payment_id", payment.ID),
		slog.String("method", method))

	return &models.CheckoutResult{
		SubscriptionID: sub.ID,
		PaymentID:      payment.ID,
		Method:         method,
		Status:         charge.RawStatus,
		PixQRCode:      charge.PixQRCode,
		PixQRCodeText:  charge.PixQRCodeText,
		BoletoURL:      charge.BoletoURL,
		BoletoBarcode:  charge.BoletoBarcode,
	}, nil
}

func (s *Service) createCharge(ctx context.Context, method string, plan *models.Plan,
	user *models.User, customer *gateway.Customer, card *gateway.CardDetails) (*gateway.Charge, error) {
	params := gateway.ChargeParams{
		CustomerID:  customer.ID,
		AmountCents: plan.PriceCents,
		Description: fmt.Sprintf("Assinatura %s", plan.Tier),
		Metadata: map[string]string{
			"user_uid": user.UID,
			"plan_id":  plan.ID,
		},
	}

	switch method {
	case models.PaymentMethodPix:
		return s.gw.CreatePixCharge(ctx, params)
	case models.PaymentMethodBoleto:
		params.Address = &gateway.Address{
			Street: user.AddressStreet,
			Number: user.AddressNumber,
			City:   user.AddressCity,
			State:  user.AddressState,
			Zip:    user.AddressZip,
		}
		return s.gw.CreateBoletoCharge(ctx, params)
	case models.PaymentMethodCard:
		params.Card = card
		return s.gw.CreateCardCharge(ctx, params)
	default:
		return nil, models.ErrUnsupportedMethod
	}
}

// compensate удаляет подписку, созданную до упавшего шага. Сбой самой
// компенсации логируется, исходная ошибка все равно уходит вызывающему.
func (s *Service) compensate(ctx context.Context, subscriptionID string) {
	if _, err := s.repo.DeleteSubscription(ctx, subscriptionID); err != nil {
		s.log.Error("compensation failed: orphan INCOMPLETE subscription left behind",
			slog.String("subscription_id", subscriptionID), sl.Err(err))
	}
}

func (s *Service) plan(ctx context.Context, planID string) (*models.Plan, error) {
	var plan *models.Plan
	cacheKey := "plan:" + planID
	found, err := s.cache.Get(ctx, cacheKey, &plan)
	if err != nil {
		s.log.Warn("failed to read plan from cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return plan, nil
	}

	plan, err = s.repo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		if err := s.cache.Set(ctx, cacheKey, plan, time.Hour); err != nil {
			s.log.Warn("failed to cache plan", slog.String("key", cacheKey), sl.Err(err))
		}
	}
	return plan, nil
}

// validateProfile проверяет поля профиля, обязательные для способа оплаты:
// pix и boleto требуют CPF и телефон, boleto — еще и полный почтовый адрес.
func validateProfile(method string, user *models.User) error {
	if method == models.PaymentMethodCard {
		return nil
	}
	if user.CPF == "" {
		return &models.ProfileIncompleteError{Field: "cpf"}
	}
	if user.Phone == "" {
		return &models.ProfileIncompleteError{Field: "phone"}
	}
	if method == models.PaymentMethodBoleto {
		addressFields := []struct {
			name  string
			value string
		}{
			{"address_street", user.AddressStreet},
			{"address_number", user.AddressNumber},
			{"address_city", user.AddressCity},
			{"address_state", user.AddressState},
			{"address_zip", user.AddressZip},
		}
		for _, field := range addressFields {
			if field.value == "" {
				return &models.ProfileIncompleteError{Field: field.name}
			}
		}
	}
	return nil
}
