package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetActiveSubscriptionByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) SetPlanProviderID(ctx context.Context, planID, providerPlanID string) error {
	args := m.Called(ctx, planID, providerPlanID)
	return args.Error(0)
}

func (m *MockRepository) SetSubscriptionProviderSubID(ctx context.Context, id, providerSubID string) error {
	args := m.Called(ctx, id, providerSubID)
	return args.Error(0)
}

func (m *MockRepository) UpdateSubscriptionStatus(ctx context.Context, id, status string) (int, error) {
	args := m.Called(ctx, id, status)
	return args.Int(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGateway) FindOrCreateCustomer(ctx context.Context, params gateway.CustomerParams) (*gateway.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Customer), args.Error(1)
}

func (m *MockGateway) CreatePixCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockGateway) CreateBoletoCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockGateway) CreateCardCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockGateway) GetPayment(ctx context.Context, providerID string) (*gateway.Charge, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockGateway) CreateRecurringPlan(ctx context.Context, params gateway.PlanParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateRecurringSubscription(ctx context.Context, params gateway.RecurringParams) (*gateway.RemoteSubscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RemoteSubscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, providerSubID string) error {
	args := m.Called(ctx, providerSubID)
	return args.Error(0)
}

func (m *MockGateway) GetSubscription(ctx context.Context, providerSubID string) (*gateway.RemoteSubscription, error) {
	args := m.Called(ctx, providerSubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RemoteSubscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func activeSub() *models.Subscription {
	return &models.Subscription{
		ID:      "sub-local-1",
		UserUID: "user123",
		PlanID:  "plan-1",
		Status:  models.SubscriptionStatusActive,
	}
}

func TestSubscriptionService_EnableRecurring(t *testing.T) {
	card := gateway.CardDetails{Number: "4111111111111111", HolderName: "JOAO SILVA", ExpiryMMYY: "1227", CVV: "123"}
	user := &models.User{UID: "user123", Email: "driver@example.com", Name: "Joao", CPF: "39053344705"}
	customer := &gateway.Customer{ID: "cus_001"}
	remote := &gateway.RemoteSubscription{ID: "sub_asaas_1", Status: gateway.SubscriptionStatusAuthorized}

	t.Run("success - provider plan created lazily", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		service := New(repo, gw, newNoopLogger())

		plan := &models.Plan{ID: "plan-1", Tier: "premium", PriceCents: 4990, IsActive: true}

		repo.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(activeSub(), nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		gw.On("CreateRecurringPlan", mock.Anything, mock.AnythingOfType("gateway.PlanParams")).Return("plan_asaas_1", nil).Once()
		repo.On("SetPlanProviderID", mock.Anything, "plan-1", "plan_asaas_1").Return(nil).Once()
		repo.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()
		gw.On("FindOrCreateCustomer", mock.Anything, mock.AnythingOfType("gateway.CustomerParams")).Return(customer, nil).Once()
		gw.On("CreateRecurringSubscription", mock.Anything, mock.MatchedBy(func(p gateway.RecurringParams) bool {
			return p.Card == card && p.CustomerID == "cus_001" && p.ProviderPlanID == "plan_asaas_1"
		})).Return(remote, nil).Once()
		repo.On("SetSubscriptionProviderSubID", mock.Anything, "sub-local-1", "sub_asaas_1").Return(nil).Once()

		providerSubID, err := service.EnableRecurring(context.Background(), "user123", card)

		assert.NoError(t, err)
		assert.Equal(t, "sub_asaas_1", providerSubID)
		repo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("success - provider plan already exists", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		service := New(repo, gw, newNoopLogger())

		existing := "plan_asaas_1"
		plan := &models.Plan{ID: "plan-1", Tier: "premium", PriceCents: 4990, IsActive: true, ProviderPlanID: &existing}

		repo.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(activeSub(), nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		repo.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()
		gw.On("FindOrCreateCustomer", mock.Anything, mock.AnythingOfType("gateway.CustomerParams")).Return(customer, nil).Once()
		gw.On("CreateRecurringSubscription", mock.Anything, mock.AnythingOfType("gateway.RecurringParams")).Return(remote, nil).Once()
		repo.On("SetSubscriptionProviderSubID", mock.Anything, "sub-local-1", "sub_asaas_1").Return(nil).Once()

		_, err := service.EnableRecurring(context.Background(), "user123", card)

		assert.NoError(t, err)
		gw.AssertNotCalled(t, "CreateRecurringPlan", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("no active subscription", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		service := New(repo, gw, newNoopLogger())

		repo.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(nil, nil).Once()

		_, err := service.EnableRecurring(context.Background(), "user123", card)

		assert.ErrorIs(t, err, models.ErrSubscriptionNotFound)
		repo.AssertExpectations(t)
	})
}

func TestSubscriptionService_Cancel(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*MockRepository, *MockGateway)
		expectedError error
	}{
		{
			name: "success - no recurring billing attached",
			setupMocks: func(r *MockRepository, _ *MockGateway) {
				r.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(activeSub(), nil).Once()
				r.On("UpdateSubscriptionStatus", mock.Anything, "sub-local-1", models.SubscriptionStatusCanceled).Return(1, nil).Once()
			},
		},
		{
			name: "success - recurring billing canceled remotely first",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				sub := activeSub()
				providerSubID := "sub_asaas_1"
				sub.ProviderSubID = &providerSubID
				r.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(sub, nil).Once()
				g.On("CancelSubscription", mock.Anything, "sub_asaas_1").Return(nil).Once()
				r.On("UpdateSubscriptionStatus", mock.Anything, "sub-local-1", models.SubscriptionStatusCanceled).Return(1, nil).Once()
			},
		},
		{
			name: "remote cancel failure keeps local status",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				sub := activeSub()
				providerSubID := "sub_asaas_1"
				sub.ProviderSubID = &providerSubID
				r.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(sub, nil).Once()
				g.On("CancelSubscription", mock.Anything, "sub_asaas_1").Return(errors.New("gateway error")).Once()
			},
			expectedError: errors.New("gateway error"),
		},
		{
			name: "no active subscription",
			setupMocks: func(r *MockRepository, _ *MockGateway) {
				r.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(nil, nil).Once()
			},
			expectedError: models.ErrSubscriptionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			gw := new(MockGateway)
			service := New(repo, gw, newNoopLogger())

			tt.setupMocks(repo, gw)

			err := service.Cancel(context.Background(), "user123")

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
				repo.AssertNotCalled(t, "UpdateSubscriptionStatus", mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestSubscriptionService_Active(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		service := New(repo, gw, newNoopLogger())

		repo.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(activeSub(), nil).Once()

		sub, err := service.Active(context.Background(), "user123")

		assert.NoError(t, err)
		assert.Equal(t, "sub-local-1", sub.ID)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockRepository)
		gw := new(MockGateway)
		service := New(repo, gw, newNoopLogger())

		repo.On("GetActiveSubscriptionByUser", mock.Anything, "user123").Return(nil, nil).Once()

		sub, err := service.Active(context.Background(), "user123")

		assert.ErrorIs(t, err, models.ErrSubscriptionNotFound)
		assert.Nil(t, sub)
	})
}
