package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

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

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) DeleteSubscription(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreatePayment(ctx context.Context, payment models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
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

func validUser() *models.User {
	return &models.User{
		UID:           "user123",
		Email:         "driver@example.com",
		Name:          "Joao Silva",
		Phone:         "+5511999990000",
		CPF:           "39053344705",
		AddressStreet: "Rua das Flores",
		AddressNumber: "100",
		AddressCity:   "Sao Paulo",
		AddressState:  "SP",
		AddressZip:    "01001-000",
	}
}

func validPlan() *models.Plan {
	return &models.Plan{
		ID:         "4f6c26d5-8da4-4f2b-9627-6d63fcba0d3e",
		Tier:       "premium",
		PriceCents: 4990,
		IsActive:   true,
	}
}

func TestCheckoutService_Checkout(t *testing.T) {
	plan := validPlan()
	user := validUser()
	customer := &gateway.Customer{ID: "cus_001", Email: user.Email}
	pixCharge := &gateway.Charge{
		ID:            "pay_001",
		Status:        gateway.ChargeStatusPending,
		RawStatus:     "PENDING",
		PixQRCode:     "base64image",
		PixQRCodeText: "00020126copiaecola",
	}

	tests := []struct {
		name          string
		method        string
		req           Request
		setupMocks    func(*MockRepository, *MockCache, *MockGateway)
		expectedError error
		checkResult   func(*testing.T, *models.CheckoutResult)
	}{
		{
			name:   "success - pix checkout",
			method: models.PaymentMethodPix,
			req:    Request{PlanID: plan.ID},
			setupMocks: func(r *MockRepository, c *MockCache, g *MockGateway) {
				c.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
				r.On("GetPlan", mock.Anything, plan.ID).Return(plan, nil).Once()
				c.On("Set", mock.Anything, "plan:"+plan.ID, plan, time.Hour).Return(nil).Once()
				r.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()
				g.On("FindOrCreateCustomer", mock.Anything, mock.AnythingOfType("gateway.CustomerParams")).Return(customer, nil).Once()
				g.On("Name").Return("asaas")
				r.On("CreateSubscription", mock.Anything, mock.AnythingOfType("models.Subscription")).Return(nil).Once()
				g.On("CreatePixCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeParams")).Return(pixCharge, nil).Once()
				r.On("CreatePayment", mock.Anything, mock.AnythingOfType("models.Payment")).Return(nil).Once()
			},
			checkResult: func(t *testing.T, res *models.CheckoutResult) {
				assert.Equal(t, models.PaymentMethodPix, res.Method)
				assert.Equal(t, "PENDING", res.Status)
				assert.Equal(t, "base64image", res.PixQRCode)
				assert.Equal(t, "00020126copiaecola", res.PixQRCodeText)
				assert.NotEmpty(t, res.SubscriptionID)
				assert.NotEmpty(t, res.PaymentID)
			},
		},
		{
			name:   "plan not found",
			method: models.PaymentMethodPix,
			req:    Request{PlanID: plan.ID},
			setupMocks: func(r *MockRepository, c *MockCache, _ *MockGateway) {
				c.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
				r.On("GetPlan", mock.Anything, plan.ID).Return(nil, nil).Once()
			},
			expectedError: models.ErrPlanInvalid,
		},
		{
			name:   "plan inactive",
			method: models.PaymentMethodPix,
			req:    Request{PlanID: plan.ID},
			setupMocks: func(r *MockRepository, c *MockCache, _ *MockGateway) {
				inactive := *plan
				inactive.IsActive = false
				c.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
				r.On("GetPlan", mock.Anything, plan.ID).Return(&inactive, nil).Once()
				c.On("Set", mock.Anything, "plan:"+plan.ID, &inactive, time.Hour).Return(nil).Once()
			},
			expectedError: models.ErrPlanInvalid,
		},
		{
			name:   "user not found",
			method: models.PaymentMethodPix,
			req:    Request{PlanID: plan.ID},
			setupMocks: func(r *MockRepository, c *MockCache, _ *MockGateway) {
				c.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
				r.On("GetPlan", mock.Anything, plan.ID).Return(plan, nil).Once()
				c.On("Set", mock.Anything, "plan:"+plan.ID, plan, time.Hour).Return(nil).Once()
				r.On("GetUser", mock.Anything, "user123").Return(nil, nil).Once()
			},
			expectedError: models.ErrUserNotFound,
		},
		{
			name:   "unsupported method",
			method: "cash",
			req:    Request{PlanID: plan.ID},
			setupMocks: func(_ *MockRepository, _ *MockCache, _ *MockGateway) {
			},
			expectedError: models.ErrUnsupportedMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			gw := new(MockGateway)
			service := New(repo, cache, gw, newNoopLogger())

			tt.setupMocks(repo, cache, gw)

			result, err := service.Checkout(context.Background(), "user123", tt.method, tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				tt.checkResult(t, result)
			}

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}

func TestCheckoutService_ProfileValidation(t *testing.T) {
	plan := validPlan()

	tests := []struct {
		name          string
		method        string
		mutateUser    func(*models.User)
		expectedField string
	}{
		{
			name:          "pix without cpf",
			method:        models.PaymentMethodPix,
			mutateUser:    func(u *models.User) { u.CPF = "" },
			expectedField: "cpf",
		},
		{
			name:          "pix without phone",
			method:        models.PaymentMethodPix,
			mutateUser:    func(u *models.User) { u.Phone = "" },
			expectedField: "phone",
		},
		{
			name:          "boleto without address",
			method:        models.PaymentMethodBoleto,
			mutateUser:    func(u *models.User) { u.AddressStreet = "" },
			expectedField: "address_street",
		},
		{
			name:          "boleto without zip",
			method:        models.PaymentMethodBoleto,
			mutateUser:    func(u *models.User) { u.AddressZip = "" },
			expectedField: "address_zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := validUser()
			tt.mutateUser(user)

			repo := new(MockRepository)
			cache := new(MockCache)
			gw := new(MockGateway)
			service := New(repo, cache, gw, newNoopLogger())

			cache.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
			repo.On("GetPlan", mock.Anything, plan.ID).Return(plan, nil).Once()
			cache.On("Set", mock.Anything, "plan:"+plan.ID, plan, time.Hour).Return(nil).Once()
			repo.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()

			result, err := service.Checkout(context.Background(), "user123", tt.method, Request{PlanID: plan.ID})

			assert.Nil(t, result)
			var profileErr *models.ProfileIncompleteError
			assert.ErrorAs(t, err, &profileErr)
			assert.Equal(t, tt.expectedField, profileErr.Field)

			repo.AssertExpectations(t)
		})
	}
}

func TestCheckoutService_CardSkipsProfileChecks(t *testing.T) {
	plan := validPlan()
	user := validUser()
	user.CPF = ""
	user.Phone = ""
	customer := &gateway.Customer{ID: "cus_001"}
	cardCharge := &gateway.Charge{ID: "pay_002", Status: gateway.ChargeStatusApproved, RawStatus: "CONFIRMED"}

	repo := new(MockRepository)
	cache := new(MockCache)
	gw := new(MockGateway)
	service := New(repo, cache, gw, newNoopLogger())

	cache.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
	repo.On("GetPlan", mock.Anything, plan.ID).Return(plan, nil).Once()
	cache.On("Set", mock.Anything, "plan:"+plan.ID, plan, time.Hour).Return(nil).Once()
	repo.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()
	gw.On("FindOrCreateCustomer", mock.Anything, mock.AnythingOfType("gateway.CustomerParams")).Return(customer, nil).Once()
	gw.On("Name").Return("asaas")
	repo.On("CreateSubscription", mock.Anything, mock.AnythingOfType("models.Subscription")).Return(nil).Once()
	gw.On("CreateCardCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeParams")).Return(cardCharge, nil).Once()
	repo.On("CreatePayment", mock.Anything, mock.AnythingOfType("models.Payment")).Return(nil).Once()

	card := &gateway.CardDetails{Number: "4111111111111111", HolderName: "JOAO SILVA", ExpiryMMYY: "1227", CVV: "123"}
	result, err := service.Checkout(context.Background(), "user123", models.PaymentMethodCard, Request{PlanID: plan.ID, Card: card})

	assert.NoError(t, err)
	assert.Equal(t, "CONFIRMED", result.Status)

	repo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestCheckoutService_Compensation(t *testing.T) {
	plan := validPlan()
	user := validUser()
	customer := &gateway.Customer{ID: "cus_001"}
	chargeErr := &models.GatewayError{Provider: "asaas", Payload: `{"errors":[]}`, Err: errors.New("gateway request failed")}

	tests := []struct {
		name       string
		setupMocks func(*MockRepository, *MockGateway)
	}{
		{
			name: "charge failure deletes subscription",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				g.On("CreatePixCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeParams")).Return(nil, chargeErr).Once()
				r.On("DeleteSubscription", mock.Anything, mock.AnythingOfType("string")).Return(1, nil).Once()
			},
		},
		{
			name: "compensation failure still returns original error",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				g.On("CreatePixCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeParams")).Return(nil, chargeErr).Once()
				r.On("DeleteSubscription", mock.Anything, mock.AnythingOfType("string")).Return(0, errors.New("db down")).Once()
			},
		},
		{
			name: "payment insert failure deletes subscription",
			setupMocks: func(r *MockRepository, g *MockGateway) {
				pixCharge := &gateway.Charge{ID: "pay_001", Status: gateway.ChargeStatusPending, RawStatus: "PENDING"}
				g.On("CreatePixCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeParams")).Return(pixCharge, nil).Once()
				r.On("CreatePayment", mock.Anything, mock.AnythingOfType("models.Payment")).Return(chargeErr).Once()
				r.On("DeleteSubscription", mock.Anything, mock.AnythingOfType("string")).Return(1, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			cache := new(MockCache)
			gw := new(MockGateway)
			service := New(repo, cache, gw, newNoopLogger())

			cache.On("Get", mock.Anything, "plan:"+plan.ID, mock.Anything).Return(false, nil).Once()
			repo.On("GetPlan", mock.Anything, plan.ID).Return(plan, nil).Once()
			cache.On("Set", mock.Anything, "plan:"+plan.ID, plan, time.Hour).Return(nil).Once()
			repo.On("GetUser", mock.Anything, "user123").Return(user, nil).Once()
			gw.On("FindOrCreateCustomer", mock.Anything, mock.AnythingOfType("gateway.CustomerParams")).Return(customer, nil).Once()
			gw.On("Name").Return("asaas")
			repo.On("CreateSubscription", mock.Anything, mock.AnythingOfType("models.Subscription")).Return(nil).Once()

			tt.setupMocks(repo, gw)

			result, err := service.Checkout(context.Background(), "user123", models.PaymentMethodPix, Request{PlanID: plan.ID})

			assert.Error(t, err)
			assert.Nil(t, result)
			var gwErr *models.GatewayError
			assert.ErrorAs(t, err, &gwErr)

			repo.AssertExpectations(t)
			gw.AssertExpectations(t)
		})
	}
}
