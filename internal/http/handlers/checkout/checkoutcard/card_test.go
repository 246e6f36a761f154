package checkoutcard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/http/middlewarectx"
	"github.com/rotaplus/driver-billing/internal/models"
	"github.com/rotaplus/driver-billing/internal/services/checkout"
)

// MockService реализует интерфейс checkoutcard.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Checkout(ctx context.Context, userUID, method string, req checkout.Request) (*models.CheckoutResult, error) {
	args := m.Called(ctx, userUID, method, req)
	if res := args.Get(0); res != nil {
		return res.(*models.CheckoutResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCardCheckoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	planID := "4f6c26d5-8da4-4f2b-9627-6d63fcba0d3e"
	validBody := `{"plan_id":"` + planID + `","card_number":"4111111111111111","holder_name":"JOAO SILVA","expiry":"1227","cvv":"123"}`
	cardRequest := checkout.Request{
		PlanID: planID,
		Card: &gateway.CardDetails{
			Number:     "4111111111111111",
			HolderName: "JOAO SILVA",
			ExpiryMMYY: "1227",
			CVV:        "123",
		},
	}

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное оформление картой",
			body:    validBody,
			userUID: "user123",
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "user123", models.PaymentMethodCard, cardRequest).
					Return(&models.CheckoutResult{
						SubscriptionID: "sub-1",
						PaymentID:      "payment-1",
						Method:         models.PaymentMethodCard,
						Status:         "CONFIRMED",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"CONFIRMED"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{plan`,
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "план не uuid",
			body:           `{"plan_id":"not-a-uuid","card_number":"4111111111111111","holder_name":"JOAO SILVA","expiry":"1227","cvv":"123"}`,
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field PlanID can contain only uuid`,
		},
		{
			name:           "нет данных карты",
			body:           `{"plan_id":"` + planID + `"}`,
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field CardNumber is a required field`,
		},
		{
			name:           "нет пользователя в контексте",
			body:           validBody,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:    "неактивный план",
			body:    validBody,
			userUID: "user123",
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "user123", models.PaymentMethodCard, cardRequest).
					Return(nil, models.ErrPlanInvalid)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"error":"invalid or inactive plan"`,
		},
		{
			name:    "неполный профиль",
			body:    validBody,
			userUID: "user123",
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "user123", models.PaymentMethodCard, cardRequest).
					Return(nil, &models.ProfileIncompleteError{Field: "cpf"})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `profile incomplete: missing cpf`,
		},
		{
			name:    "ошибка платежной сети",
			body:    validBody,
			userUID: "user123",
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "user123", models.PaymentMethodCard, cardRequest).
					Return(nil, &models.GatewayError{
						Provider: "asaas", Payload: `{}`, Err: errors.New("request failed"),
					})
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"error":"payment provider error"`,
		},
		{
			name:    "ошибка сервиса",
			body:    validBody,
			userUID: "user123",
			setupMock: func(m *MockService) {
				m.On("Checkout", mock.Anything, "user123", models.PaymentMethodCard, cardRequest).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not create checkout"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/checkout/card", strings.NewReader(tt.body))
			if tt.userUID != "" {
				ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
				req = req.WithContext(ctx)
			}

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
