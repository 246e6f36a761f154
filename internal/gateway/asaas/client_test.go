package asaas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/models"
)

func TestClient_FindOrCreateCustomer(t *testing.T) {
	tests := []struct {
		name       string
		existing   []customerResponse
		expectedID string
		wantCreate bool
	}{
		{
			name:       "клиент уже существует",
			existing:   []customerResponse{{ID: "cus_1", Email: "joao@example.com", Name: "Joao"}},
			expectedID: "cus_1",
			wantCreate: false,
		},
		{
			name:       "клиент создается при отсутствии",
			existing:   nil,
			expectedID: "cus_2",
			wantCreate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.Header.Get("access_token"))
				switch {
				case r.Method == http.MethodGet && r.URL.Path == "/customers":
					_ = json.NewEncoder(w).Encode(customerListResponse{Data: tt.existing})
				case r.Method == http.MethodPost && r.URL.Path == "/customers":
					created = true
					var req customerRequest
					_ = json.NewDecoder(r.Body).Decode(&req)
					_ = json.NewEncoder(w).Encode(customerResponse{ID: "cus_2", Email: req.Email, Name: req.Name})
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "test-key", time.Second)
			customer, err := client.FindOrCreateCustomer(context.Background(), gateway.CustomerParams{
				Email: "joao@example.com",
				Name:  "Joao",
				TaxID: "52998224725",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, customer.ID)
			assert.Equal(t, tt.wantCreate, created)
		})
	}
}

func TestClient_CreatePixCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/payments":
			var req paymentRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "PIX", req.BillingType)
			assert.InDelta(t, 157.0, req.Value, 0.001)
			_ = json.NewEncoder(w).Encode(paymentResponse{ID: "pay_1", Status: "PENDING"})
		case r.Method == http.MethodGet && r.URL.Path == "/payments/pay_1/pixQrCode":
			_ = json.NewEncoder(w).Encode(pixQrCodeResponse{EncodedImage: "img-base64", Payload: "00020126pix"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)
	charge, err := client.CreatePixCharge(context.Background(), gateway.ChargeParams{
		CustomerID:  "cus_1",
		AmountCents: 15700,
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", charge.ID)
	assert.Equal(t, gateway.ChargeStatusPending, charge.Status)
	assert.Equal(t, "img-base64", charge.PixQRCode)
	assert.Equal(t, "00020126pix", charge.PixQRCodeText)
}

func TestClient_GatewayErrorCarriesProviderPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"invalid_value","description":"valor invalido"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)
	_, err := client.CreateCardCharge(context.Background(), gateway.ChargeParams{CustomerID: "cus_1", AmountCents: 100})
	require.Error(t, err)

	var gatewayErr *models.GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, "asaas", gatewayErr.Provider)
	assert.Contains(t, gatewayErr.Payload, "valor invalido")
}

func TestNormalizeChargeStatus(t *testing.T) {
	assert.Equal(t, gateway.ChargeStatusApproved, normalizeChargeStatus("RECEIVED"))
	assert.Equal(t, gateway.ChargeStatusApproved, normalizeChargeStatus("CONFIRMED"))
	assert.Equal(t, gateway.ChargeStatusPending, normalizeChargeStatus("PENDING"))
	assert.Equal(t, gateway.ChargeStatusRefunded, normalizeChargeStatus("REFUNDED"))
	assert.Equal(t, gateway.ChargeStatusUnknown, normalizeChargeStatus("SOMETHING_NEW"))
}
