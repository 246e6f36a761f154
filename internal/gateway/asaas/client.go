package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotaplus/driver-billing/internal/gateway"
	"github.com/rotaplus/driver-billing/internal/models"
)

const providerName = "asaas"

// Client клиент HTTP API Asaas. Создается один раз при старте процесса
// и внедряется в граф зависимостей, никаких глобальных экземпляров.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создает новый клиент Asaas.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name возвращает имя платежной сети.
func (c *Client) Name() string { return providerName }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do выполняет запрос и декодирует ответ. Ответ провайдера с кодом вне
// 2xx возвращается вызывающей стороне как GatewayError с исходным телом.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.GatewayError{Provider: providerName, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.GatewayError{
			Provider: providerName,
			Payload:  string(payload),
			Err:      fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.GatewayError{Provider: providerName, Err: err}
	}
	return nil
}

// FindOrCreateCustomer ищет клиента по email и создает его при отсутствии.
func (c *Client) FindOrCreateCustomer(ctx context.Context, params gateway.CustomerParams) (*gateway.Customer, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/customers?email="+url.QueryEscape(params.Email), nil)
	if err != nil {
		return nil, err
	}
	var list customerListResponse
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	if len(list.Data) > 0 {
		found := list.Data[0]
		return &gateway.Customer{ID: found.ID, Email: found.Email, Name: found.Name}, nil
	}

	req, err = c.newRequest(ctx, http.MethodPost, "/customers", customerRequest{
		Name:    params.Name,
		Email:   params.Email,
		CpfCnpj: params.TaxID,
		Phone:   params.Phone,
	})
	if err != nil {
		return nil, err
	}
	var created customerResponse
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	return &gateway.Customer{ID: created.ID, Email: created.Email, Name: created.Name}, nil
}

// CreatePixCharge создает pix-списание и дозапрашивает его QR-код.
func (c *Client) CreatePixCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	payment, err := c.createPayment(ctx, "PIX", params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+payment.ID+"/pixQrCode", nil)
	if err != nil {
		return nil, err
	}
	var qr pixQrCodeResponse
	if err := c.do(req, &qr); err != nil {
		return nil, err
	}

	charge := normalizeCharge(payment)
	charge.PixQRCode = qr.EncodedImage
	charge.PixQRCodeText = qr.Payload
	return charge, nil
}

// CreateBoletoCharge создает boleto-списание и дозапрашивает штрих-код.
func (c *Client) CreateBoletoCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	payment, err := c.createPayment(ctx, "BOLETO", params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+payment.ID+"/identificationField", nil)
	if err != nil {
		return nil, err
	}
	var field identificationFieldResponse
	if err := c.do(req, &field); err != nil {
		return nil, err
	}

	charge := normalizeCharge(payment)
	charge.BoletoBarcode = field.IdentificationField
	return charge, nil
}

// CreateCardCharge создает разовое списание с карты.
func (c *Client) CreateCardCharge(ctx context.Context, params gateway.ChargeParams) (*gateway.Charge, error) {
	payment, err := c.createPayment(ctx, "CREDIT_CARD", params)
	if err != nil {
		return nil, err
	}
	return normalizeCharge(payment), nil
}

func (c *Client) createPayment(ctx context.Context, billingType string, params gateway.ChargeParams) (*paymentResponse, error) {
	body := paymentRequest{
		Customer:    params.CustomerID,
		BillingType: billingType,
		Value:       float64(params.AmountCents) / 100,
		Description: params.Description,
		Metadata:    params.Metadata,
	}
	if params.Card != nil {
		body.CreditCard = &creditCard{
			HolderName:  params.Card.HolderName,
			Number:      params.Card.Number,
			ExpiryMonth: expiryMonth(params.Card.ExpiryMMYY),
			ExpiryYear:  expiryYear(params.Card.ExpiryMMYY),
			Ccv:         params.Card.CVV,
		}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}
	var payment paymentResponse
	if err := c.do(req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment возвращает актуальное состояние списания.
func (c *Client) GetPayment(ctx context.Context, id string) (*gateway.Charge, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+id, nil)
	if err != nil {
		return nil, err
	}
	var payment paymentResponse
	if err := c.do(req, &payment); err != nil {
		return nil, err
	}
	return normalizeCharge(&payment), nil
}

// CreateRecurringPlan создает рекуррентный план и возвращает его ID.
func (c *Client) CreateRecurringPlan(ctx context.Context, params gateway.PlanParams) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/plans", planRequest{
		Name:         params.Name,
		Value:        float64(params.AmountCents) / 100,
		IntervalDays: params.IntervalDays,
	})
	if err != nil {
		return "", err
	}
	var plan planResponse
	if err := c.do(req, &plan); err != nil {
		return "", err
	}
	return plan.ID, nil
}

// CreateRecurringSubscription создает рекуррентную подписку с оплатой картой.
func (c *Client) CreateRecurringSubscription(ctx context.Context, params gateway.RecurringParams) (*gateway.RemoteSubscription, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/subscriptions", subscriptionRequest{
		Customer: params.CustomerID,
		Plan:     params.ProviderPlanID,
		CreditCard: creditCard{
			HolderName:  params.Card.HolderName,
			Number:      params.Card.Number,
			ExpiryMonth: expiryMonth(params.Card.ExpiryMMYY),
			ExpiryYear:  expiryYear(params.Card.ExpiryMMYY),
			Ccv:         params.Card.CVV,
		},
		Metadata: params.Metadata,
	})
	if err != nil {
		return nil, err
	}
	var sub subscriptionResponse
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return normalizeSubscription(&sub), nil
}

// CancelSubscription отменяет рекуррентную подписку у провайдера.
func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/subscriptions/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// GetSubscription возвращает актуальное состояние рекуррентной подписки.
func (c *Client) GetSubscription(ctx context.Context, id string) (*gateway.RemoteSubscription, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/subscriptions/"+id, nil)
	if err != nil {
		return nil, err
	}
	var sub subscriptionResponse
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return normalizeSubscription(&sub), nil
}

func normalizeCharge(payment *paymentResponse) *gateway.Charge {
	return &gateway.Charge{
		ID:        payment.ID,
		Status:    normalizeChargeStatus(payment.Status),
		RawStatus: payment.Status,
		BoletoURL: payment.BankSlipURL,
	}
}

func normalizeSubscription(sub *subscriptionResponse) *gateway.RemoteSubscription {
	return &gateway.RemoteSubscription{
		ID:            sub.ID,
		Status:        normalizeSubscriptionStatus(sub.Status),
		RawStatus:     sub.Status,
		FirstChargeID: sub.LastPaymentID,
	}
}

// expiryMonth и expiryYear разбирают срок действия карты в формате MMYY.
func expiryMonth(mmyy string) string {
	if len(mmyy) != 4 {
		return ""
	}
	return mmyy[:2]
}

func expiryYear(mmyy string) string {
	if len(mmyy) != 4 {
		return ""
	}
	return "20" + mmyy[2:]
}
