// Package asaas реализует адаптер платежной сети Asaas: клиентов,
// разовые списания pix/boleto/card и рекуррентные подписки.
package asaas

// customerRequest запрос на создание клиента.
type customerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CpfCnpj   string `json:"cpfCnpj,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// customerResponse ответ по одному клиенту.
type customerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// customerListResponse ответ на поиск клиентов по email.
type customerListResponse struct {
	Data []customerResponse `json:"data"`
}

// paymentRequest запрос на создание списания.
type paymentRequest struct {
	Customer    string            `json:"customer"`
	BillingType string            `json:"billingType"` // PIX | BOLETO | CREDIT_CARD
	Value       float64           `json:"value"`       // сумма в реалах
	Description string            `json:"description,omitempty"`
	ExternalRef string            `json:"externalReference,omitempty"`
	CreditCard  *creditCard       `json:"creditCard,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type creditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	Ccv         string `json:"ccv"`
}

// paymentResponse ответ по одному списанию.
type paymentResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	BillingType string `json:"billingType"`
	BankSlipURL string `json:"bankSlipUrl,omitempty"`
}

// pixQrCodeResponse ответ на запрос QR-кода pix-списания.
type pixQrCodeResponse struct {
	EncodedImage string `json:"encodedImage"`
	Payload      string `json:"payload"`
}

// identificationFieldResponse ответ со штрих-кодом буклета.
type identificationFieldResponse struct {
	IdentificationField string `json:"identificationField"`
}

// planRequest запрос на создание рекуррентного плана.
type planRequest struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	IntervalDays int     `json:"intervalDays"`
}

// planResponse ответ по рекуррентному плану.
type planResponse struct {
	ID string `json:"id"`
}

// subscriptionRequest запрос на создание рекуррентной подписки.
type subscriptionRequest struct {
	Customer   string            `json:"customer"`
	Plan       string            `json:"plan"`
	CreditCard creditCard        `json:"creditCard"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// subscriptionResponse ответ по рекуррентной подписке.
type subscriptionResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	LastPaymentID string `json:"lastPaymentId,omitempty"`
}
