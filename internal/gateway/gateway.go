// Package gateway определяет контракт адаптера платежной сети и
// нормализованные формы его ответов. Ядро биллинга никогда не ветвится
// по конкретной сети за адаптером: любая реализация обязана возвращать
// описанные здесь формы {id, status, поля способа оплаты}.
package gateway

import "context"

// Customer нормализованная запись клиента на стороне платежной сети.
type Customer struct {
	ID    string
	Email string
	Name  string
}

// CustomerParams параметры идемпотентного поиска-или-создания клиента.
// Ключом служит email.
type CustomerParams struct {
	Email string
	Name  string
	TaxID string
	Phone string
}

// CardDetails данные карты, проксируемые в платежную сеть. Никогда не
// сохраняются локально.
type CardDetails struct {
	Number     string
	HolderName string
	ExpiryMMYY string
	CVV        string
}

// Address почтовый адрес плательщика, обязателен для boleto.
type Address struct {
	Street string
	Number string
	City   string
	State  string
	Zip    string
}

// ChargeParams параметры создания списания.
type ChargeParams struct {
	CustomerID  string
	AmountCents int64
	Description string
	Metadata    map[string]string
	Card        *CardDetails
	Address     *Address
}

// Charge нормализованный результат создания или чтения списания.
// RawStatus хранит статус в исходном словаре провайдера, Status — его
// перевод через закрытую таблицу на границе.
type Charge struct {
	ID            string
	Status        ChargeStatus
	RawStatus     string
	PixQRCode     string
	PixQRCodeText string
	BoletoURL     string
	BoletoBarcode string
}

// PlanParams параметры создания рекуррентного плана у провайдера.
type PlanParams struct {
	Name         string
	AmountCents  int64
	IntervalDays int
}

// RecurringParams параметры создания рекуррентной подписки.
type RecurringParams struct {
	CustomerID     string
	ProviderPlanID string
	Card           CardDetails
	Metadata       map[string]string
}

// RemoteSubscription нормализованное состояние рекуррентной подписки
// на стороне провайдера.
type RemoteSubscription struct {
	ID            string
	Status        SubscriptionStatus
	RawStatus     string
	FirstChargeID string
}

// Gateway контракт адаптера платежной сети.
type Gateway interface {
	Name() string
	FindOrCreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	CreatePixCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	CreateBoletoCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	CreateCardCharge(ctx context.Context, params ChargeParams) (*Charge, error)
	GetPayment(ctx context.Context, id string) (*Charge, error)
	CreateRecurringPlan(ctx context.Context, params PlanParams) (string, error)
	CreateRecurringSubscription(ctx context.Context, params RecurringParams) (*RemoteSubscription, error)
	CancelSubscription(ctx context.Context, id string) error
	GetSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
}
