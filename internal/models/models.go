// Package models содержит доменные структуры биллинга: тарифные планы,
// подписки, платежи и профили водителей, а также вспомогательные типы
// для приёма данных из JSON-запросов.
package models

import "time"

// Статусы подписки. Подписка создается только в статусе INCOMPLETE,
// переходит в ACTIVE после подтвержденного платежа или webhook о подписке,
// в CANCELED — по явной отмене, webhook об отмене или по истечении срока.
const (
	SubscriptionStatusIncomplete = "INCOMPLETE"
	SubscriptionStatusActive     = "ACTIVE"
	SubscriptionStatusCanceled   = "CANCELED"
)

// Способы оплаты, поддерживаемые платежной сетью.
const (
	PaymentMethodPix    = "pix"
	PaymentMethodBoleto = "boleto"
	PaymentMethodCard   = "card"
)

// Plan представляет тарифный план подписки. После того как на план
// ссылается хотя бы одна подписка, меняется только ProviderPlanID
// (идентификатор рекуррентного плана на стороне платежной сети,
// создается лениво при первом подключении автопродления).
type Plan struct {
	ID             string    // Уникальный идентификатор плана
	Tier           string    // Название уровня (basic, plus, pro)
	PriceCents     int64     // Цена в сентаво
	IsActive       bool      // Доступен ли план для оформления
	ProviderPlanID *string   // ID рекуррентного плана на стороне провайдера
	CreatedAt      time.Time // Дата создания
}

// Subscription представляет подписку водителя на тарифный план.
type Subscription struct {
	ID               string     // Уникальный идентификатор подписки
	UserUID          string     // Идентификатор водителя
	PlanID           string     // Идентификатор плана
	Status           string     // INCOMPLETE | ACTIVE | CANCELED
	Provider         string     // Имя платежной сети
	ProviderSubID    *string    // ID рекуррентной подписки у провайдера (nil для разовых)
	StartedAt        *time.Time // Дата первой активации
	CurrentPeriodEnd *time.Time // Конец оплаченного периода (nil до активации)
	CreatedAt        time.Time  // Дата создания
}

// Payment представляет одну попытку списания по одному из трех способов
// оплаты. Status — свободная строка, зеркалирующая словарь платежной сети;
// она отстает от истины провайдера до прогона реконсиляции.
type Payment struct {
	ID             string    // Уникальный идентификатор платежа
	UserUID        string    // Идентификатор водителя
	SubscriptionID string    // Подписка, к которой привязан платеж
	Method         string    // pix | boleto | card
	Provider       string    // Имя платежной сети
	ProviderID     string    // Внешний ID списания, уникален в рамках провайдера
	Status         string    // Статус в терминах провайдера
	AmountCents    int64     // Сумма в сентаво
	PixQRCode      string    // Изображение QR-кода (pix)
	PixQRCodeText  string    // Копируемый код (pix)
	BoletoURL      string    // Ссылка на банковский буклет (boleto)
	BoletoBarcode  string    // Штрих-код буклета (boleto)
	CreatedAt      time.Time // Дата создания
}

// User представляет профиль водителя. Хранилище профилей — внешний
// коллаборатор, биллингу нужны только перечисленные поля.
type User struct {
	UID           string // Уникальный идентификатор водителя
	Email         string // Электронная почта
	Name          string // Полное имя
	Phone         string // Телефон (обязателен для pix/boleto)
	CPF           string // Налоговый идентификатор (обязателен для pix/boleto)
	AddressStreet string // Улица (обязательна для boleto)
	AddressNumber string // Номер дома
	AddressCity   string // Город
	AddressState  string // Штат
	AddressZip    string // Почтовый индекс
}

// NotificationMarker представляет запись дедупликации уведомлений:
// не более одного предупреждения данного типа на пользователя в день.
type NotificationMarker struct {
	ID        int       // Идентификатор записи
	UserUID   string    // Идентификатор водителя
	Type      string    // Тип, например expiration_warning_10d
	Title     string    // Человекочитаемый заголовок
	Message   string    // Человекочитаемый текст
	CreatedAt time.Time // Дата создания (ключ дедупликации по дню)
}

// ExpiringSubscription объединяет подписку с контактами водителя для
// прохода обработки истечений: письмо и push отправляются без
// дополнительных чтений профиля.
type ExpiringSubscription struct {
	SubscriptionID   string
	UserUID          string
	Email            string
	Name             string
	PlanTier         string
	CurrentPeriodEnd time.Time
}

// DummyCheckout используется для приёма данных из JSON-запроса на
// оформление подписки через pix или boleto.
type DummyCheckout struct {
	PlanID string `json:"plan_id" validate:"required,uuid"` // Идентификатор плана
}

// DummyCardCheckout используется для приёма данных из JSON-запроса на
// оформление подписки картой. Данные карты передаются в платежную сеть
// и нигде не сохраняются.
type DummyCardCheckout struct {
	PlanID     string `json:"plan_id" validate:"required,uuid"`    // Идентификатор плана
	CardNumber string `json:"card_number" validate:"required"`     // Номер карты
	HolderName string `json:"holder_name" validate:"required"`     // Имя держателя
	ExpiryMMYY string `json:"expiry" validate:"required,len=4"`    // Срок действия MMYY
	CVV        string `json:"cvv" validate:"required,min=3,max=4"` // Код проверки
}

// DummyRecurring используется для приёма данных из JSON-запроса на
// подключение рекуррентного списания к активной подписке.
type DummyRecurring struct {
	CardNumber string `json:"card_number" validate:"required"`     // Номер карты
	HolderName string `json:"holder_name" validate:"required"`     // Имя держателя
	ExpiryMMYY string `json:"expiry" validate:"required,len=4"`    // Срок действия MMYY
	CVV        string `json:"cvv" validate:"required,min=3,max=4"` // Код проверки
}

// CheckoutResult содержит специфичный для способа оплаты результат
// оформления, возвращаемый вызывающей стороне.
type CheckoutResult struct {
	SubscriptionID string `json:"subscription_id"`
	PaymentID      string `json:"payment_id"`
	Method         string `json:"method"`
	Status         string `json:"status"`
	PixQRCode      string `json:"qr_code,omitempty"`
	PixQRCodeText  string `json:"qr_code_text,omitempty"`
	BoletoURL      string `json:"boleto_url,omitempty"`
	BoletoBarcode  string `json:"barcode,omitempty"`
}
