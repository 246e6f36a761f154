package gateway

import "github.com/rotaplus/driver-billing/internal/models"

// ChargeStatus закрытый словарь статусов списания после нормализации.
type ChargeStatus string

const (
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusApproved ChargeStatus = "approved"
	ChargeStatusDeclined ChargeStatus = "declined"
	ChargeStatusRefunded ChargeStatus = "refunded"
	ChargeStatusUnknown  ChargeStatus = "unknown"
)

// Approved сообщает, подтверждает ли статус оплату.
func (s ChargeStatus) Approved() bool {
	return s == ChargeStatusApproved
}

// SubscriptionStatus закрытый словарь статусов рекуррентной подписки
// после нормализации.
type SubscriptionStatus string

const (
	SubscriptionStatusAuthorized SubscriptionStatus = "authorized"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPaused     SubscriptionStatus = "paused"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
	SubscriptionStatusPending    SubscriptionStatus = "pending"
	SubscriptionStatusUnknown    SubscriptionStatus = "unknown"
)

// localSubscriptionStatus закрытая таблица перевода статусов провайдера
// в локальный жизненный цикл подписки. Статусы вне таблицы не приводят
// к изменению локального состояния.
var localSubscriptionStatus = map[SubscriptionStatus]string{
	SubscriptionStatusAuthorized: models.SubscriptionStatusActive,
	SubscriptionStatusActive:     models.SubscriptionStatusActive,
	SubscriptionStatusPaused:     models.SubscriptionStatusCanceled,
	SubscriptionStatusCancelled:  models.SubscriptionStatusCanceled,
	SubscriptionStatusPending:    models.SubscriptionStatusIncomplete,
}

// LocalStatus возвращает локальный статус подписки и признак того,
// что статус вообще подлежит переводу.
func (s SubscriptionStatus) LocalStatus() (string, bool) {
	local, ok := localSubscriptionStatus[s]
	return local, ok
}
