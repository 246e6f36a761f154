package asaas

import "github.com/rotaplus/driver-billing/internal/gateway"

// chargeStatusTable переводит словарь статусов списаний Asaas в закрытый
// нормализованный словарь адаптера. Статусы вне таблицы дают unknown.
var chargeStatusTable = map[string]gateway.ChargeStatus{
	"PENDING":                gateway.ChargeStatusPending,
	"AWAITING_RISK_ANALYSIS": gateway.ChargeStatusPending,
	"CONFIRMED":              gateway.ChargeStatusApproved,
	"RECEIVED":               gateway.ChargeStatusApproved,
	"RECEIVED_IN_CASH":       gateway.ChargeStatusApproved,
	"OVERDUE":                gateway.ChargeStatusDeclined,
	"REFUSED":                gateway.ChargeStatusDeclined,
	"REFUNDED":               gateway.ChargeStatusRefunded,
	"REFUND_REQUESTED":       gateway.ChargeStatusRefunded,
	"CHARGEBACK_REQUESTED":   gateway.ChargeStatusRefunded,
}

func normalizeChargeStatus(raw string) gateway.ChargeStatus {
	if status, ok := chargeStatusTable[raw]; ok {
		return status
	}
	return gateway.ChargeStatusUnknown
}

// subscriptionStatusTable переводит статусы рекуррентных подписок Asaas.
var subscriptionStatusTable = map[string]gateway.SubscriptionStatus{
	"AUTHORIZED": gateway.SubscriptionStatusAuthorized,
	"ACTIVE":     gateway.SubscriptionStatusActive,
	"PAUSED":     gateway.SubscriptionStatusPaused,
	"INACTIVE":   gateway.SubscriptionStatusPaused,
	"EXPIRED":    gateway.SubscriptionStatusCancelled,
	"CANCELLED":  gateway.SubscriptionStatusCancelled,
	"PENDING":    gateway.SubscriptionStatusPending,
}

func normalizeSubscriptionStatus(raw string) gateway.SubscriptionStatus {
	if status, ok := subscriptionStatusTable[raw]; ok {
		return status
	}
	return gateway.SubscriptionStatusUnknown
}
