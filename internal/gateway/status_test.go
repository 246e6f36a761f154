package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rotaplus/driver-billing/internal/models"
)

func TestSubscriptionStatus_LocalStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    SubscriptionStatus
		expected  string
		mappable  bool
	}{
		{"authorized активирует подписку", SubscriptionStatusAuthorized, models.SubscriptionStatusActive, true},
		{"active активирует подписку", SubscriptionStatusActive, models.SubscriptionStatusActive, true},
		{"paused отменяет подписку", SubscriptionStatusPaused, models.SubscriptionStatusCanceled, true},
		{"cancelled отменяет подписку", SubscriptionStatusCancelled, models.SubscriptionStatusCanceled, true},
		{"pending оставляет подписку неполной", SubscriptionStatusPending, models.SubscriptionStatusIncomplete, true},
		{"unknown вне таблицы", SubscriptionStatusUnknown, "", false},
		{"произвольный статус вне таблицы", SubscriptionStatus("trialing"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, ok := tt.status.LocalStatus()
			assert.Equal(t, tt.mappable, ok)
			assert.Equal(t, tt.expected, local)
		})
	}
}

func TestChargeStatus_Approved(t *testing.T) {
	assert.True(t, ChargeStatusApproved.Approved())
	assert.False(t, ChargeStatusPending.Approved())
	assert.False(t, ChargeStatusDeclined.Approved())
	assert.False(t, ChargeStatusRefunded.Approved())
	assert.False(t, ChargeStatusUnknown.Approved())
}
