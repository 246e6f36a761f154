// Package metrics содержит счетчики Prometheus движка биллинга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutsTotal количество оформлений по способу оплаты и исходу.
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_checkouts_total",
		Help: "Checkout attempts by payment method and outcome.",
	}, []string{"method", "outcome"})

	// WebhookEventsTotal количество обработанных уведомлений по виду и исходу.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Webhook notifications by kind and outcome.",
	}, []string{"kind", "outcome"})

	// SweepExpiredTotal количество подписок, отмененных проходом истечений.
	SweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_sweep_expired_total",
		Help: "Subscriptions expired by the daily sweep.",
	})

	// SweepWarningsTotal количество отправленных предупреждений по порогу.
	SweepWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_sweep_warnings_total",
		Help: "Renewal warnings sent by the daily sweep, by threshold.",
	}, []string{"threshold"})
)
