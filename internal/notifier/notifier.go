// Package notifier реализует диспетчер уведомлений: задания на письма и
// push публикуются в RabbitMQ и доставляются отдельным воркером. Отправка
// best-effort — сбой публикации логируется вызывающей стороной и никогда
// не влияет на исход основного перехода состояния.
package notifier

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/rotaplus/driver-billing/internal/models"
	"github.com/rotaplus/driver-billing/internal/rabbitmq"
)

// Dispatcher публикует задания на уведомления в обменник notifications.
type Dispatcher struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый Dispatcher.
func New(ch *amqp.Channel, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		ch:  ch,
		log: log,
	}
}

// SendEmail ставит письмо в очередь доставки.
func (d *Dispatcher) SendEmail(_ context.Context, kind, to string, data map[string]string) error {
	return rabbitmq.PublishMessage(d.ch, rabbitmq.NotificationExchange, rabbitmq.EmailRoutingKey, models.EmailJob{
		Kind: kind,
		To:   to,
		Data: data,
	})
}

// SendPush ставит push-уведомление в очередь доставки.
func (d *Dispatcher) SendPush(_ context.Context, userUID, title, body string, data map[string]string) error {
	return rabbitmq.PublishMessage(d.ch, rabbitmq.NotificationExchange, rabbitmq.PushRoutingKey, models.PushJob{
		UserUID: userUID,
		Title:   title,
		Body:    body,
		Data:    data,
	})
}
