package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// PublishMessage сериализует сообщение в JSON и публикует его с персистентной
// доставкой: задания на уведомления должны переживать рестарт брокера.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	}
	if err := ch.Publish(exchange, routingkey, false, false, publishing); err != nil {
		return fmt.Errorf("%s: publish to %s/%s: %w", op, exchange, routingkey, err)
	}
	return nil
}
