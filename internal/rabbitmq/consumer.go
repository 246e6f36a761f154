package rabbitmq

import (
	"context"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// Сколько сообщений одной очереди обрабатывается одновременно.
const maxInFlight = 10

// ConsumerMessage подписывает обработчик на очередь и возвращает управление
// сразу: доставка идет в фоне до отмены контекста. Ошибка обработчика
// возвращает сообщение в очередь повторной доставкой.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"

	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume %s: %w", op, queueName, err)
	}

	go consumeLoop(ctx, queueName, delivery, handler)
	return nil
}

func consumeLoop(ctx context.Context, queueName string, delivery <-chan amqp.Delivery, handler func([]byte) error) {
	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleDelivery(queueName, d, handler)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func handleDelivery(queueName string, d amqp.Delivery, handler func([]byte) error) {
	if err := handler(d.Body); err != nil {
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Printf("queue %s: failed to nack message: %v", queueName, nackErr)
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Printf("queue %s: failed to ack message: %v", queueName, ackErr)
	}
}
