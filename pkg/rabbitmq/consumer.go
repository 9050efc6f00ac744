package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const prefetch = 16

// Consumer reads one durable queue. Deliveries nacked without requeue are
// dead-lettered to "<queue>.dead" so dropped messages can still be inspected.
type Consumer struct {
	*session
	queue string
	log   *zap.Logger
}

func NewConsumer(url, exchange, queue string, bindings []string, log *zap.Logger) (*Consumer, error) {
	s, err := openSession(url, exchange)
	if err != nil {
		return nil, err
	}
	if err := declareQueue(s.channel, exchange, queue, bindings); err != nil {
		s.Close()
		return nil, err
	}
	return &Consumer{session: s, queue: queue, log: log}, nil
}

func declareQueue(ch *amqp.Channel, exchange, queue string, bindings []string) error {
	dlx := queue + ".dlx"
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dead-letter exchange: %w", err)
	}
	dead, err := ch.QueueDeclare(queue+".dead", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dead.Name, "", dlx, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dead-letter bind: %w", err)
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{"x-dead-letter-exchange": dlx})
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	for _, key := range bindings {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq queue bind %s: %w", key, err)
		}
	}
	return nil
}

// Consume starts delivery with manual acks; the caller acks once the change is stored.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}
	c.log.Info("consuming from queue", zap.String("queue", c.queue))
	return msgs, nil
}
