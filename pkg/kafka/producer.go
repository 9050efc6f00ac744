package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// SyncSender is the part of sarama.SyncProducer the producer needs.
type SyncSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type Producer struct {
	sender SyncSender
	topic  string
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	log.Info("connected to kafka", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return NewProducerWithSender(producer, topic, log), nil
}

func NewProducerWithSender(sender SyncSender, topic string, log *zap.Logger) *Producer {
	return &Producer{sender: sender, topic: topic, log: log}
}

// Publish sends the payload to the configured topic. The routing key travels
// as the event-type header; keyed payloads pick the partition key.
func (p *Producer) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := routingKey
	if k, ok := payload.(interface{ EventKey() string }); ok && k.EventKey() != "" {
		key = k.EventKey()
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(routingKey)},
		},
	}

	partition, offset, err := p.sender.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", p.topic, err)
	}

	p.log.Debug("published message",
		zap.String("topic", p.topic),
		zap.String("event_type", routingKey),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *Producer) Close() error {
	if p.sender == nil {
		return nil
	}
	return p.sender.Close()
}
