// Package kafka publishes trade assessments to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/newthinker/momentum/internal/core"
	"go.uber.org/zap"
)

// Kafka implements the Notifier interface on a sarama SyncProducer.
// Messages are keyed by ticker so one ticker's alerts stay ordered.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducerConfig returns the producer settings the notifier needs
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Timeout = 10 * time.Second
	config.Version = sarama.V2_8_0_0
	return config
}

// New dials the brokers and returns a notifier for topic
func New(brokers []string, topic string, logger *zap.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are required")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create producer: %w", err)
	}
	return NewWithProducer(producer, topic, logger)
}

// NewWithProducer wraps an existing producer
func NewWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) (*Kafka, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kafka{producer: producer, topic: topic, logger: logger}, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Send(ctx context.Context, a core.TradeAssessment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := k.message(a)
	if err != nil {
		return err
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: send failed: %w", err)
	}
	k.logger.Debug("assessment published",
		zap.String("ticker", a.Ticker),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (k *Kafka) SendBatch(ctx context.Context, as []core.TradeAssessment) error {
	if len(as) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(as))
	for _, a := range as {
		msg, err := k.message(a)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := k.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("kafka: batch send failed: %w", err)
	}
	return nil
}

// Close flushes and closes the producer
func (k *Kafka) Close() error {
	return k.producer.Close()
}

func (k *Kafka) message(a core.TradeAssessment) (*sarama.ProducerMessage, error) {
	value, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to marshal assessment: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(a.Ticker),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("signal"), Value: []byte(a.Signal)},
		},
	}, nil
}
