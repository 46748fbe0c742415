// Package messaging delivers submission emails to the email pipeline.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/objections/backend/internal/application/submission"
	"go.uber.org/zap"
)

// DefaultEmailTopic is the topic consumed by the email service
const DefaultEmailTopic = "email-send"

// KafkaEmailSender publishes EmailContent as JSON onto a Kafka topic
type KafkaEmailSender struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// Opt sets an option on a KafkaEmailSender.
type Opt func(*KafkaEmailSender)

// WithLogger sets a custom logger on a KafkaEmailSender.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *KafkaEmailSender) {
		s.logger = logger
	}
}

// WithTopic overrides DefaultEmailTopic.
func WithTopic(topic string) Opt {
	return func(s *KafkaEmailSender) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// NewKafkaEmailSender connects a synchronous producer to the brokers.
func NewKafkaEmailSender(brokers []string, opts ...Opt) (*KafkaEmailSender, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaEmailSenderWithProducer(producer, opts...), nil
}

// NewKafkaEmailSenderWithProducer wraps an existing producer.
func NewKafkaEmailSenderWithProducer(producer sarama.SyncProducer, opts ...Opt) *KafkaEmailSender {
	s := &KafkaEmailSender{
		producer: producer,
		topic:    DefaultEmailTopic,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewProducerConfig returns the producer settings used for email delivery
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

// Send implements submission.EmailSender.
func (s *KafkaEmailSender) Send(ctx context.Context, content submission.EmailContent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode email content: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(content.MessageID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish email %s: %w", content.MessageType, err)
	}

	s.logger.Debug("email published",
		zap.String("message_id", content.MessageID),
		zap.String("message_type", content.MessageType),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close shuts down the producer
func (s *KafkaEmailSender) Close() error {
	return s.producer.Close()
}

// LogEmailSender logs emails instead of delivering them. Used when Kafka is disabled.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender creates a LogEmailSender
func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

// Send implements submission.EmailSender.
func (s *LogEmailSender) Send(_ context.Context, content submission.EmailContent) error {
	s.logger.Info("email not delivered, kafka disabled",
		zap.String("message_id", content.MessageID),
		zap.String("message_type", content.MessageType),
		zap.String("email_address", content.EmailAddress),
	)
	return nil
}

var (
	_ submission.EmailSender = (*KafkaEmailSender)(nil)
	_ submission.EmailSender = (*LogEmailSender)(nil)
)
