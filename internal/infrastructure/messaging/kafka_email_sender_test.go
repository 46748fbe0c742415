package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/objections/backend/internal/application/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testContent() submission.EmailContent {
	return submission.EmailContent{
		OriginatingAppID: "strike-off-objections-api",
		CreatedAt:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		MessageType:      "strike_off_objection_submitted_customer",
		MessageID:        "msg-1",
		EmailAddress:     "jane@example.com",
		Data:             map[string]any{"company_number": "12345678"},
	}
}

func TestKafkaEmailSender_Send(t *testing.T) {
	t.Run("publishes json to topic", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewProducerConfig())
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var decoded map[string]any
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			if decoded["message_id"] != "msg-1" || decoded["email_address"] != "jane@example.com" {
				return errors.New("unexpected payload")
			}
			return nil
		})

		sender := NewKafkaEmailSenderWithProducer(producer, WithTopic("email-send-test"))
		require.NoError(t, sender.Send(context.Background(), testContent()))
		assert.Equal(t, "email-send-test", sender.topic)
		require.NoError(t, sender.Close())
	})

	t.Run("producer failure is returned", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewProducerConfig())
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		sender := NewKafkaEmailSenderWithProducer(producer)
		err := sender.Send(context.Background(), testContent())
		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		require.NoError(t, sender.Close())
	})

	t.Run("cancelled context skips publish", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewProducerConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewKafkaEmailSenderWithProducer(producer).Send(ctx, testContent())
		assert.ErrorIs(t, err, context.Canceled)
		require.NoError(t, producer.Close())
	})
}

func TestNewKafkaEmailSender_NoBrokers(t *testing.T) {
	_, err := NewKafkaEmailSender(nil)
	assert.Error(t, err)
}

func TestNewProducerConfig(t *testing.T) {
	cfg := NewProducerConfig()
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
}

func TestLogEmailSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewLogEmailSender(zap.New(core))

	require.NoError(t, sender.Send(context.Background(), testContent()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "msg-1", entry.ContextMap()["message_id"])
	assert.Equal(t, "jane@example.com", entry.ContextMap()["email_address"])
}
