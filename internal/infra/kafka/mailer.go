package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/logger"
)

const (
	mailLoginNotification = "email.login_notification"
	mailVerificationCode  = "email.verification_code"
	mailResetToken        = "email.reset_token"
)

// mailMessage is the payload handed to the notification service.
type mailMessage struct {
	MessageID string         `json:"message_id"`
	Kind      string         `json:"kind"`
	Recipient string         `json:"recipient"`
	QueuedAt  time.Time      `json:"queued_at"`
	Data      map[string]any `json:"data,omitempty"`
}

// Mailer implements port.Mailer by handing mail to the notification service
// over Kafka. Publishes are synchronous: reset-token dispatch must fail
// loudly, so the broker ack is awaited before Send returns.
type Mailer struct {
	producer sarama.SyncProducer
	prefix   string
	logger   *zap.Logger
}

// NewMailer constructs a Kafka-backed mailer using its own sync producer.
func NewMailer(cfg config.KafkaSettings, log *zap.Logger) (*Mailer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka sync producer: %w", err)
	}

	return &Mailer{
		producer: producer,
		prefix:   cfg.TopicPrefix,
		logger:   log,
	}, nil
}

// SendLoginNotification queues a login notice for the recipient.
func (m *Mailer) SendLoginNotification(ctx context.Context, email string) error {
	return m.send(ctx, mailLoginNotification, email, nil)
}

// SendVerificationCode queues a two-factor code for the recipient.
func (m *Mailer) SendVerificationCode(ctx context.Context, email, code string) error {
	return m.send(ctx, mailVerificationCode, email, map[string]any{"code": code})
}

// SendResetToken queues a password reset token for the recipient.
func (m *Mailer) SendResetToken(ctx context.Context, email, token string) error {
	return m.send(ctx, mailResetToken, email, map[string]any{"token": token})
}

// Close releases the underlying producer.
func (m *Mailer) Close() error {
	if err := m.producer.Close(); err != nil {
		return fmt.Errorf("close kafka sync producer: %w", err)
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, kind, email string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mailMessage{
		MessageID: uuid.NewString(),
		Kind:      kind,
		Recipient: email,
		QueuedAt:  time.Now().UTC(),
		Data:      data,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	partition, offset, err := m.producer.SendMessage(&sarama.ProducerMessage{
		Topic: m.topic(kind),
		Key:   sarama.StringEncoder(email),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send %s mail: %w", kind, err)
	}

	m.logger.Debug("mail queued",
		zap.String("kind", kind),
		zap.String("recipient", logger.MaskEmail(email)),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (m *Mailer) topic(kind string) string {
	if m.prefix == "" {
		return kind
	}

	prefix := fmt.Sprintf("%s.", m.prefix)
	if strings.HasPrefix(kind, prefix) {
		return kind
	}

	return fmt.Sprintf("%s%s", prefix, kind)
}
