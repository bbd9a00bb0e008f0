package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        event.Email,
		"session_id":   event.SessionID,
		"two_factor":   event.TwoFactor,
		"logged_in_at": event.LoggedInAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.login.succeeded", event.UserID, event.LoggedInAt, payload)
	return nil
}

// PublishTwoFactorChallenged logs auth.two_factor.challenged events.
func (p *StubPublisher) PublishTwoFactorChallenged(_ context.Context, event domain.TwoFactorChallengedEvent) error {
	payload := map[string]any{
		"email":      event.Email,
		"issued_at":  event.IssuedAt,
		"expires_at": event.ExpiresAt,
		"resend":     event.Resend,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.two_factor.challenged", "", event.IssuedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        event.Email,
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      event.Email,
		"changed_at": event.ChangedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}
