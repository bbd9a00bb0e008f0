package port

import (
	"context"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// EventPublisher emits auth lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishTwoFactorChallenged(ctx context.Context, event domain.TwoFactorChallengedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
