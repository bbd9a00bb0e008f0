package port

import (
	"context"
	"time"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. The auth core owns
// only the credential and reset-token fields; account lifecycle belongs to
// the user-management service.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// SaveResetToken replaces the reset sub-record on the user row.
	SaveResetToken(ctx context.Context, userID string, token domain.ResetToken) error
	// ApplyPasswordChange stores the new hash, marks the reset token used,
	// clears its hash/purpose/expiry, and stamps last_password_change in a
	// single statement.
	ApplyPasswordChange(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error
}
