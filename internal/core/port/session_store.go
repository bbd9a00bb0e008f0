package port

import (
	"context"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// SessionStore performs the session establishment handshake. Establish must
// be awaited before a login is reported successful.
type SessionStore interface {
	Establish(ctx context.Context, user domain.SafeUser) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}
