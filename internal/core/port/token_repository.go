package port

import (
	"context"
	"time"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// TokenRepository manages two-factor verification token records.
type TokenRepository interface {
	CreateVerification(ctx context.Context, token domain.VerificationToken) error
	// MostRecentByEmail returns the latest record by creation time for the
	// email. This is the authoritative lookup: issuing a new code does not
	// delete older rows, it supersedes them.
	MostRecentByEmail(ctx context.Context, email string) (*domain.VerificationToken, error)
	// IncrementAttempts bumps the failed-attempt counter and returns the new
	// value. The increment happens in the store so concurrent failures are
	// not lost.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkValidated flips the single-use flag. It fails with
	// repository.ErrNotFound if the record was already validated or removed.
	MarkValidated(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// DeleteExpiredBefore purges records created before the cutoff and
	// reports how many rows were removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}
