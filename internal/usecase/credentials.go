package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/core/port"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/security"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

// CredentialValidator checks email+password pairs against stored records.
type CredentialValidator struct {
	users port.UserRepository
}

// NewCredentialValidator constructs a CredentialValidator.
func NewCredentialValidator(users port.UserRepository) *CredentialValidator {
	return &CredentialValidator{users: users}
}

// Validate returns the sanitized user when the credentials match, or nil when
// the email is unknown or the password is wrong. The two cases are not
// distinguishable by the caller. Validate has no side effects.
func (v *CredentialValidator) Validate(ctx context.Context, email, password string) (*domain.SafeUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil
	}

	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifySecret(password, user.PasswordHash) {
		return nil, nil
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}
