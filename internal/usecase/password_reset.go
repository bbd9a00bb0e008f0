package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/core/port"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/logger"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/security"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

// PasswordResetService issues single-use reset tokens and applies password
// changes. Each user carries at most one reset sub-record; issuing a new
// token overwrites the old one.
type PasswordResetService struct {
	cfg    config.PasswordResetSettings
	users  port.UserRepository
	mailer port.Mailer
	locks  port.Locker
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	cfg config.PasswordResetSettings,
	users port.UserRepository,
	mailer port.Mailer,
	locks port.Locker,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		cfg:    cfg,
		users:  users,
		mailer: mailer,
		locks:  locks,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *PasswordResetService) WithClock(now func() time.Time) *PasswordResetService {
	s.now = now
	return s
}

// RequestReset mints a reset token for the account, stores its hash on the
// user row, and dispatches the plaintext token. The per-user rate limit is
// measured from the previous token's issuance time whether or not that token
// was consumed. Unlike verification codes, a dispatch failure fails the whole
// request: the caller must see an error rather than wait for mail that will
// never arrive.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	release, err := s.locks.Acquire(ctx, email)
	if err != nil {
		return fmt.Errorf("acquire reset lock: %w", err)
	}
	defer release()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	now := s.now()

	if prev := user.ResetToken; prev != nil {
		if wait := s.cfg.RateLimitWindow - now.Sub(prev.IssuedAt); wait > 0 {
			return &ResetRateLimitedError{RetryAfter: wait}
		}
	}

	token, err := security.GenerateSecureToken(s.cfg.TokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	hash, err := security.HashSecret(token)
	if err != nil {
		return fmt.Errorf("hash reset token: %w", err)
	}

	record := domain.ResetToken{
		Hash:      hash,
		Purpose:   domain.ResetPurposePassword,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
	}
	if err := s.users.SaveResetToken(ctx, user.ID, record); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	if err := s.mailer.SendResetToken(ctx, email, token); err != nil {
		return fmt.Errorf("send reset token: %w", err)
	}

	if err := s.events.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{
		EventID:     uuid.NewString(),
		UserID:      user.ID,
		Email:       email,
		RequestedAt: now,
		ExpiresAt:   record.ExpiresAt,
	}); err != nil {
		s.log.Warn("publish reset requested event failed", zap.Error(err))
	}

	s.log.Info("password reset requested",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("user_id", user.ID),
	)
	return nil
}

// ResetPassword validates a submitted token and applies the new password.
// Checks run in a fixed order so each rejection has a single stable cause:
// unknown account, no pending request, wrong purpose, already used, token
// mismatch, superseded by a later password change, expired, confirmation
// mismatch, and finally the length bounds. Nothing is mutated unless every
// check passes; the hash swap, the used flag, and the token teardown commit
// as one repository call.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword, confirmPassword string) error {
	release, err := s.locks.Acquire(ctx, email)
	if err != nil {
		return fmt.Errorf("acquire reset lock: %w", err)
	}
	defer release()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	stored := user.ResetToken
	if stored == nil || stored.Hash == "" {
		return ErrNoValidRequest
	}
	if stored.Purpose != domain.ResetPurposePassword {
		return ErrWrongPurpose
	}
	if stored.Used {
		return ErrTokenAlreadyUsed
	}
	if !security.VerifySecret(token, stored.Hash) {
		return ErrInvalidToken
	}
	if user.LastPasswordChange != nil && !user.LastPasswordChange.Before(stored.IssuedAt) {
		return ErrTokenSuperseded
	}

	now := s.now()
	if now.After(stored.ExpiresAt) {
		return ErrTokenExpired
	}

	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if n := len(newPassword); n < s.cfg.MinPasswordLen || n > s.cfg.MaxPasswordLen {
		return ErrPasswordLength
	}

	hash, err := security.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.users.ApplyPasswordChange(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("apply password change: %w", err)
	}

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Email:     email,
		ChangedAt: now,
	}); err != nil {
		s.log.Warn("publish password changed event failed", zap.Error(err))
	}

	s.log.Info("password reset completed",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("user_id", user.ID),
	)
	return nil
}
