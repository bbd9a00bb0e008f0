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

// TwoFactorService issues, resends, and verifies time-boxed login codes.
// Per-email sequencing is delegated to the Locker so issuance decisions are
// made against a stable view of the most recent token.
type TwoFactorService struct {
	cfg    config.TwoFactorSettings
	tokens port.TokenRepository
	mailer port.Mailer
	locks  port.Locker
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewTwoFactorService constructs a TwoFactorService.
func NewTwoFactorService(
	cfg config.TwoFactorSettings,
	tokens port.TokenRepository,
	mailer port.Mailer,
	locks port.Locker,
	events port.EventPublisher,
	log *zap.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		cfg:    cfg,
		tokens: tokens,
		mailer: mailer,
		locks:  locks,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests use it to step through TTL and
// cooldown boundaries.
func (s *TwoFactorService) WithClock(now func() time.Time) *TwoFactorService {
	s.now = now
	return s
}

// IssueAndSend generates a fresh verification code for the email, persists it,
// and dispatches it. When the most recent code for the email was sent less
// than the cooldown ago, no new code is issued and a *CooldownActiveError is
// returned. The record is persisted before dispatch so a delivery failure
// never leaves an unverifiable ghost code: the caller may retry after the
// cooldown and the persisted record stays authoritative until superseded.
func (s *TwoFactorService) IssueAndSend(ctx context.Context, email string) error {
	release, err := s.locks.Acquire(ctx, email)
	if err != nil {
		return fmt.Errorf("acquire issuance lock: %w", err)
	}
	defer release()

	now := s.now()

	latest, err := s.tokens.MostRecentByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load latest verification token: %w", err)
	}
	if latest != nil {
		if wait := s.cfg.Cooldown - now.Sub(latest.LastSentAt); wait > 0 {
			return &CooldownActiveError{RetryAfter: wait}
		}
	}

	code, err := security.GenerateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	hash, err := security.HashSecret(code)
	if err != nil {
		return fmt.Errorf("hash verification code: %w", err)
	}

	token := domain.VerificationToken{
		ID:         uuid.NewString(),
		Email:      email,
		TokenHash:  hash,
		CreatedAt:  now,
		LastSentAt: now,
	}
	if err := s.tokens.CreateVerification(ctx, token); err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}

	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		// The persisted code remains valid; the caller can ask for a resend
		// once the cooldown elapses.
		s.log.Warn("verification code dispatch failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return fmt.Errorf("send verification code: %w", err)
	}

	if err := s.events.PublishTwoFactorChallenged(ctx, domain.TwoFactorChallengedEvent{
		EventID:   uuid.NewString(),
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
		Resend:    latest != nil,
	}); err != nil {
		s.log.Warn("publish two-factor challenge event failed", zap.Error(err))
	}

	s.log.Info("verification code issued",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token_id", token.ID),
	)
	return nil
}

// Resend issues a fresh code subject to the same cooldown as the first
// issuance. A resend supersedes all earlier codes for the email.
func (s *TwoFactorService) Resend(ctx context.Context, email string) error {
	return s.IssueAndSend(ctx, email)
}

// Verify checks a submitted code against the most recent one issued for the
// email. Checks run in a fixed order so each rejection has a single stable
// cause: absent, expired, already validated, attempt budget exhausted, then
// the comparison itself. A failed comparison burns one attempt; a successful
// one marks the code validated so it can never be accepted again.
func (s *TwoFactorService) Verify(ctx context.Context, email, code string) error {
	release, err := s.locks.Acquire(ctx, email)
	if err != nil {
		return fmt.Errorf("acquire verification lock: %w", err)
	}
	defer release()

	token, err := s.tokens.MostRecentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("load latest verification token: %w", err)
	}

	now := s.now()

	if now.Sub(token.CreatedAt) > s.cfg.TTL {
		if err := s.tokens.Delete(ctx, token.ID); err != nil {
			s.log.Warn("delete expired verification token failed",
				zap.String("token_id", token.ID),
				zap.Error(err),
			)
		}
		return ErrCodeExpired
	}

	if token.Validated {
		return ErrCodeAlreadyValidated
	}

	if token.Attempts >= s.cfg.MaxAttempts {
		return ErrTooManyAttempts
	}

	if !security.VerifySecret(code, token.TokenHash) {
		attempts, err := s.tokens.IncrementAttempts(ctx, token.ID)
		if err != nil {
			s.log.Warn("record failed verification attempt",
				zap.String("token_id", token.ID),
				zap.Error(err),
			)
		} else {
			s.log.Info("verification code rejected",
				zap.String("email", logger.MaskEmail(email)),
				zap.Int("attempts", attempts),
			)
		}
		return ErrCodeInvalid
	}

	if err := s.tokens.MarkValidated(ctx, token.ID); err != nil {
		return fmt.Errorf("mark verification token validated: %w", err)
	}

	s.log.Info("verification code accepted",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("token_id", token.ID),
	)
	return nil
}
