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
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/logger"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

// notifyTimeout bounds the detached login-notification dispatch so it cannot
// hold resources after the request completes.
const notifyTimeout = 10 * time.Second

// LoginResult is the outcome of a login attempt. When RequiresTwoFactor is
// set, Session is nil and the caller must complete the code exchange through
// VerifyAndLogin.
type LoginResult struct {
	RequiresTwoFactor bool
	User              domain.SafeUser
	Session           *domain.Session
}

// AuthService orchestrates the login sequence: credential check, the
// two-factor branch, session establishment, and the post-login side effects.
type AuthService struct {
	creds     *CredentialValidator
	users     port.UserRepository
	twoFactor *TwoFactorService
	sessions  port.SessionStore
	mailer    port.Mailer
	events    port.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	creds *CredentialValidator,
	users port.UserRepository,
	twoFactor *TwoFactorService,
	sessions port.SessionStore,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		creds:     creds,
		users:     users,
		twoFactor: twoFactor,
		sessions:  sessions,
		mailer:    mailer,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login validates the credentials and either completes the login or opens a
// two-factor challenge. Accounts without 2FA get a session immediately;
// accounts with 2FA get a verification code and no session. Bad email and bad
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.creds.Validate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("validate credentials: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if err := s.twoFactor.IssueAndSend(ctx, user.Email); err != nil {
			return nil, err
		}
		return &LoginResult{RequiresTwoFactor: true, User: *user}, nil
	}

	return s.completeLogin(ctx, *user, false)
}

// VerifyAndLogin finishes a two-factor login by checking the submitted code.
// The password was already proven when the challenge was opened; the code
// exchange identifies the account by email alone. A code for an unknown
// account or one without 2FA is rejected before any comparison.
func (s *AuthService) VerifyAndLogin(ctx context.Context, email, code string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	if err := s.twoFactor.Verify(ctx, user.Email, code); err != nil {
		return nil, err
	}

	return s.completeLogin(ctx, user.Sanitize(), true)
}

// Logout revokes the session. Revoking an unknown session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Session resolves a session ID to its record.
func (s *AuthService) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// completeLogin establishes the session and fires the post-login side
// effects. Session establishment is awaited: a login is only successful once
// the session exists. The notification email is fire-and-forget.
func (s *AuthService) completeLogin(ctx context.Context, user domain.SafeUser, twoFactor bool) (*LoginResult, error) {
	session, err := s.sessions.Establish(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionEstablishment, err)
	}

	s.notifyLogin(user.Email)

	if err := s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
		EventID:    uuid.NewString(),
		UserID:     user.ID,
		Email:      user.Email,
		SessionID:  session.ID,
		TwoFactor:  twoFactor,
		LoggedInAt: s.now(),
	}); err != nil {
		s.log.Warn("publish login event failed", zap.Error(err))
	}

	s.log.Info("login succeeded",
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("user_id", user.ID),
		zap.Bool("two_factor", twoFactor),
	)
	return &LoginResult{User: user, Session: session}, nil
}

// notifyLogin dispatches the login notification without blocking the login
// and without propagating failures. The goroutine carries its own deadline
// since the request context ends when the handler returns.
func (s *AuthService) notifyLogin(email string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.mailer.SendLoginNotification(ctx, email); err != nil {
			s.log.Warn("login notification dispatch failed",
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(err),
			)
		}
	}()
}
