package usecase

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/infra/security"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

func TestMain(m *testing.M) {
	// Minimum bcrypt cost keeps the suite fast; the work factor is not under
	// test here.
	if err := security.ConfigureBcrypt(bcrypt.MinCost); err != nil {
		panic(err)
	}
	code := m.Run()
	_ = security.ConfigureBcrypt(security.DefaultBcryptCost)
	os.Exit(code)
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := security.HashSecret(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return hash
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// stubUserRepo is an in-memory UserRepository keyed by email.
type stubUserRepo struct {
	users map[string]*domain.User

	saveTokenErr  error
	applyErr      error
	applyCalls    int
	lastApplyHash string
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) SaveResetToken(_ context.Context, userID string, token domain.ResetToken) error {
	if r.saveTokenErr != nil {
		return r.saveTokenErr
	}
	for _, u := range r.users {
		if u.ID == userID {
			t := token
			u.ResetToken = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubUserRepo) ApplyPasswordChange(_ context.Context, userID, passwordHash string, changedAt time.Time) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	for _, u := range r.users {
		if u.ID == userID {
			r.applyCalls++
			r.lastApplyHash = passwordHash
			u.PasswordHash = passwordHash
			at := changedAt
			u.LastPasswordChange = &at
			if u.ResetToken != nil {
				u.ResetToken.Used = true
				u.ResetToken.Hash = ""
				u.ResetToken.Purpose = ""
				u.ResetToken.ExpiresAt = time.Time{}
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

// stubTokenRepo is an in-memory TokenRepository ordered by creation time.
type stubTokenRepo struct {
	tokens []*domain.VerificationToken

	createErr    error
	validateErr  error
	deleted      []string
	purgedBefore []time.Time
}

func (r *stubTokenRepo) CreateVerification(_ context.Context, token domain.VerificationToken) error {
	if r.createErr != nil {
		return r.createErr
	}
	t := token
	r.tokens = append(r.tokens, &t)
	return nil
}

func (r *stubTokenRepo) MostRecentByEmail(_ context.Context, email string) (*domain.VerificationToken, error) {
	var latest *domain.VerificationToken
	for _, t := range r.tokens {
		if t.Email != email {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (r *stubTokenRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	for _, t := range r.tokens {
		if t.ID == id {
			t.Attempts++
			return t.Attempts, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (r *stubTokenRepo) MarkValidated(_ context.Context, id string) error {
	if r.validateErr != nil {
		return r.validateErr
	}
	for _, t := range r.tokens {
		if t.ID == id && !t.Validated {
			t.Validated = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubTokenRepo) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	for i, t := range r.tokens {
		if t.ID == id {
			r.tokens = append(r.tokens[:i], r.tokens[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.purgedBefore = append(r.purgedBefore, cutoff)
	kept := r.tokens[:0]
	removed := 0
	for _, t := range r.tokens {
		if t.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return removed, nil
}

// stubMailer records dispatched mail and can fail on demand.
type stubMailer struct {
	loginNotices []string
	codes        []string
	resetTokens  []string

	codeErr  error
	resetErr error

	notified chan string
}

func (m *stubMailer) SendLoginNotification(_ context.Context, email string) error {
	m.loginNotices = append(m.loginNotices, email)
	if m.notified != nil {
		m.notified <- email
	}
	return nil
}

func (m *stubMailer) SendVerificationCode(_ context.Context, _ string, code string) error {
	if m.codeErr != nil {
		return m.codeErr
	}
	m.codes = append(m.codes, code)
	return nil
}

func (m *stubMailer) SendResetToken(_ context.Context, _ string, token string) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *stubMailer) lastCode(t *testing.T) string {
	t.Helper()
	if len(m.codes) == 0 {
		t.Fatal("no verification code was sent")
	}
	return m.codes[len(m.codes)-1]
}

func (m *stubMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	if len(m.resetTokens) == 0 {
		t.Fatal("no reset token was sent")
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

// stubLocker hands out the lock immediately and counts acquisitions.
type stubLocker struct {
	acquired []string
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.acquired = append(l.acquired, key)
	return func() {}, nil
}

// stubEvents records published events.
type stubEvents struct {
	logins     []domain.LoginSucceededEvent
	challenges []domain.TwoFactorChallengedEvent
	resets     []domain.PasswordResetRequestedEvent
	changes    []domain.PasswordChangedEvent
}

func (e *stubEvents) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	e.logins = append(e.logins, event)
	return nil
}

func (e *stubEvents) PublishTwoFactorChallenged(_ context.Context, event domain.TwoFactorChallengedEvent) error {
	e.challenges = append(e.challenges, event)
	return nil
}

func (e *stubEvents) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	e.resets = append(e.resets, event)
	return nil
}

func (e *stubEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	e.changes = append(e.changes, event)
	return nil
}

// stubSessions issues sequential session IDs.
type stubSessions struct {
	established []domain.SafeUser
	revoked     []string
	failWith    error
}

func (s *stubSessions) Establish(_ context.Context, user domain.SafeUser) (*domain.Session, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.established = append(s.established, user)
	return &domain.Session{
		ID:     "session-" + user.ID,
		UserID: user.ID,
		Email:  user.Email,
	}, nil
}

func (s *stubSessions) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	for _, u := range s.established {
		if "session-"+u.ID == sessionID {
			return &domain.Session{ID: sessionID, UserID: u.ID, Email: u.Email}, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubSessions) Revoke(_ context.Context, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	return nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
