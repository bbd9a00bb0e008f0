package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

const defaultSessionPrefix = "auth:session"

// sessionRecord is the stored JSON shape of a session.
type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps opaque server-side session records in Redis. The record
// TTL matches the session TTL so expired sessions vanish on their own.
type SessionStore struct {
	client *red.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionStore constructs a SessionStore with the provided key prefix and TTL.
func NewSessionStore(client *red.Client, keyPrefix string, ttl time.Duration) *SessionStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}

	return &SessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

// Establish creates a session record for the user and returns it. The session
// exists only once the write is acknowledged.
func (s *SessionStore) Establish(ctx context.Context, user domain.SafeUser) (*domain.Session, error) {
	now := s.now()
	record := sessionRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(record.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set session: %w", err)
	}

	return &domain.Session{
		ID:        record.ID,
		UserID:    record.UserID,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Get resolves a session ID to its record. A missing or expired session
// reports repository.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &domain.Session{
		ID:        record.ID,
		UserID:    record.UserID,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Revoke removes a session record. Revoking an unknown session is a no-op.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}
