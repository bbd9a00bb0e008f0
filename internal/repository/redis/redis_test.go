package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestSessionStore_EstablishGetRevoke(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSessionStore(client, "auth:session", time.Hour)

	ctx := context.Background()
	user := domain.SafeUser{ID: "user-1", Email: "alice@example.com"}

	session, err := store.Establish(ctx, user)
	if err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}
	if session.ID == "" || session.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != time.Hour {
		t.Fatalf("expected 1h lifetime, got %v", got)
	}

	loaded, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if loaded.Email != "alice@example.com" {
		t.Fatalf("unexpected loaded session: %+v", loaded)
	}

	if err := store.Revoke(ctx, session.ID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestSessionStore_ExpiresWithTTL(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "auth:session", time.Minute)

	ctx := context.Background()
	session, err := store.Establish(ctx, domain.SafeUser{ID: "user-1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("Establish returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestEmailLocker_SerializesHolders(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewEmailLocker(client, "auth:lock", zap.NewNop())

	ctx := context.Background()

	release, err := locker.Acquire(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	// A second holder only gets the lock once the first releases it.
	acquired := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, err := locker.Acquire(ctx, "alice@example.com")
		if err != nil {
			t.Errorf("second Acquire returned error: %v", err)
			return
		}
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while it was held")
	case <-time.After(100 * time.Millisecond):
	}

	release()
	wg.Wait()

	select {
	case <-acquired:
	default:
		t.Fatal("second holder never acquired the lock after release")
	}
}

func TestEmailLocker_IndependentKeys(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewEmailLocker(client, "auth:lock", zap.NewNop())

	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Acquire alice: %v", err)
	}
	defer releaseA()

	// A different email is a different lock.
	releaseB, err := locker.Acquire(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Acquire bob: %v", err)
	}
	releaseB()
}

func TestRateLimitStore_SlidingWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewRateLimitStore(client, SlidingWindowConfig{KeyPrefix: "auth:ratelimit", TTL: time.Hour})

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	for _, offset := range []time.Duration{0, 10 * time.Second, 70 * time.Second} {
		if err := store.RecordAttempt(ctx, "203.0.113.7", base.Add(offset)); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	reference := base.Add(70 * time.Second)
	count, err := store.CountAttempts(ctx, "203.0.113.7", window, reference)
	if err != nil {
		t.Fatalf("CountAttempts: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 attempts inside the window, got %d", count)
	}

	oldest, ok, err := store.OldestAttempt(ctx, "203.0.113.7", window, reference)
	if err != nil {
		t.Fatalf("OldestAttempt: %v", err)
	}
	if !ok || !oldest.Equal(base.Add(10*time.Second)) {
		t.Fatalf("unexpected oldest attempt: %v ok=%v", oldest, ok)
	}

	if err := store.TrimWindow(ctx, "203.0.113.7", window, reference); err != nil {
		t.Fatalf("TrimWindow: %v", err)
	}
	count, err = store.CountAttempts(ctx, "203.0.113.7", window, reference)
	if err != nil {
		t.Fatalf("CountAttempts after trim: %v", err)
	}
	if count != 2 {
		t.Fatalf("trim must keep in-window attempts, got %d", count)
	}
}
