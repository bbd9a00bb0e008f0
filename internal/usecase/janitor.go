package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/port"
)

// Janitor purges verification token rows whose TTL has long passed. Expired
// rows are inert either way; the sweep only keeps the table from growing
// without bound.
type Janitor struct {
	tokens   port.TokenRepository
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewJanitor constructs a Janitor sweeping at the given interval. Tokens
// created more than ttl before a sweep are removed.
func NewJanitor(tokens port.TokenRepository, ttl, interval time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{
		tokens:   tokens,
		ttl:      ttl,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (j *Janitor) WithClock(now func() time.Time) *Janitor {
	j.now = now
	return j
}

// Run sweeps until the context ends. Intended to be launched as a goroutine
// at startup.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs a single purge pass.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := j.now().Add(-j.ttl)

	removed, err := j.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		j.log.Warn("verification token sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		j.log.Info("purged expired verification tokens", zap.Int("removed", removed))
	}
}
