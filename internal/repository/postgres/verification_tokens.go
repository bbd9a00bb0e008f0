package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

// TokenRepository implements port.TokenRepository on the append-only
// auth.verification_tokens table.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	repo := &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the supplied transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// CreateVerification inserts a new verification token record.
func (r *TokenRepository) CreateVerification(ctx context.Context, token domain.VerificationToken) error {
	stmt, args, err := r.builder.Insert("auth.verification_tokens").
		Columns(
			"id",
			"email",
			"token_hash",
			"attempts",
			"validated",
			"created_at",
			"last_sent_at",
		).
		Values(
			token.ID,
			token.Email,
			token.TokenHash,
			token.Attempts,
			token.Validated,
			token.CreatedAt,
			token.LastSentAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert verification token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert verification token: %w", err)
	}
	return nil
}

// MostRecentByEmail returns the latest record by creation time for the email.
func (r *TokenRepository) MostRecentByEmail(ctx context.Context, email string) (*domain.VerificationToken, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"email",
			"token_hash",
			"attempts",
			"validated",
			"created_at",
			"last_sent_at",
		).
		From("auth.verification_tokens").
		Where(squirrel.Eq{"email": email}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select verification token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var token domain.VerificationToken
	if err := row.Scan(
		&token.ID,
		&token.Email,
		&token.TokenHash,
		&token.Attempts,
		&token.Validated,
		&token.CreatedAt,
		&token.LastSentAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification token: %w", err)
	}

	return &token, nil
}

// IncrementAttempts bumps the failed-attempt counter in the store and returns
// the new value, so concurrent failures are never lost to a read-modify-write
// race.
func (r *TokenRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	stmt, args, err := r.builder.
		Update("auth.verification_tokens").
		Set("attempts", squirrel.Expr("attempts + 1")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment attempts sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkValidated flips the single-use flag. The validated guard in the WHERE
// clause means a second call matches no rows and reports
// repository.ErrNotFound.
func (r *TokenRepository) MarkValidated(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Update("auth.verification_tokens").
		Set("validated", true).
		Where(squirrel.Eq{"id": id, "validated": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark validated sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark validated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a verification token record.
func (r *TokenRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.
		Delete("auth.verification_tokens").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete verification token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete verification token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteExpiredBefore purges records created before the cutoff and reports
// how many rows were removed.
func (r *TokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	stmt, args, err := r.builder.
		Delete("auth.verification_tokens").
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge verification tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge verification tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
