package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
	"github.com/Erick-MC-Cedeno/chatty/internal/repository"
)

// userColumns is the scan order shared by every user select.
var userColumns = []string{
	"id",
	"email",
	"password_hash",
	"two_factor_enabled",
	"registered_at",
	"last_password_change",
	"reset_token_hash",
	"reset_token_purpose",
	"reset_token_used",
	"reset_token_issued_at",
	"reset_token_expires_at",
}

// UserRepository implements port.UserRepository using PostgreSQL. The reset
// token sub-record is stored as columns on auth.users so a password change
// and token consumption commit in a single statement.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance executing within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

func (r *UserRepository) getBy(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(cond).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user               domain.User
		lastPasswordChange *time.Time
		tokenHash          sql.NullString
		tokenPurpose       sql.NullString
		tokenUsed          sql.NullBool
		tokenIssuedAt      *time.Time
		tokenExpiresAt     *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.TwoFactorEnabled,
		&user.RegisteredAt,
		&lastPasswordChange,
		&tokenHash,
		&tokenPurpose,
		&tokenUsed,
		&tokenIssuedAt,
		&tokenExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.LastPasswordChange = lastPasswordChange

	if tokenIssuedAt != nil {
		token := domain.ResetToken{
			Hash:     tokenHash.String,
			Purpose:  tokenPurpose.String,
			Used:     tokenUsed.Bool,
			IssuedAt: *tokenIssuedAt,
		}
		if tokenExpiresAt != nil {
			token.ExpiresAt = *tokenExpiresAt
		}
		user.ResetToken = &token
	}

	return &user, nil
}

// SaveResetToken replaces the reset sub-record on the user row.
func (r *UserRepository) SaveResetToken(ctx context.Context, userID string, token domain.ResetToken) error {
	stmt, args, err := r.builder.
		Update("auth.users").
		Set("reset_token_hash", token.Hash).
		Set("reset_token_purpose", token.Purpose).
		Set("reset_token_used", token.Used).
		Set("reset_token_issued_at", token.IssuedAt).
		Set("reset_token_expires_at", token.ExpiresAt).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save reset token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ApplyPasswordChange stores the new hash, marks the reset token used, clears
// its hash/purpose/expiry, and stamps last_password_change. The issuance
// timestamp survives so the rate-limit window keeps its anchor.
func (r *UserRepository) ApplyPasswordChange(ctx context.Context, userID string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.
		Update("auth.users").
		Set("password_hash", passwordHash).
		Set("last_password_change", changedAt).
		Set("reset_token_used", true).
		Set("reset_token_hash", nil).
		Set("reset_token_purpose", nil).
		Set("reset_token_expires_at", nil).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build apply password change sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("apply password change: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
