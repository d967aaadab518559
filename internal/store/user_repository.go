/**
 * @description
 * PostgreSQL implementation of the `UserStore` interface. The users table
 * carries a unique index on lower(btrim(email)); a 23505 on insert is
 * surfaced as ErrDuplicateEmail so the provisioner can re-fetch instead of
 * treating a concurrent create as a failure.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver; pgconn for error codes.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IBookTours/IBookTours-sub001/internal/domain"
)

// PostgresUserStore is the PostgreSQL implementation of UserStore.
type PostgresUserStore struct {
	db *pgxpool.Pool
}

// NewPostgresUserStore creates a new instance of PostgresUserStore.
func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// FindByEmail retrieves a user by normalized email.
func (r *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, btrim(email), name, password_hash, is_guest, created_at
		FROM users
		WHERE lower(btrim(email)) = lower(btrim($1))
	`
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsGuest, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user record. A unique-constraint violation on the
// email index is returned as ErrDuplicateEmail.
func (r *PostgresUserStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, is_guest)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.IsGuest,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreatePasswordResetToken stores a reset token so a provisioned guest can
// claim the account later.
func (r *PostgresUserStore) CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.Exec(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}
