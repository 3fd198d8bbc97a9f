package repository

import (
	"context"
	"database/sql"
	"errors"

	"chat-platform/backend/internal/signup/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a pending signup repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const signupColumns = `id, email, name, password_hash, device_name, expires_at, created_at`

// Upsert stores the signup, replacing any previous pending signup for the same
// email. The replacement keeps the new ID so stale verification links die with
// the old row.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.PendingSignup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_signups (id, email, name, password_hash, device_name, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email) DO UPDATE SET
		   id = EXCLUDED.id,
		   name = EXCLUDED.name,
		   password_hash = EXCLUDED.password_hash,
		   device_name = EXCLUDED.device_name,
		   expires_at = EXCLUDED.expires_at,
		   created_at = EXCLUDED.created_at`,
		p.ID, p.Email, p.Name, p.PasswordHash, p.DeviceName, p.ExpiresAt, p.CreatedAt)
	return err
}

// GetByID returns the pending signup for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.PendingSignup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+signupColumns+` FROM pending_signups WHERE id = $1`, id)
	return scanSignup(row)
}

// GetByEmail returns the pending signup for email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.PendingSignup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+signupColumns+` FROM pending_signups WHERE email = $1`, email)
	return scanSignup(row)
}

// Delete removes the pending signup. Deleting a missing row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_signups WHERE id = $1`, id)
	return err
}

func scanSignup(row *sql.Row) (*domain.PendingSignup, error) {
	var p domain.PendingSignup
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.DeviceName, &p.ExpiresAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
