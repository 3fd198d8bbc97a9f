package repository

import (
	"context"
	"database/sql"
	"time"

	"chat-platform/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a code repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Replace upserts the owner's code in a single statement. The WHERE clause on
// the conflict update makes the cooldown check and the overwrite atomic:
// zero rows affected means another code was created after notBefore.
func (r *PostgresRepository) Replace(ctx context.Context, rec *domain.Otp, notBefore time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (owner_type, owner_id, code_hash, purpose, expires_at, consumed, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		 ON CONFLICT (owner_type, owner_id) DO UPDATE SET
		   code_hash = EXCLUDED.code_hash,
		   purpose = EXCLUDED.purpose,
		   expires_at = EXCLUDED.expires_at,
		   consumed = FALSE,
		   created_at = EXCLUDED.created_at
		 WHERE otps.created_at <= $7`,
		rec.OwnerType, rec.OwnerID, rec.CodeHash, rec.Purpose, rec.ExpiresAt, rec.CreatedAt, notBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Consume flips the consumed flag in a single conditional update, so exactly
// one of any number of concurrent callers with the right code succeeds.
func (r *PostgresRepository) Consume(ctx context.Context, ownerType domain.OwnerType, ownerID, purpose, codeHash string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otps SET consumed = TRUE
		 WHERE owner_type = $1 AND owner_id = $2 AND purpose = $3
		   AND code_hash = $4 AND NOT consumed AND expires_at > $5`,
		ownerType, ownerID, purpose, codeHash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
