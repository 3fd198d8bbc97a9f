package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chat-platform/backend/internal/token/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a token repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SavePair commits the refresh upsert and the access replacement in one
// transaction. The UNIQUE (user_id, device_name) constraint makes the upsert
// replace any previous session on the same device.
func (r *PostgresRepository) SavePair(ctx context.Context, refresh *domain.RefreshToken, access *domain.AccessToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, device_name, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, device_name) DO UPDATE SET
		   token_hash = EXCLUDED.token_hash,
		   expires_at = EXCLUDED.expires_at,
		   created_at = EXCLUDED.created_at`,
		refresh.TokenHash, refresh.UserID, refresh.DeviceName, refresh.ExpiresAt, refresh.CreatedAt); err != nil {
		return err
	}
	if err := replaceAccess(ctx, tx, access); err != nil {
		return err
	}
	return tx.Commit()
}

// RotatePair is a compare-and-swap on the token hash, constrained to the
// presented device name. The conditional update guarantees exactly one winner
// among concurrent rotations of the same token; losers see zero rows and get
// nil back. The winner's access token is replaced in the same transaction, so
// the rotation either fully lands or not at all.
func (r *PostgresRepository) RotatePair(ctx context.Context, oldHash, deviceName string, next Rotation) (*domain.RefreshToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`UPDATE refresh_tokens
		 SET token_hash = $2, expires_at = $3, created_at = $4
		 WHERE token_hash = $1 AND device_name = $5 AND expires_at > $4
		 RETURNING token_hash, user_id, device_name, expires_at, created_at`,
		oldHash, next.RefreshHash, next.RefreshExpiresAt, next.Now, deviceName)

	var t domain.RefreshToken
	if err := row.Scan(&t.TokenHash, &t.UserID, &t.DeviceName, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := replaceAccess(ctx, tx, &domain.AccessToken{
		TokenHash:  next.AccessHash,
		UserID:     t.UserID,
		DeviceName: t.DeviceName,
		ExpiresAt:  next.AccessExpiresAt,
		CreatedAt:  next.Now,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

// replaceAccess deletes the previous access token for the (user, device) and
// inserts the new one inside the caller's transaction.
func replaceAccess(ctx context.Context, tx *sql.Tx, t *domain.AccessToken) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE user_id = $1 AND device_name = $2`,
		t.UserID, t.DeviceName); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO access_tokens (token_hash, user_id, device_name, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.TokenHash, t.UserID, t.DeviceName, t.ExpiresAt, t.CreatedAt)
	return err
}

// FindAccessByHash returns the live access token with the given hash, or nil
// if missing or expired.
func (r *PostgresRepository) FindAccessByHash(ctx context.Context, hash string, now time.Time) (*domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, device_name, expires_at, created_at
		 FROM access_tokens WHERE token_hash = $1 AND expires_at > $2`,
		hash, now)

	var t domain.AccessToken
	err := row.Scan(&t.TokenHash, &t.UserID, &t.DeviceName, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// RevokeDevice removes both tokens for one device in a single transaction.
func (r *PostgresRepository) RevokeDevice(ctx context.Context, userID, deviceName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE user_id = $1 AND device_name = $2`,
		userID, deviceName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1 AND device_name = $2`,
		userID, deviceName); err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeAllForUser removes every token the user holds, on all devices.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListDevices returns the user's live sessions from refresh tokens, oldest first.
func (r *PostgresRepository) ListDevices(ctx context.Context, userID string) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT device_name, created_at, expires_at
		 FROM refresh_tokens WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceName, &d.CreatedAt, &d.ExpiresAt); err != nil {
			return nil, err
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}
