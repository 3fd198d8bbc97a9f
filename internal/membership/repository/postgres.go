package repository

import (
	"context"
	"database/sql"
	"errors"

	"chat-platform/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Exists reports whether the user is a member of the group.
func (r *PostgresRepository) Exists(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_memberships WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&exists)
	return exists, err
}

// Get returns the membership, or nil if the user is not in the group.
func (r *PostgresRepository) Get(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT group_id, user_id, role, created_at
		 FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)

	var m domain.Membership
	err := row.Scan(&m.GroupID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByGroup returns all members of the group, oldest first.
func (r *PostgresRepository) ListByGroup(ctx context.Context, groupID string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, user_id, role, created_at
		 FROM group_memberships WHERE group_id = $1 ORDER BY created_at`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Create adds the user to the group. Duplicate membership is a constraint error.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_memberships (group_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		m.GroupID, m.UserID, m.Role, m.CreatedAt)
	return err
}

// Delete removes the user from the group. Missing memberships are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	return err
}
