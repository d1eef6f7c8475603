package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CreateMenuSnapshotParams struct {
	RestaurantID uuid.UUID
	Payload      []byte
	ExpiresAt    time.Time
}

func (q *Queries) CreateMenuSnapshot(ctx context.Context, arg CreateMenuSnapshotParams) (MenuSnapshot, error) {
	const sql = `INSERT INTO menu_snapshots (id, restaurant_id, payload, expires_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id, restaurant_id, payload, created_at, expires_at`
	var s MenuSnapshot
	err := q.db.QueryRow(ctx, sql, uuid.New(), arg.RestaurantID, arg.Payload, arg.ExpiresAt).
		Scan(&s.ID, &s.RestaurantID, &s.Payload, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

// GetMenuSnapshot returns a snapshot that has not expired yet.
func (q *Queries) GetMenuSnapshot(ctx context.Context, id uuid.UUID) (MenuSnapshot, error) {
	const sql = `SELECT id, restaurant_id, payload, created_at, expires_at
	FROM menu_snapshots WHERE id = $1 AND expires_at > now()`
	var s MenuSnapshot
	err := q.db.QueryRow(ctx, sql, id).
		Scan(&s.ID, &s.RestaurantID, &s.Payload, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

// DeleteExpiredMenuSnapshots clears out stale share sessions.
func (q *Queries) DeleteExpiredMenuSnapshots(ctx context.Context) (int64, error) {
	const sql = `DELETE FROM menu_snapshots WHERE expires_at <= now()`
	tag, err := q.db.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
