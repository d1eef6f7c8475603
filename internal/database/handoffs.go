package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateHandoffParams struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	Payload      []byte
}

// CreateHandoff deposits one pending customer order. The primary key is the
// order's own id, so two checkouts can never overwrite each other.
func (q *Queries) CreateHandoff(ctx context.Context, arg CreateHandoffParams) (OrderHandoff, error) {
	const sql = `INSERT INTO order_handoffs (order_id, restaurant_id, payload)
	VALUES ($1, $2, $3)
	RETURNING order_id, restaurant_id, payload, created_at`
	var h OrderHandoff
	err := q.db.QueryRow(ctx, sql, arg.OrderID, arg.RestaurantID, arg.Payload).
		Scan(&h.OrderID, &h.RestaurantID, &h.Payload, &h.CreatedAt)
	return h, err
}

// ListHandoffsForUpdate locks and returns all pending handoffs for one
// restaurant, oldest first. Locking keeps a concurrent drain from consuming
// the same rows.
func (q *Queries) ListHandoffsForUpdate(ctx context.Context, restaurantID uuid.UUID) ([]OrderHandoff, error) {
	const sql = `SELECT order_id, restaurant_id, payload, created_at
	FROM order_handoffs WHERE restaurant_id = $1
	ORDER BY created_at
	FOR UPDATE SKIP LOCKED`
	rows, err := q.db.Query(ctx, sql, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handoffs []OrderHandoff
	for rows.Next() {
		var h OrderHandoff
		if err := rows.Scan(&h.OrderID, &h.RestaurantID, &h.Payload, &h.CreatedAt); err != nil {
			return nil, err
		}
		handoffs = append(handoffs, h)
	}
	return handoffs, rows.Err()
}

// DeleteHandoff acknowledges a consumed handoff so it is never re-ingested.
func (q *Queries) DeleteHandoff(ctx context.Context, orderID uuid.UUID) error {
	const sql = `DELETE FROM order_handoffs WHERE order_id = $1`
	_, err := q.db.Exec(ctx, sql, orderID)
	return err
}

// ListRestaurantsWithHandoffs returns the restaurants that currently have
// pending handoffs, for the poller to drain.
func (q *Queries) ListRestaurantsWithHandoffs(ctx context.Context) ([]uuid.UUID, error) {
	const sql = `SELECT DISTINCT restaurant_id FROM order_handoffs`
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
