package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateRestaurantParams struct {
	Name    string
	Address string
	Phone   string
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	const sql = `INSERT INTO restaurants (id, name, address, phone)
	VALUES ($1, $2, $3, $4)
	RETURNING id, name, address, phone, created_at`
	var r Restaurant
	err := q.db.QueryRow(ctx, sql, uuid.New(), arg.Name, arg.Address, arg.Phone).
		Scan(&r.ID, &r.Name, &r.Address, &r.Phone, &r.CreatedAt)
	return r, err
}

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	const sql = `SELECT id, name, address, phone, created_at FROM restaurants WHERE id = $1`
	var r Restaurant
	err := q.db.QueryRow(ctx, sql, id).
		Scan(&r.ID, &r.Name, &r.Address, &r.Phone, &r.CreatedAt)
	return r, err
}
