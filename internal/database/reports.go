package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetDailySalesParams struct {
	RestaurantID uuid.UUID
	Start        time.Time
	End          time.Time
}

type GetDailySalesRow struct {
	OrderType  string
	OrderCount int64
	TotalSales pgtype.Numeric
}

// GetDailySales aggregates completed orders inside the window, split by
// online/offline channel.
func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	const sql = `SELECT order_type, COUNT(*), COALESCE(SUM(total), 0)
	FROM orders
	WHERE restaurant_id = $1
	  AND status = 'COMPLETED'
	  AND placed_at >= $2 AND placed_at < $3
	GROUP BY order_type`
	rows, err := q.db.Query(ctx, sql, arg.RestaurantID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.OrderType, &r.OrderCount, &r.TotalSales); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CountOrdersByStatusParams struct {
	RestaurantID uuid.UUID
	Status       string
}

type CountOrdersByStatusRow struct {
	OrderType  string
	OrderCount int64
}

// CountOrdersByStatus counts orders in one status, split by online/offline
// channel so the kitchen pipeline can show separate views.
func (q *Queries) CountOrdersByStatus(ctx context.Context, arg CountOrdersByStatusParams) ([]CountOrdersByStatusRow, error) {
	const sql = `SELECT order_type, COUNT(*)
	FROM orders
	WHERE restaurant_id = $1 AND status = $2
	GROUP BY order_type`
	rows, err := q.db.Query(ctx, sql, arg.RestaurantID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CountOrdersByStatusRow
	for rows.Next() {
		var r CountOrdersByStatusRow
		if err := rows.Scan(&r.OrderType, &r.OrderCount); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
