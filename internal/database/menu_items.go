package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, restaurant_id, name, category, offline_price, online_price, in_stock, is_active, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID, &m.RestaurantID, &m.Name, &m.Category, &m.OfflinePrice,
		&m.OnlinePrice, &m.InStock, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

type CreateMenuItemParams struct {
	RestaurantID uuid.UUID
	Name         string
	Category     string
	OfflinePrice pgtype.Numeric
	OnlinePrice  pgtype.Numeric
	InStock      bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	const sql = `INSERT INTO menu_items (id, restaurant_id, name, category, offline_price, online_price, in_stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + menuItemColumns
	return scanMenuItem(q.db.QueryRow(ctx, sql,
		uuid.New(), arg.RestaurantID, arg.Name, arg.Category, arg.OfflinePrice, arg.OnlinePrice, arg.InStock,
	))
}

type GetMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	const sql = `SELECT ` + menuItemColumns + ` FROM menu_items
	WHERE id = $1 AND restaurant_id = $2 AND is_active = true`
	return scanMenuItem(q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID))
}

// GetMenuItemForOrder is GetMenuItem under a name that mirrors its use on the
// order-creation path, where the returned prices are snapshotted by value.
func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return q.GetMenuItem(ctx, arg)
}

func (q *Queries) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	const sql = `SELECT ` + menuItemColumns + ` FROM menu_items
	WHERE restaurant_id = $1 AND is_active = true
	ORDER BY category, name`
	rows, err := q.db.Query(ctx, sql, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Category     string
	OfflinePrice pgtype.Numeric
	OnlinePrice  pgtype.Numeric
	InStock      bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	const sql = `UPDATE menu_items
	SET name = $3, category = $4, offline_price = $5, online_price = $6, in_stock = $7, updated_at = now()
	WHERE id = $1 AND restaurant_id = $2 AND is_active = true
	RETURNING ` + menuItemColumns
	return scanMenuItem(q.db.QueryRow(ctx, sql,
		arg.ID, arg.RestaurantID, arg.Name, arg.Category, arg.OfflinePrice, arg.OnlinePrice, arg.InStock,
	))
}

type SoftDeleteMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// SoftDeleteMenuItem deactivates the item. Historical order items keep their
// own price/name copies, so nothing is physically removed.
func (q *Queries) SoftDeleteMenuItem(ctx context.Context, arg SoftDeleteMenuItemParams) (uuid.UUID, error) {
	const sql = `UPDATE menu_items SET is_active = false, updated_at = now()
	WHERE id = $1 AND restaurant_id = $2 AND is_active = true
	RETURNING id`
	var id uuid.UUID
	err := q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}
