package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, order_number, order_type, status, source_kind, source_info,
	subtotal, tax_amount, discount, delivery_charge, total, payment_method, placed_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.OrderNumber, &o.OrderType, &o.Status,
		&o.SourceKind, &o.SourceInfo, &o.Subtotal, &o.TaxAmount, &o.Discount,
		&o.DeliveryCharge, &o.Total, &o.PaymentMethod, &o.PlacedAt, &o.UpdatedAt,
	)
	return o, err
}

// GetNextOrderNumber returns the next sequential order number for a
// restaurant. Concurrent transactions can read the same value; callers must
// retry on the resulting unique constraint violation.
func (q *Queries) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	const sql = `SELECT COUNT(*) + 1 FROM orders WHERE restaurant_id = $1`
	var n int32
	err := q.db.QueryRow(ctx, sql, restaurantID).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	SourceKind     string
	SourceInfo     string
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	Discount       pgtype.Numeric
	DeliveryCharge pgtype.Numeric
	Total          pgtype.Numeric
	PaymentMethod  pgtype.Text
	PlacedAt       time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	const sql = `INSERT INTO orders (id, restaurant_id, order_number, order_type, status, source_kind,
		source_info, subtotal, tax_amount, discount, delivery_charge, total, payment_method, placed_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	RETURNING ` + orderColumns
	row := q.db.QueryRow(ctx, sql,
		arg.ID, arg.RestaurantID, arg.OrderNumber, arg.OrderType, arg.Status,
		arg.SourceKind, arg.SourceInfo, arg.Subtotal, arg.TaxAmount, arg.Discount,
		arg.DeliveryCharge, arg.Total, arg.PaymentMethod, arg.PlacedAt,
	)
	return scanOrder(row)
}

// CreateOrderIfAbsent inserts an order ingested from the handoff channel.
// Returns false when an order with the same id already exists (idempotent
// merge-by-id).
func (q *Queries) CreateOrderIfAbsent(ctx context.Context, arg CreateOrderParams) (bool, error) {
	const sql = `INSERT INTO orders (id, restaurant_id, order_number, order_type, status, source_kind,
		source_info, subtotal, tax_amount, discount, delivery_charge, total, payment_method, placed_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	ON CONFLICT (id) DO NOTHING`
	tag, err := q.db.Exec(ctx, sql,
		arg.ID, arg.RestaurantID, arg.OrderNumber, arg.OrderType, arg.Status,
		arg.SourceKind, arg.SourceInfo, arg.Subtotal, arg.TaxAmount, arg.Discount,
		arg.DeliveryCharge, arg.Total, arg.PaymentMethod, arg.PlacedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Category   string
	UnitPrice  pgtype.Numeric
	Quantity   int32
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	const sql = `INSERT INTO order_items (id, order_id, menu_item_id, name, category, unit_price, quantity)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, order_id, menu_item_id, name, category, unit_price, quantity`
	var it OrderItem
	err := q.db.QueryRow(ctx, sql,
		uuid.New(), arg.OrderID, arg.MenuItemID, arg.Name, arg.Category, arg.UnitPrice, arg.Quantity,
	).Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Category, &it.UnitPrice, &it.Quantity)
	return it, err
}

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND restaurant_id = $2`
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID))
}

// GetOrderForUpdate locks the order row for the duration of the transaction.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND restaurant_id = $2 FOR UPDATE`
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID))
}

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	OrderType    pgtype.Text
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
	Limit        int32
	Offset       int32
}

// ListOrders returns orders most recent first, with optional status/type and
// date-window filters.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders
	WHERE restaurant_id = $1
	  AND ($2::text IS NULL OR status = $2)
	  AND ($3::text IS NULL OR order_type = $3)
	  AND ($4::timestamptz IS NULL OR placed_at >= $4)
	  AND ($5::timestamptz IS NULL OR placed_at < $5)
	ORDER BY placed_at DESC
	LIMIT $6 OFFSET $7`
	rows, err := q.db.Query(ctx, sql,
		arg.RestaurantID, arg.Status, arg.OrderType, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	const sql = `SELECT id, order_id, menu_item_id, name, category, unit_price, quantity
	FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := q.db.Query(ctx, sql, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Category, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AcceptOrder moves a PLACED order into PREPARATION and reclassifies it as an
// OFFLINE (in-house kitchen) order. The status gate in the WHERE clause makes
// the precondition atomic: no rows means the order is missing or not PLACED.
func (q *Queries) AcceptOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	const sql = `UPDATE orders
	SET status = 'PREPARATION', order_type = 'OFFLINE', updated_at = now()
	WHERE id = $1 AND restaurant_id = $2 AND status = 'PLACED'
	RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID))
}

type CompleteOrderParams struct {
	ID            uuid.UUID
	RestaurantID  uuid.UUID
	PaymentMethod string
}

// CompleteOrder settles a PREPARATION order. Same atomic-gate contract as
// AcceptOrder.
func (q *Queries) CompleteOrder(ctx context.Context, arg CompleteOrderParams) (Order, error) {
	const sql = `UPDATE orders
	SET status = 'COMPLETED', payment_method = $3, updated_at = now()
	WHERE id = $1 AND restaurant_id = $2 AND status = 'PREPARATION'
	RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.RestaurantID, arg.PaymentMethod))
}

func (q *Queries) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	const sql = `DELETE FROM order_items WHERE order_id = $1`
	_, err := q.db.Exec(ctx, sql, orderID)
	return err
}

type UpdateOrderPricingParams struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	Discount       pgtype.Numeric
	DeliveryCharge pgtype.Numeric
	Total          pgtype.Numeric
}

// UpdateOrderPricing rewrites the money fields after an edit. Identity fields
// (id, number, type, source, placed_at) are never touched.
func (q *Queries) UpdateOrderPricing(ctx context.Context, arg UpdateOrderPricingParams) (Order, error) {
	const sql = `UPDATE orders
	SET subtotal = $3, tax_amount = $4, discount = $5, delivery_charge = $6, total = $7, updated_at = now()
	WHERE id = $1 AND restaurant_id = $2 AND status = 'PREPARATION'
	RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql,
		arg.ID, arg.RestaurantID, arg.Subtotal, arg.TaxAmount, arg.Discount, arg.DeliveryCharge, arg.Total,
	))
}
