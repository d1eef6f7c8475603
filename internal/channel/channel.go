// Package channel hands orders from the customer-facing menu page to the
// restaurant's operator flow. The customer side only ever deposits; the
// operator side drains pending deposits exactly once each, merged by order id.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
)

const maxDrainRetries = 3

// ErrDecode reports a deposited payload that could not be decoded. The
// offending deposit is discarded so it is never served again.
var ErrDecode = errors.New("channel: malformed handoff payload")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is the pool surface the channel needs.
type DB interface {
	database.DBTX
	TxBeginner
}

// Store defines the DB methods the channel needs.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	CreateHandoff(ctx context.Context, arg database.CreateHandoffParams) (database.OrderHandoff, error)
	ListHandoffsForUpdate(ctx context.Context, restaurantID uuid.UUID) ([]database.OrderHandoff, error)
	DeleteHandoff(ctx context.Context, orderID uuid.UUID) error
	ListRestaurantsWithHandoffs(ctx context.Context) ([]uuid.UUID, error)
	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	CreateOrderIfAbsent(ctx context.Context, arg database.CreateOrderParams) (bool, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	DeleteExpiredMenuSnapshots(ctx context.Context) (int64, error)
}

// NewStore creates a Store from a DBTX (pool or tx).
type NewStore func(db database.DBTX) Store

// PendingItem is one line of a deposited order. Prices travel as decimal
// strings so the payload survives JSON without float drift.
type PendingItem struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	UnitPrice  string    `json:"unit_price"`
	Quantity   int32     `json:"quantity"`
}

// PendingOrder is the wire format deposited by the customer checkout. The
// order id is minted at checkout time and becomes the order's identity on
// the operator side, which is what makes the drain idempotent.
type PendingOrder struct {
	OrderID        uuid.UUID     `json:"order_id"`
	RestaurantID   uuid.UUID     `json:"restaurant_id"`
	SourceInfo     string        `json:"source_info"`
	Items          []PendingItem `json:"items"`
	Subtotal       string        `json:"subtotal"`
	TaxAmount      string        `json:"tax_amount"`
	Discount       string        `json:"discount"`
	DeliveryCharge string        `json:"delivery_charge"`
	Total          string        `json:"total"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	PlacedAt       time.Time     `json:"placed_at"`
}

// Channel moves orders between the two contexts.
type Channel struct {
	pool     DB
	newStore NewStore
}

// New creates a Channel.
func New(pool DB, newStore NewStore) *Channel {
	return &Channel{pool: pool, newStore: newStore}
}

// Deposit places a pending order into the handoff queue.
func (c *Channel) Deposit(ctx context.Context, po PendingOrder) error {
	payload, err := json.Marshal(po)
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}

	store := c.newStore(c.pool)
	_, err = store.CreateHandoff(ctx, database.CreateHandoffParams{
		OrderID:      po.OrderID,
		RestaurantID: po.RestaurantID,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("create handoff: %w", err)
	}
	return nil
}

// DrainPending consumes every pending handoff for a restaurant and turns each
// into a PLACED order. Orders are merged by id, so a deposit that somehow
// survives a previous drain cannot create a duplicate. Undecodable payloads
// are logged and dropped. Retries the whole drain on order-number races.
func (c *Channel) DrainPending(ctx context.Context, restaurantID uuid.UUID) ([]database.Order, error) {
	var lastErr error
	for attempt := 0; attempt < maxDrainRetries; attempt++ {
		orders, err := c.drainTx(ctx, restaurantID)
		if err == nil {
			return orders, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (c *Channel) drainTx(ctx context.Context, restaurantID uuid.UUID) ([]database.Order, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := c.newStore(tx)

	handoffs, err := store.ListHandoffsForUpdate(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list handoffs: %w", err)
	}

	var orders []database.Order
	for _, h := range handoffs {
		var po PendingOrder
		if err := json.Unmarshal(h.Payload, &po); err != nil || po.OrderID != h.OrderID {
			log.Printf("ERROR: %v: dropping handoff %s", ErrDecode, h.OrderID)
			if err := store.DeleteHandoff(ctx, h.OrderID); err != nil {
				return nil, fmt.Errorf("delete handoff: %w", err)
			}
			continue
		}

		order, err := c.ingest(ctx, store, po)
		if err != nil {
			return nil, err
		}
		if order != nil {
			orders = append(orders, *order)
		}

		if err := store.DeleteHandoff(ctx, h.OrderID); err != nil {
			return nil, fmt.Errorf("delete handoff: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return orders, nil
}

// ingest inserts one pending order. Returns nil when the order id already
// existed (a previous drain got there first).
func (c *Channel) ingest(ctx context.Context, store Store, po PendingOrder) (*database.Order, error) {
	nextNum, err := store.GetNextOrderNumber(ctx, po.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	paymentMethod := pgtype.Text{}
	if po.PaymentMethod != "" {
		paymentMethod = pgtype.Text{String: po.PaymentMethod, Valid: true}
	}

	inserted, err := store.CreateOrderIfAbsent(ctx, database.CreateOrderParams{
		ID:             po.OrderID,
		RestaurantID:   po.RestaurantID,
		OrderNumber:    fmt.Sprintf("SWD-%03d", nextNum),
		OrderType:      enum.OrderTypeOnline,
		Status:         enum.OrderStatusPlaced,
		SourceKind:     enum.SourceKindSelfService,
		SourceInfo:     po.SourceInfo,
		Subtotal:       stringToNumeric(po.Subtotal),
		TaxAmount:      stringToNumeric(po.TaxAmount),
		Discount:       stringToNumeric(po.Discount),
		DeliveryCharge: stringToNumeric(po.DeliveryCharge),
		Total:          stringToNumeric(po.Total),
		PaymentMethod:  paymentMethod,
		PlacedAt:       po.PlacedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if !inserted {
		return nil, nil
	}

	for _, item := range po.Items {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    po.OrderID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Category:   item.Category,
			UnitPrice:  stringToNumeric(item.UnitPrice),
			Quantity:   item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: po.OrderID, RestaurantID: po.RestaurantID})
	if err != nil {
		return nil, fmt.Errorf("get ingested order: %w", err)
	}
	return &order, nil
}

func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_restaurant_id_order_number_key"
	}
	return false
}

func stringToNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if s == "" {
		s = "0"
	}
	_ = n.Scan(s)
	return n
}
