package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/billing"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems            = errors.New("items are required")
	ErrInvalidSourceKind     = errors.New("invalid source kind")
	ErrInvalidQuantity       = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID     = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound      = errors.New("menu item not found in restaurant")
	ErrItemUnavailable       = errors.New("menu item is out of stock")
	ErrMissingTable          = errors.New("table_number is required for counter orders")
	ErrMissingPlatform       = errors.New("platform is required for platform orders")
	ErrMissingPlatformID     = errors.New("platform_order_id is required for platform orders")
	ErrMissingCustomerName   = errors.New("customer_name is required for self-service orders")
	ErrInvalidPhone          = errors.New("customer_phone must be a 10-digit number")
	ErrInvalidDiscountValue  = errors.New("invalid discount_value")
	ErrInvalidDeliveryCharge = errors.New("invalid delivery_charge")
	ErrInvalidPaymentMethod  = errors.New("invalid payment_method")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidTransition     = errors.New("order status does not allow this transition")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is the connection pool surface the service needs: direct queries plus
// transactions. Satisfied by *pgxpool.Pool.
type DB interface {
	database.DBTX
	TxBeginner
}

// OrderStore defines the DB methods the lifecycle engine needs.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	AcceptOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error)
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderPricing(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderOrigin says where an order entered the system. Exactly one kind is
// set, and the kind decides which extra fields are required.
type OrderOrigin struct {
	Kind            string // enum.SourceKind*
	TableNumber     string // COUNTER
	Platform        string // PLATFORM, e.g. "Swiggy"
	PlatformOrderID string // PLATFORM
	CustomerName    string // SELF_SERVICE
	CustomerPhone   string // SELF_SERVICE
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	RestaurantID   uuid.UUID
	Origin         OrderOrigin
	Items          []CreateOrderItemRequest
	Discount       string
	DeliveryCharge string // SELF_SERVICE only
	PaymentMethod  string // SELF_SERVICE only, optional prepayment
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// EditOrderRequest replaces an order's items and discount while it is in
// preparation. An empty Discount removes any existing discount.
type EditOrderRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Items        []CreateOrderItemRequest
	Discount     string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     DB
	newStore NewOrderStore
	taxRate  decimal.Decimal
}

// NewOrderService creates a new OrderService. taxRate is the GST percentage
// applied to taxable orders.
func NewOrderService(pool DB, newStore NewOrderStore, taxRate decimal.Decimal) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, taxRate: taxRate}
}

// originRules captures everything that depends on the source kind.
type originRules struct {
	orderType  string
	status     string
	sourceInfo string
	useOnline  bool
	taxed      bool
}

// resolveOrigin validates the origin and derives the kind-specific rules:
// counter orders use offline prices and start in preparation, platform
// orders arrive pre-taxed by the aggregator so no tax is added, and
// self-service orders start unconfirmed in PLACED.
func resolveOrigin(o OrderOrigin) (originRules, error) {
	switch o.Kind {
	case enum.SourceKindCounter:
		if o.TableNumber == "" {
			return originRules{}, ErrMissingTable
		}
		return originRules{
			orderType:  enum.OrderTypeOffline,
			status:     enum.OrderStatusPreparation,
			sourceInfo: fmt.Sprintf("Table: %s", o.TableNumber),
			useOnline:  false,
			taxed:      true,
		}, nil

	case enum.SourceKindPlatform:
		if o.Platform == "" {
			return originRules{}, ErrMissingPlatform
		}
		if o.PlatformOrderID == "" {
			return originRules{}, ErrMissingPlatformID
		}
		return originRules{
			orderType:  enum.OrderTypeOnline,
			status:     enum.OrderStatusPreparation,
			sourceInfo: fmt.Sprintf("%s #%s", o.Platform, o.PlatformOrderID),
			useOnline:  true,
			taxed:      false,
		}, nil

	case enum.SourceKindSelfService:
		if o.CustomerName == "" {
			return originRules{}, ErrMissingCustomerName
		}
		if !isValidPhone(o.CustomerPhone) {
			return originRules{}, ErrInvalidPhone
		}
		return originRules{
			orderType:  enum.OrderTypeOnline,
			status:     enum.OrderStatusPlaced,
			sourceInfo: fmt.Sprintf("Customer: %s (%s)", o.CustomerName, o.CustomerPhone),
			useOnline:  true,
			taxed:      true,
		}, nil
	}
	return originRules{}, ErrInvalidSourceKind
}

// CreateOrder validates, prices, and creates an order atomically. Retries up
// to maxOrderNumberRetries times on order_number unique constraint violations
// (race condition where concurrent transactions get the same count).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	rules, err := resolveOrigin(req.Origin)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	discount := decimal.Zero
	if req.Discount != "" {
		discount, err = decimal.NewFromString(req.Discount)
		if err != nil || discount.IsNegative() {
			return nil, ErrInvalidDiscountValue
		}
	}

	deliveryCharge := decimal.Zero
	if req.DeliveryCharge != "" {
		if req.Origin.Kind != enum.SourceKindSelfService {
			return nil, ErrInvalidDeliveryCharge
		}
		deliveryCharge, err = decimal.NewFromString(req.DeliveryCharge)
		if err != nil || deliveryCharge.IsNegative() {
			return nil, ErrInvalidDeliveryCharge
		}
	}

	paymentMethod := pgtype.Text{}
	if req.PaymentMethod != "" {
		if !isValidPaymentMethod(req.PaymentMethod) {
			return nil, ErrInvalidPaymentMethod
		}
		paymentMethod = pgtype.Text{String: req.PaymentMethod, Valid: true}
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, rules, discount, deliveryCharge, paymentMethod)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_restaurant_id_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(
	ctx context.Context,
	req CreateOrderRequest,
	rules originRules,
	discount, deliveryCharge decimal.Decimal,
	paymentMethod pgtype.Text,
) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("SWD-%03d", nextNum)

	itemParams, lines, err := s.priceItems(ctx, store, req.RestaurantID, req.Items, rules.useOnline)
	if err != nil {
		return nil, err
	}

	taxRate := decimal.Zero
	if rules.taxed {
		taxRate = s.taxRate
	}
	totals := billing.Compute(lines, taxRate, deliveryCharge, discount)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ID:             uuid.New(),
		RestaurantID:   req.RestaurantID,
		OrderNumber:    orderNumber,
		OrderType:      rules.orderType,
		Status:         rules.status,
		SourceKind:     req.Origin.Kind,
		SourceInfo:     rules.sourceInfo,
		Subtotal:       decimalToNumeric(totals.Subtotal),
		TaxAmount:      decimalToNumeric(totals.Tax),
		Discount:       decimalToNumeric(totals.Discount),
		DeliveryCharge: decimalToNumeric(totals.DeliveryCharge),
		Total:          decimalToNumeric(totals.Total),
		PaymentMethod:  paymentMethod,
		PlacedAt:       time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, p := range itemParams {
		p.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// priceItems validates each requested item against the live menu and
// snapshots name, category and the relevant price column by value.
func (s *OrderService) priceItems(
	ctx context.Context,
	store OrderStore,
	restaurantID uuid.UUID,
	items []CreateOrderItemRequest,
	useOnline bool,
) ([]database.CreateOrderItemParams, []billing.Line, error) {
	var params []database.CreateOrderItemParams
	var lines []billing.Line

	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		menuItemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		mi, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemParams{
			ID:           menuItemID,
			RestaurantID: restaurantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !mi.InStock {
			return nil, nil, fmt.Errorf("item[%d]: %w", i, ErrItemUnavailable)
		}

		unitPrice := numericToDecimal(mi.OfflinePrice)
		if useOnline {
			unitPrice = numericToDecimal(mi.OnlinePrice)
		}

		params = append(params, database.CreateOrderItemParams{
			MenuItemID: menuItemID,
			Name:       mi.Name,
			Category:   mi.Category,
			UnitPrice:  decimalToNumeric(unitPrice),
			Quantity:   item.Quantity,
		})
		lines = append(lines, billing.Line{UnitPrice: unitPrice, Quantity: item.Quantity})
	}
	return params, lines, nil
}

// AcceptOrder moves a PLACED self-service order into preparation and folds it
// into the offline flow the kitchen works from.
func (s *OrderService) AcceptOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*database.Order, error) {
	store := s.newStore(s.pool)
	arg := database.GetOrderParams{ID: orderID, RestaurantID: restaurantID}

	order, err := store.AcceptOrder(ctx, arg)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("accept order: %w", err)
	}
	return nil, s.classifyMissedUpdate(ctx, store, arg, enum.OrderStatusPlaced)
}

// CompleteOrder settles a PREPARATION order and records how it was paid.
func (s *OrderService) CompleteOrder(ctx context.Context, restaurantID, orderID uuid.UUID, paymentMethod string) (*database.Order, error) {
	if !isValidPaymentMethod(paymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	store := s.newStore(s.pool)
	arg := database.GetOrderParams{ID: orderID, RestaurantID: restaurantID}

	order, err := store.CompleteOrder(ctx, database.CompleteOrderParams{
		ID:            orderID,
		RestaurantID:  restaurantID,
		PaymentMethod: paymentMethod,
	})
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	return nil, s.classifyMissedUpdate(ctx, store, arg, enum.OrderStatusPreparation)
}

// classifyMissedUpdate distinguishes a genuinely missing order from one that
// exists in the wrong status, after a status-gated UPDATE matched no rows.
func (s *OrderService) classifyMissedUpdate(ctx context.Context, store OrderStore, arg database.GetOrderParams, wantStatus string) error {
	current, err := store.GetOrder(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	return fmt.Errorf("%w: status is %s, want %s", ErrInvalidTransition, current.Status, wantStatus)
}

// EditOrder replaces the items and discount of an order still in preparation
// and recomputes its totals. Identity fields (id, number, type, source,
// placed_at) never change.
func (s *OrderService) EditOrder(ctx context.Context, req EditOrderRequest) (*CreateOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	discount := decimal.Zero
	if req.Discount != "" {
		var err error
		discount, err = decimal.NewFromString(req.Discount)
		if err != nil || discount.IsNegative() {
			return nil, ErrInvalidDiscountValue
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	arg := database.GetOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID}

	current, err := store.GetOrderForUpdate(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if current.Status != enum.OrderStatusPreparation {
		return nil, fmt.Errorf("%w: status is %s, want %s", ErrInvalidTransition, current.Status, enum.OrderStatusPreparation)
	}

	// Re-price against the same column and tax rule the order was born with.
	useOnline := current.SourceKind != enum.SourceKindCounter
	taxed := current.SourceKind != enum.SourceKindPlatform

	itemParams, lines, err := s.priceItems(ctx, store, req.RestaurantID, req.Items, useOnline)
	if err != nil {
		return nil, err
	}

	taxRate := decimal.Zero
	if taxed {
		taxRate = s.taxRate
	}
	totals := billing.Compute(lines, taxRate, numericToDecimal(current.DeliveryCharge), discount)

	if err := store.DeleteOrderItems(ctx, req.OrderID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}

	var items []database.OrderItem
	for _, p := range itemParams {
		p.OrderID = req.OrderID
		item, err := store.CreateOrderItem(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	order, err := store.UpdateOrderPricing(ctx, database.UpdateOrderPricingParams{
		ID:             req.OrderID,
		RestaurantID:   req.RestaurantID,
		Subtotal:       decimalToNumeric(totals.Subtotal),
		TaxAmount:      decimalToNumeric(totals.Tax),
		Discount:       decimalToNumeric(totals.Discount),
		DeliveryCharge: decimalToNumeric(totals.DeliveryCharge),
		Total:          decimalToNumeric(totals.Total),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order left preparation during edit", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update order pricing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// --- Helpers ---

func isValidPhone(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodUPI, enum.PaymentMethodCard:
		return true
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
