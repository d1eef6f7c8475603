package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockDB implements DB. Only Begin is expected; direct query methods panic.
type mockDB struct {
	tx  pgx.Tx
	err error
}

func (m *mockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}
func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn  func(ctx context.Context, restaurantID uuid.UUID) (int32, error)
	getMenuItemForOrderFn func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	createOrderFn         func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn     func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderFn            func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	getOrderForUpdateFn   func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listOrderItemsFn      func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	acceptOrderFn         func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	completeOrderFn       func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error)
	deleteOrderItemsFn    func(ctx context.Context, orderID uuid.UUID) error
	updateOrderPricingFn  func(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, restaurantID uuid.UUID) (int32, error) {
	return m.getNextOrderNumberFn(ctx, restaurantID)
}
func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	return m.getMenuItemForOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, arg)
}
func (m *mockOrderStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) AcceptOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.acceptOrderFn(ctx, arg)
}
func (m *mockOrderStore) CompleteOrder(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
	return m.completeOrderFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	return m.deleteOrderItemsFn(ctx, orderID)
}
func (m *mockOrderStore) UpdateOrderPricing(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error) {
	return m.updateOrderPricingFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies and a 5%
// tax rate.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockDB{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, decimal.NewFromInt(5)), tx
}

// defaultStore returns a mockOrderStore preloaded with one in-stock menu item
// priced 250 offline / 270 online. Individual tests override the functions
// they care about.
func defaultStore(restaurantID, menuItemID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context, rid uuid.UUID) (int32, error) {
			return 1, nil
		},
		getMenuItemForOrderFn: func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
			if arg.ID == menuItemID && arg.RestaurantID == restaurantID {
				return database.MenuItem{
					ID:           menuItemID,
					RestaurantID: restaurantID,
					Name:         "Paneer Tikka",
					Category:     "Starters",
					OfflinePrice: makeNumeric("250.00"),
					OnlinePrice:  makeNumeric("270.00"),
					InStock:      true,
					IsActive:     true,
				}, nil
			}
			return database.MenuItem{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:             arg.ID,
				RestaurantID:   arg.RestaurantID,
				OrderNumber:    arg.OrderNumber,
				OrderType:      arg.OrderType,
				Status:         arg.Status,
				SourceKind:     arg.SourceKind,
				SourceInfo:     arg.SourceInfo,
				Subtotal:       arg.Subtotal,
				TaxAmount:      arg.TaxAmount,
				Discount:       arg.Discount,
				DeliveryCharge: arg.DeliveryCharge,
				Total:          arg.Total,
				PaymentMethod:  arg.PaymentMethod,
				PlacedAt:       arg.PlacedAt,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:         uuid.New(),
				OrderID:    arg.OrderID,
				MenuItemID: arg.MenuItemID,
				Name:       arg.Name,
				Category:   arg.Category,
				UnitPrice:  arg.UnitPrice,
				Quantity:   arg.Quantity,
			}, nil
		},
	}
}

func counterRequest(restaurantID, menuItemID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		RestaurantID: restaurantID,
		Origin: OrderOrigin{
			Kind:        enum.SourceKindCounter,
			TableNumber: "4",
		},
		Items: []CreateOrderItemRequest{
			{MenuItemID: menuItemID.String(), Quantity: 2},
		},
	}
}

// --- CreateOrder ---

func TestCreateOrderCounter(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	svc, _ := newTestService(defaultStore(restaurantID, menuItemID))

	result, err := svc.CreateOrder(context.Background(), counterRequest(restaurantID, menuItemID))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	order := result.Order
	if order.OrderNumber != "SWD-001" {
		t.Errorf("OrderNumber = %q, want SWD-001", order.OrderNumber)
	}
	if order.OrderType != enum.OrderTypeOffline {
		t.Errorf("OrderType = %q, want OFFLINE", order.OrderType)
	}
	if order.Status != enum.OrderStatusPreparation {
		t.Errorf("Status = %q, want PREPARATION", order.Status)
	}
	if order.SourceInfo != "Table: 4" {
		t.Errorf("SourceInfo = %q, want \"Table: 4\"", order.SourceInfo)
	}
	// 2 x 250 offline + 5% GST
	if !numericEquals(order.Subtotal, "500") {
		t.Errorf("Subtotal = %v, want 500", order.Subtotal)
	}
	if !numericEquals(order.TaxAmount, "25") {
		t.Errorf("TaxAmount = %v, want 25", order.TaxAmount)
	}
	if !numericEquals(order.Total, "525") {
		t.Errorf("Total = %v, want 525", order.Total)
	}
	if len(result.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(result.Items))
	}
	if result.Items[0].Name != "Paneer Tikka" {
		t.Errorf("item Name = %q, want Paneer Tikka", result.Items[0].Name)
	}
	if !numericEquals(result.Items[0].UnitPrice, "250") {
		t.Errorf("item UnitPrice = %v, want 250", result.Items[0].UnitPrice)
	}
}

func TestCreateOrderPlatform(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	svc, _ := newTestService(defaultStore(restaurantID, menuItemID))

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: restaurantID,
		Origin: OrderOrigin{
			Kind:            enum.SourceKindPlatform,
			Platform:        "Swiggy",
			PlatformOrderID: "998",
		},
		Items: []CreateOrderItemRequest{
			{MenuItemID: menuItemID.String(), Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	order := result.Order
	if order.OrderType != enum.OrderTypeOnline {
		t.Errorf("OrderType = %q, want ONLINE", order.OrderType)
	}
	if order.Status != enum.OrderStatusPreparation {
		t.Errorf("Status = %q, want PREPARATION", order.Status)
	}
	if order.SourceInfo != "Swiggy #998" {
		t.Errorf("SourceInfo = %q, want \"Swiggy #998\"", order.SourceInfo)
	}
	// Online price, aggregator handles tax.
	if !numericEquals(order.Subtotal, "270") {
		t.Errorf("Subtotal = %v, want 270", order.Subtotal)
	}
	if !numericEquals(order.TaxAmount, "0") {
		t.Errorf("TaxAmount = %v, want 0", order.TaxAmount)
	}
	if !numericEquals(order.Total, "270") {
		t.Errorf("Total = %v, want 270", order.Total)
	}
}

func TestCreateOrderSelfService(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	svc, _ := newTestService(defaultStore(restaurantID, menuItemID))

	result, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		RestaurantID: restaurantID,
		Origin: OrderOrigin{
			Kind:          enum.SourceKindSelfService,
			CustomerName:  "Asha",
			CustomerPhone: "9876543210",
		},
		Items: []CreateOrderItemRequest{
			{MenuItemID: menuItemID.String(), Quantity: 1},
		},
		DeliveryCharge: "40",
		PaymentMethod:  enum.PaymentMethodUPI,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	order := result.Order
	if order.Status != enum.OrderStatusPlaced {
		t.Errorf("Status = %q, want PLACED", order.Status)
	}
	if order.OrderType != enum.OrderTypeOnline {
		t.Errorf("OrderType = %q, want ONLINE", order.OrderType)
	}
	if order.SourceInfo != "Customer: Asha (9876543210)" {
		t.Errorf("SourceInfo = %q", order.SourceInfo)
	}
	// 270 online + 13.50 GST + 40 delivery
	if !numericEquals(order.Total, "323.50") {
		t.Errorf("Total = %v, want 323.50", order.Total)
	}
	if !order.PaymentMethod.Valid || order.PaymentMethod.String != enum.PaymentMethodUPI {
		t.Errorf("PaymentMethod = %v, want UPI", order.PaymentMethod)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()

	cases := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr error
	}{
		{"empty items", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{"unknown kind", func(r *CreateOrderRequest) { r.Origin.Kind = "DRIVE_THRU" }, ErrInvalidSourceKind},
		{"missing table", func(r *CreateOrderRequest) { r.Origin.TableNumber = "" }, ErrMissingTable},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"bad menu item id", func(r *CreateOrderRequest) { r.Items[0].MenuItemID = "nope" }, ErrInvalidMenuItemID},
		{"unknown menu item", func(r *CreateOrderRequest) { r.Items[0].MenuItemID = uuid.New().String() }, ErrMenuItemNotFound},
		{"delivery on counter", func(r *CreateOrderRequest) { r.DeliveryCharge = "40" }, ErrInvalidDeliveryCharge},
		{"bad discount", func(r *CreateOrderRequest) { r.Discount = "-5" }, ErrInvalidDiscountValue},
		{"bad payment method", func(r *CreateOrderRequest) { r.PaymentMethod = "CHEQUE" }, ErrInvalidPaymentMethod},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(defaultStore(restaurantID, menuItemID))
			req := counterRequest(restaurantID, menuItemID)
			tc.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateOrderPlatformValidation(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	svc, _ := newTestService(defaultStore(restaurantID, menuItemID))

	req := CreateOrderRequest{
		RestaurantID: restaurantID,
		Origin:       OrderOrigin{Kind: enum.SourceKindPlatform, Platform: "Zomato"},
		Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
	}
	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrMissingPlatformID) {
		t.Errorf("err = %v, want ErrMissingPlatformID", err)
	}

	req.Origin = OrderOrigin{Kind: enum.SourceKindPlatform, PlatformOrderID: "12"}
	if _, err := svc.CreateOrder(context.Background(), req); !errors.Is(err, ErrMissingPlatform) {
		t.Errorf("err = %v, want ErrMissingPlatform", err)
	}
}

func TestCreateOrderSelfServicePhoneValidation(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()

	for _, phone := range []string{"", "12345", "98765432109", "98765abc10"} {
		svc, _ := newTestService(defaultStore(restaurantID, menuItemID))
		_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
			RestaurantID: restaurantID,
			Origin: OrderOrigin{
				Kind:          enum.SourceKindSelfService,
				CustomerName:  "Asha",
				CustomerPhone: phone,
			},
			Items: []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
		})
		if !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("phone %q: err = %v, want ErrInvalidPhone", phone, err)
		}
	}
}

func TestCreateOrderOutOfStock(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	store := defaultStore(restaurantID, menuItemID)
	base := store.getMenuItemForOrderFn
	store.getMenuItemForOrderFn = func(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
		mi, err := base(ctx, arg)
		mi.InStock = false
		return mi, err
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), counterRequest(restaurantID, menuItemID))
	if !errors.Is(err, ErrItemUnavailable) {
		t.Errorf("err = %v, want ErrItemUnavailable", err)
	}
}

func TestCreateOrderRetriesOnNumberConflict(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	store := defaultStore(restaurantID, menuItemID)

	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_restaurant_id_order_number_key"}
	attempts := 0
	base := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts < 3 {
			return database.Order{}, conflict
		}
		return base(ctx, arg)
	}
	svc, _ := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), counterRequest(restaurantID, menuItemID))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if result.Order.OrderNumber != "SWD-001" {
		t.Errorf("OrderNumber = %q", result.Order.OrderNumber)
	}
}

func TestCreateOrderGivesUpAfterMaxRetries(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	store := defaultStore(restaurantID, menuItemID)

	conflict := &pgconn.PgError{Code: "23505", ConstraintName: "orders_restaurant_id_order_number_key"}
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		return database.Order{}, conflict
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), counterRequest(restaurantID, menuItemID))
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != maxOrderNumberRetries {
		t.Errorf("attempts = %d, want %d", attempts, maxOrderNumberRetries)
	}
}

// --- AcceptOrder ---

func TestAcceptOrder(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()
	store := &mockOrderStore{
		acceptOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{
				ID:           arg.ID,
				RestaurantID: arg.RestaurantID,
				Status:       enum.OrderStatusPreparation,
				OrderType:    enum.OrderTypeOffline,
			}, nil
		},
	}
	svc, _ := newTestService(store)

	order, err := svc.AcceptOrder(context.Background(), restaurantID, orderID)
	if err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}
	if order.Status != enum.OrderStatusPreparation {
		t.Errorf("Status = %q, want PREPARATION", order.Status)
	}
	if order.OrderType != enum.OrderTypeOffline {
		t.Errorf("OrderType = %q, want OFFLINE", order.OrderType)
	}
}

func TestAcceptOrderNotFound(t *testing.T) {
	store := &mockOrderStore{
		acceptOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.AcceptOrder(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestAcceptOrderWrongStatus(t *testing.T) {
	store := &mockOrderStore{
		acceptOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: enum.OrderStatusCompleted}, nil
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.AcceptOrder(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if !strings.Contains(err.Error(), enum.OrderStatusCompleted) {
		t.Errorf("error should name the current status: %v", err)
	}
}

// --- CompleteOrder ---

func TestCompleteOrder(t *testing.T) {
	store := &mockOrderStore{
		completeOrderFn: func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
			return database.Order{
				ID:            arg.ID,
				Status:        enum.OrderStatusCompleted,
				PaymentMethod: pgtype.Text{String: arg.PaymentMethod, Valid: true},
			}, nil
		},
	}
	svc, _ := newTestService(store)

	order, err := svc.CompleteOrder(context.Background(), uuid.New(), uuid.New(), enum.PaymentMethodCash)
	if err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	if order.Status != enum.OrderStatusCompleted {
		t.Errorf("Status = %q, want COMPLETED", order.Status)
	}
	if order.PaymentMethod.String != enum.PaymentMethodCash {
		t.Errorf("PaymentMethod = %q, want CASH", order.PaymentMethod.String)
	}
}

func TestCompleteOrderInvalidPaymentMethod(t *testing.T) {
	svc, _ := newTestService(&mockOrderStore{})

	_, err := svc.CompleteOrder(context.Background(), uuid.New(), uuid.New(), "BARTER")
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Errorf("err = %v, want ErrInvalidPaymentMethod", err)
	}
}

func TestCompleteOrderWrongStatus(t *testing.T) {
	store := &mockOrderStore{
		completeOrderFn: func(ctx context.Context, arg database.CompleteOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: enum.OrderStatusPlaced}, nil
		},
	}
	svc, _ := newTestService(store)

	_, err := svc.CompleteOrder(context.Background(), uuid.New(), uuid.New(), enum.PaymentMethodUPI)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

// --- EditOrder ---

func TestEditOrderRecomputesTotals(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	orderID := uuid.New()

	store := defaultStore(restaurantID, menuItemID)
	store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
		return database.Order{
			ID:             arg.ID,
			RestaurantID:   arg.RestaurantID,
			OrderNumber:    "SWD-007",
			OrderType:      enum.OrderTypeOffline,
			Status:         enum.OrderStatusPreparation,
			SourceKind:     enum.SourceKindCounter,
			Discount:       makeNumeric("0.00"),
			DeliveryCharge: makeNumeric("0.00"),
		}, nil
	}
	store.deleteOrderItemsFn = func(ctx context.Context, oid uuid.UUID) error {
		if oid != orderID {
			t.Errorf("DeleteOrderItems called with %s, want %s", oid, orderID)
		}
		return nil
	}
	var priced database.UpdateOrderPricingParams
	store.updateOrderPricingFn = func(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error) {
		priced = arg
		return database.Order{
			ID:          arg.ID,
			OrderNumber: "SWD-007",
			Status:      enum.OrderStatusPreparation,
			Subtotal:    arg.Subtotal,
			TaxAmount:   arg.TaxAmount,
			Total:       arg.Total,
		}, nil
	}
	svc, _ := newTestService(store)

	result, err := svc.EditOrder(context.Background(), EditOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Items: []CreateOrderItemRequest{
			{MenuItemID: menuItemID.String(), Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("EditOrder: %v", err)
	}

	if result.Order.OrderNumber != "SWD-007" {
		t.Errorf("OrderNumber = %q, identity must be preserved", result.Order.OrderNumber)
	}
	// 3 x 250 offline + 5% GST
	if !numericEquals(priced.Subtotal, "750") {
		t.Errorf("Subtotal = %v, want 750", priced.Subtotal)
	}
	if !numericEquals(priced.TaxAmount, "37.50") {
		t.Errorf("TaxAmount = %v, want 37.50", priced.TaxAmount)
	}
	if !numericEquals(priced.Total, "787.50") {
		t.Errorf("Total = %v, want 787.50", priced.Total)
	}
}

func TestEditOrderReplacesDiscount(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	orderID := uuid.New()

	// The stored order carries a discount; every edit replaces it with the
	// request's value, and an empty value removes it.
	makeStore := func(priced *database.UpdateOrderPricingParams) *mockOrderStore {
		store := defaultStore(restaurantID, menuItemID)
		store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{
				ID:             arg.ID,
				RestaurantID:   arg.RestaurantID,
				OrderNumber:    "SWD-007",
				OrderType:      enum.OrderTypeOffline,
				Status:         enum.OrderStatusPreparation,
				SourceKind:     enum.SourceKindCounter,
				Discount:       makeNumeric("100.00"),
				DeliveryCharge: makeNumeric("0.00"),
			}, nil
		}
		store.deleteOrderItemsFn = func(ctx context.Context, oid uuid.UUID) error { return nil }
		store.updateOrderPricingFn = func(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error) {
			*priced = arg
			return database.Order{ID: arg.ID, Status: enum.OrderStatusPreparation, Total: arg.Total}, nil
		}
		return store
	}

	var priced database.UpdateOrderPricingParams
	svc, _ := newTestService(makeStore(&priced))
	_, err := svc.EditOrder(context.Background(), EditOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 3}},
		Discount:     "25",
	})
	if err != nil {
		t.Fatalf("EditOrder: %v", err)
	}
	// 3 x 250 offline + 5% GST - 25
	if !numericEquals(priced.Discount, "25") {
		t.Errorf("Discount = %v, want 25", priced.Discount)
	}
	if !numericEquals(priced.Total, "762.50") {
		t.Errorf("Total = %v, want 762.50", priced.Total)
	}

	// No discount in the edit clears the stored one.
	svc, _ = newTestService(makeStore(&priced))
	_, err = svc.EditOrder(context.Background(), EditOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("EditOrder without discount: %v", err)
	}
	if !numericEquals(priced.Discount, "0") {
		t.Errorf("Discount = %v, want 0 after edit without discount", priced.Discount)
	}
	if !numericEquals(priced.Total, "787.50") {
		t.Errorf("Total = %v, want 787.50", priced.Total)
	}
}

func TestEditOrderInvalidDiscount(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	svc, _ := newTestService(defaultStore(restaurantID, menuItemID))

	for _, bad := range []string{"-5", "ten"} {
		_, err := svc.EditOrder(context.Background(), EditOrderRequest{
			RestaurantID: restaurantID,
			OrderID:      uuid.New(),
			Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
			Discount:     bad,
		})
		if !errors.Is(err, ErrInvalidDiscountValue) {
			t.Errorf("discount %q: err = %v, want ErrInvalidDiscountValue", bad, err)
		}
	}
}

func TestEditOrderOutsidePreparation(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()

	for _, status := range []string{enum.OrderStatusPlaced, enum.OrderStatusCompleted} {
		store := defaultStore(restaurantID, menuItemID)
		store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: status}, nil
		}
		svc, _ := newTestService(store)

		_, err := svc.EditOrder(context.Background(), EditOrderRequest{
			RestaurantID: restaurantID,
			OrderID:      uuid.New(),
			Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("status %s: err = %v, want ErrInvalidTransition", status, err)
		}
	}
}

func TestEditOrderNotFound(t *testing.T) {
	restaurantID := uuid.New()
	menuItemID := uuid.New()
	store := defaultStore(restaurantID, menuItemID)
	store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)

	_, err := svc.EditOrder(context.Background(), EditOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      uuid.New(),
		Items:        []CreateOrderItemRequest{{MenuItemID: menuItemID.String(), Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}
