package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/billing"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AcceptOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*database.Order, error)
	CompleteOrder(ctx context.Context, restaurantID, orderID uuid.UUID, paymentMethod string) (*database.Order, error)
	EditOrder(ctx context.Context, req service.EditOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/receipt", h.Receipt)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/complete", h.Complete)
	r.Put("/{id}/items", h.Edit)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Source         orderSourceRequest       `json:"source"`
	Items          []createOrderItemRequest `json:"items"`
	Discount       string                   `json:"discount"`
	DeliveryCharge string                   `json:"delivery_charge"`
	PaymentMethod  string                   `json:"payment_method"`
}

type orderSourceRequest struct {
	Kind            string `json:"kind"`
	TableNumber     string `json:"table_number"`
	Platform        string `json:"platform"`
	PlatformOrderID string `json:"platform_order_id"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type editOrderRequest struct {
	Items    []createOrderItemRequest `json:"items"`
	Discount string                   `json:"discount"`
}

type completeOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	RestaurantID   uuid.UUID           `json:"restaurant_id"`
	OrderNumber    string              `json:"order_number"`
	OrderType      string              `json:"order_type"`
	Status         string              `json:"status"`
	SourceKind     string              `json:"source_kind"`
	SourceInfo     string              `json:"source_info"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	CGST           string              `json:"cgst"`
	SGST           string              `json:"sgst"`
	Discount       string              `json:"discount"`
	DeliveryCharge string              `json:"delivery_charge"`
	Total          string              `json:"total"`
	PaymentMethod  *string             `json:"payment_method"`
	PlacedAt       time.Time           `json:"placed_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	UnitPrice  string    `json:"unit_price"`
	Quantity   int32     `json:"quantity"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Source.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "source.kind is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "menu_item_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID: restaurantID,
		Origin: service.OrderOrigin{
			Kind:            req.Source.Kind,
			TableNumber:     req.Source.TableNumber,
			Platform:        req.Source.Platform,
			PlatformOrderID: req.Source.PlatformOrderID,
			CustomerName:    req.Source.CustomerName,
			CustomerPhone:   req.Source.CustomerPhone,
		},
		Items:          svcItems,
		Discount:       req.Discount,
		DeliveryCharge: req.DeliveryCharge,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /restaurants/{rid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	// Parse pagination
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		RestaurantID: restaurantID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /restaurants/{rid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Accept handles POST /restaurants/{rid}/orders/{id}/accept.
func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	order, err := h.svc.AcceptOrder(r.Context(), restaurantID, orderID)
	if err != nil {
		writeLifecycleError(w, "accept order", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*order))
}

// Complete handles POST /restaurants/{rid}/orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	var req completeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return
	}

	order, err := h.svc.CompleteOrder(r.Context(), restaurantID, orderID, req.PaymentMethod)
	if err != nil {
		writeLifecycleError(w, "complete order", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(*order))
}

// Edit handles PUT /restaurants/{rid}/orders/{id}/items.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.EditOrder(r.Context(), service.EditOrderRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Items:        svcItems,
		Discount:     req.Discount,
	})
	if err != nil {
		writeLifecycleError(w, "edit order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Receipt handles GET /restaurants/{rid}/orders/{id}/receipt.
// Returns a plain-text printable bill.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	restaurantID, orderID, ok := parseOrderPath(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items for receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	restaurant, err := h.store.GetRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: get restaurant for receipt: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines := make([]billing.ReceiptLine, len(items))
	for i, item := range items {
		lines[i] = billing.ReceiptLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: numericToDecimal(item.UnitPrice),
		}
	}

	tax := numericToDecimal(order.TaxAmount)
	receipt := billing.Receipt{
		RestaurantName:    restaurant.Name,
		RestaurantAddress: restaurant.Address,
		OrderNumber:       order.OrderNumber,
		SourceInfo:        order.SourceInfo,
		PlacedAt:          order.PlacedAt.Format("02 Jan 2006 15:04"),
		Lines:             lines,
		Totals: billing.Totals{
			Subtotal:       numericToDecimal(order.Subtotal),
			Tax:            tax,
			CGST:           tax.Div(decimal.NewFromInt(2)),
			SGST:           tax.Div(decimal.NewFromInt(2)),
			Discount:       numericToDecimal(order.Discount),
			DeliveryCharge: numericToDecimal(order.DeliveryCharge),
			Total:          numericToDecimal(order.Total),
		},
	}
	if order.PaymentMethod.Valid {
		receipt.PaymentMethod = order.PaymentMethod.String
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(receipt.Format()))
}

// --- Helpers ---

func parseOrderPath(w http.ResponseWriter, r *http.Request) (restaurantID, orderID uuid.UUID, ok bool) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err = uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return restaurantID, orderID, true
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidSourceKind) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrItemUnavailable) ||
		errors.Is(err, service.ErrMissingTable) ||
		errors.Is(err, service.ErrMissingPlatform) ||
		errors.Is(err, service.ErrMissingPlatformID) ||
		errors.Is(err, service.ErrMissingCustomerName) ||
		errors.Is(err, service.ErrInvalidPhone) ||
		errors.Is(err, service.ErrInvalidDiscountValue) ||
		errors.Is(err, service.ErrInvalidDeliveryCharge) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}

// writeLifecycleError maps transition errors from the service layer:
// not-found is 404, an illegal transition is 409, validation is 400.
func writeLifecycleError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	tax := numericToDecimal(o.TaxAmount)
	half := tax.Div(decimal.NewFromInt(2))

	resp := orderResponse{
		ID:             o.ID,
		RestaurantID:   o.RestaurantID,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		Status:         o.Status,
		SourceKind:     o.SourceKind,
		SourceInfo:     o.SourceInfo,
		Subtotal:       numericToString(o.Subtotal),
		TaxAmount:      numericToString(o.TaxAmount),
		CGST:           half.StringFixed(2),
		SGST:           half.StringFixed(2),
		Discount:       numericToString(o.Discount),
		DeliveryCharge: numericToString(o.DeliveryCharge),
		Total:          numericToString(o.Total),
		PlacedAt:       o.PlacedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	if o.PaymentMethod.Valid {
		resp.PaymentMethod = &o.PaymentMethod.String
	}

	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		Category:   item.Category,
		UnitPrice:  numericToString(item.UnitPrice),
		Quantity:   item.Quantity,
	}
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
