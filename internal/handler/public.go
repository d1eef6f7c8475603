package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/billing"
	"github.com/swadpos/api/internal/channel"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/share"
)

// PublicStore defines the database methods needed by public endpoints.
// Satisfied by *database.Queries.
type PublicStore interface {
	GetMenuSnapshot(ctx context.Context, id uuid.UUID) (database.MenuSnapshot, error)
}

// Depositor places a customer order into the handoff channel.
// Satisfied by *channel.Channel.
type Depositor interface {
	Deposit(ctx context.Context, po channel.PendingOrder) error
}

// PublicHandler serves the customer self-service surface: resolving a shared
// menu and checking out an order. No authentication; the share link is the
// capability.
type PublicHandler struct {
	store   PublicStore
	channel Depositor
	taxRate decimal.Decimal
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(store PublicStore, channel Depositor, taxRate decimal.Decimal) *PublicHandler {
	return &PublicHandler{store: store, channel: channel, taxRate: taxRate}
}

// --- Request / Response types ---

type publicMenuResponse struct {
	RestaurantID uuid.UUID                `json:"restaurant_id"`
	Name         string                   `json:"name"`
	Address      string                   `json:"address"`
	Menu         []publicMenuItemResponse `json:"menu"`
}

type publicMenuItemResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    string    `json:"price"`
	InStock  bool      `json:"in_stock"`
}

type checkoutRequest struct {
	Key            string                   `json:"key"`
	Token          string                   `json:"token"`
	CustomerName   string                   `json:"customer_name"`
	CustomerPhone  string                   `json:"customer_phone"`
	Items          []createOrderItemRequest `json:"items"`
	DeliveryCharge string                   `json:"delivery_charge"`
	PaymentMethod  string                   `json:"payment_method"`
}

type checkoutResponse struct {
	OrderID  uuid.UUID `json:"order_id"`
	Subtotal string    `json:"subtotal"`
	Tax      string    `json:"tax"`
	Total    string    `json:"total"`
}

// --- Handlers ---

// Menu handles GET /public/menu?key=...&token=...
// The stored key is tried first; the self-contained token is the fallback
// for links that outlive their stored snapshot.
func (h *PublicHandler) Menu(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.resolveSnapshot(w, r.Context(), r.URL.Query().Get("key"), r.URL.Query().Get("token"))
	if !ok {
		return
	}

	resp := publicMenuResponse{
		RestaurantID: snapshot.RestaurantID,
		Name:         snapshot.Name,
		Address:      snapshot.Address,
		Menu:         make([]publicMenuItemResponse, len(snapshot.Menu)),
	}
	for i, item := range snapshot.Menu {
		resp.Menu[i] = publicMenuItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price.StringFixed(2),
			InStock:  item.InStock,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout handles POST /public/orders.
// Prices come from the snapshot the customer is looking at, never from the
// request, and the priced order is deposited for the operator to drain.
func (h *PublicHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	snapshot, ok := h.resolveSnapshot(w, r.Context(), req.Key, req.Token)
	if !ok {
		return
	}

	if req.CustomerName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_name is required"})
		return
	}
	if !isTenDigitPhone(req.CustomerPhone) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_phone must be a 10-digit number"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	deliveryCharge := decimal.Zero
	if req.DeliveryCharge != "" {
		var err error
		deliveryCharge, err = decimal.NewFromString(req.DeliveryCharge)
		if err != nil || deliveryCharge.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid delivery_charge"})
			return
		}
	}

	// Index the snapshot for lookup by item id.
	byID := make(map[uuid.UUID]share.MenuItem, len(snapshot.Menu))
	for _, item := range snapshot.Menu {
		byID[item.ID] = item
	}

	var lines []billing.Line
	pendingItems := make([]channel.PendingItem, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
		itemID, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "invalid menu_item_id")})
			return
		}
		mi, found := byID[itemID]
		if !found {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "item is not on this menu")})
			return
		}
		if !mi.InStock {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "item is out of stock")})
			return
		}

		lines = append(lines, billing.Line{UnitPrice: mi.Price, Quantity: item.Quantity})
		pendingItems[i] = channel.PendingItem{
			MenuItemID: itemID,
			Name:       mi.Name,
			Category:   mi.Category,
			UnitPrice:  mi.Price.StringFixed(2),
			Quantity:   item.Quantity,
		}
	}

	totals := billing.Compute(lines, h.taxRate, deliveryCharge, decimal.Zero)

	po := channel.PendingOrder{
		OrderID:        uuid.New(),
		RestaurantID:   snapshot.RestaurantID,
		SourceInfo:     fmt.Sprintf("Customer: %s (%s)", req.CustomerName, req.CustomerPhone),
		Items:          pendingItems,
		Subtotal:       totals.Subtotal.StringFixed(2),
		TaxAmount:      totals.Tax.StringFixed(2),
		Discount:       "0.00",
		DeliveryCharge: totals.DeliveryCharge.StringFixed(2),
		Total:          totals.Total.StringFixed(2),
		PaymentMethod:  req.PaymentMethod,
		PlacedAt:       time.Now(),
	}

	if err := h.channel.Deposit(r.Context(), po); err != nil {
		log.Printf("ERROR: deposit order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:  po.OrderID,
		Subtotal: po.Subtotal,
		Tax:      po.TaxAmount,
		Total:    po.Total,
	})
}

// --- Helpers ---

// resolveSnapshot tries the stored key first, then falls back to decoding the
// token. Writes the error response itself when neither works.
func (h *PublicHandler) resolveSnapshot(w http.ResponseWriter, ctx context.Context, key, token string) (share.Snapshot, bool) {
	if key != "" {
		id, err := uuid.Parse(key)
		if err == nil {
			stored, err := h.store.GetMenuSnapshot(ctx, id)
			if err == nil {
				var snapshot share.Snapshot
				if jsonErr := json.Unmarshal(stored.Payload, &snapshot); jsonErr == nil {
					return snapshot, true
				}
				log.Printf("ERROR: stored snapshot %s does not decode", id)
			} else if !errors.Is(err, pgx.ErrNoRows) {
				log.Printf("ERROR: get menu snapshot: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return share.Snapshot{}, false
			}
		}
	}

	if token != "" {
		snapshot, err := share.DecodeToken(token)
		if err == nil {
			return snapshot, true
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed menu link"})
		return share.Snapshot{}, false
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu link expired or unknown"})
	return share.Snapshot{}, false
}

func isTenDigitPhone(s string) bool {
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
