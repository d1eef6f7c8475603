package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/share"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries.
type MenuStore interface {
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, arg database.SoftDeleteMenuItemParams) (uuid.UUID, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	CreateMenuSnapshot(ctx context.Context, arg database.CreateMenuSnapshotParams) (database.MenuSnapshot, error)
}

// MenuHandler handles menu item endpoints.
type MenuHandler struct {
	store       MenuStore
	snapshotTTL time.Duration
}

// NewMenuHandler creates a new MenuHandler. snapshotTTL bounds how long a
// shared menu link stays resolvable by key.
func NewMenuHandler(store MenuStore, snapshotTTL time.Duration) *MenuHandler {
	return &MenuHandler{store: store, snapshotTTL: snapshotTTL}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted inside a restaurant-scoped subrouter: /restaurants/{rid}/menu
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/share", h.Share)
}

// --- Request / Response types ---

type menuItemRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	OfflinePrice string `json:"offline_price"`
	OnlinePrice  string `json:"online_price"`
	InStock      bool   `json:"in_stock"`
}

type menuItemResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	OfflinePrice string    `json:"offline_price"`
	OnlinePrice  string    `json:"online_price"`
	InStock      bool      `json:"in_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type shareLinkResponse struct {
	Key       uuid.UUID `json:"key"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// --- Handlers ---

// Create handles POST /restaurants/{rid}/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	offline, online, errMsg := parsePrices(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		RestaurantID: restaurantID,
		Name:         req.Name,
		Category:     req.Category,
		OfflinePrice: decimalToPgNumeric(offline),
		OnlinePrice:  decimalToPgNumeric(online),
		InStock:      req.InStock,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// List handles GET /restaurants/{rid}/menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /restaurants/{rid}/menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	offline, online, errMsg := parsePrices(req)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errMsg})
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:           itemID,
		RestaurantID: restaurantID,
		Name:         req.Name,
		Category:     req.Category,
		OfflinePrice: decimalToPgNumeric(offline),
		OnlinePrice:  decimalToPgNumeric(online),
		InStock:      req.InStock,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete handles DELETE /restaurants/{rid}/menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if _, err := h.store.SoftDeleteMenuItem(r.Context(), database.SoftDeleteMenuItemParams{
		ID:           itemID,
		RestaurantID: restaurantID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Share handles POST /restaurants/{rid}/menu/share.
// Freezes the current menu into a snapshot and returns both resolution
// paths: a stored key and a self-contained token.
func (h *MenuHandler) Share(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	restaurant, err := h.store.GetRestaurant(r.Context(), restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		log.Printf("ERROR: get restaurant for share: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list menu items for share: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "menu is empty, nothing to share"})
		return
	}

	snapshot := share.Snapshot{
		RestaurantID: restaurantID,
		Name:         restaurant.Name,
		Address:      restaurant.Address,
		Menu:         make([]share.MenuItem, len(items)),
	}
	for i, item := range items {
		snapshot.Menu[i] = share.MenuItem{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    numericToDecimal(item.OnlinePrice),
			InStock:  item.InStock,
		}
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("ERROR: marshal snapshot: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	expiresAt := time.Now().Add(h.snapshotTTL)
	stored, err := h.store.CreateMenuSnapshot(r.Context(), database.CreateMenuSnapshotParams{
		RestaurantID: restaurantID,
		Payload:      payload,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		log.Printf("ERROR: create menu snapshot: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	token, err := share.EncodeToken(snapshot)
	if err != nil {
		log.Printf("ERROR: encode share token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, shareLinkResponse{
		Key:       stored.ID,
		Token:     token,
		ExpiresAt: stored.ExpiresAt,
	})
}

// --- Helpers ---

func parsePrices(req menuItemRequest) (offline, online decimal.Decimal, errMsg string) {
	if req.Name == "" {
		return decimal.Zero, decimal.Zero, "name is required"
	}
	if req.Category == "" {
		return decimal.Zero, decimal.Zero, "category is required"
	}
	offline, err := decimal.NewFromString(req.OfflinePrice)
	if err != nil || offline.IsNegative() {
		return decimal.Zero, decimal.Zero, "invalid offline_price"
	}
	online, err = decimal.NewFromString(req.OnlinePrice)
	if err != nil || online.IsNegative() {
		return decimal.Zero, decimal.Zero, "invalid online_price"
	}
	return offline, online, ""
}

func decimalToPgNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func toMenuItemResponse(item database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:           item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Category:     item.Category,
		OfflinePrice: numericToString(item.OfflinePrice),
		OnlinePrice:  numericToString(item.OnlinePrice),
		InStock:      item.InStock,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
