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
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
)

// AdminStore defines the database methods needed by admin endpoints.
// Satisfied by *database.Queries.
type AdminStore interface {
	ListUsersByStatus(ctx context.Context, status string) ([]database.User, error)
	UpdateUserStatus(ctx context.Context, arg database.UpdateUserStatusParams) (database.User, error)
	UpdateSubscription(ctx context.Context, arg database.UpdateSubscriptionParams) (database.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// AlertDeriver derives and lists renewal alerts.
// Satisfied by *service.AlertService.
type AlertDeriver interface {
	DeriveRenewalAlerts(ctx context.Context) (int, error)
	ListAlerts(ctx context.Context, userID uuid.UUID) ([]database.Alert, error)
	ClearRenewalAlert(ctx context.Context, userID uuid.UUID) error
}

// AdminHandler serves the platform admin surface: onboarding approvals,
// subscription management and renewal alerts.
type AdminHandler struct {
	store  AdminStore
	alerts AlertDeriver
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore, alerts AlertDeriver) *AdminHandler {
	return &AdminHandler{store: store, alerts: alerts}
}

// --- Request / Response types ---

type userResponse struct {
	ID                  uuid.UUID  `json:"id"`
	RestaurantID        *uuid.UUID `json:"restaurant_id,omitempty"`
	Email               string     `json:"email"`
	FullName            string     `json:"full_name"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	SubscriptionEndDate *string    `json:"subscription_end_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type updateSubscriptionRequest struct {
	SubscriptionEndDate string `json:"subscription_end_date"`
}

type alertResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// ListPendingUsers handles GET /admin/users/pending.
func (h *AdminHandler) ListPendingUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsersByStatus(r.Context(), enum.UserStatusPending)
	if err != nil {
		log.Printf("ERROR: list pending users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ApproveUser handles POST /admin/users/{id}/approve.
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	h.setUserStatus(w, r, enum.UserStatusApproved)
}

// RejectUser handles POST /admin/users/{id}/reject.
func (h *AdminHandler) RejectUser(w http.ResponseWriter, r *http.Request) {
	h.setUserStatus(w, r, enum.UserStatusRejected)
}

// setUserStatus applies an approval decision. The update only matches PENDING
// users, so a missed update means either an unknown user or one already
// decided; a follow-up fetch tells the two apart.
func (h *AdminHandler) setUserStatus(w http.ResponseWriter, r *http.Request, status string) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	user, err := h.store.UpdateUserStatus(r.Context(), database.UpdateUserStatusParams{
		ID:     userID,
		Status: status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := h.store.GetUser(r.Context(), userID)
			if getErr != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "user is already " + existing.Status})
			return
		}
		log.Printf("ERROR: update user status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateSubscription handles PUT /admin/users/{id}/subscription.
func (h *AdminHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	endDate, err := time.Parse("2006-01-02", req.SubscriptionEndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subscription_end_date must be YYYY-MM-DD"})
		return
	}

	user, err := h.store.UpdateSubscription(r.Context(), database.UpdateSubscriptionParams{
		ID:                  userID,
		SubscriptionEndDate: pgtype.Date{Time: endDate, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Printf("ERROR: update subscription: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// The stale renewal alert no longer applies; the next derivation run will
	// recreate it if the new date still falls inside the window.
	if err := h.alerts.ClearRenewalAlert(r.Context(), userID); err != nil {
		log.Printf("ERROR: clear renewal alert: %v", err)
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListAlerts handles GET /admin/alerts. Alerts are derived on demand before
// listing, so the response always reflects the current expiry window.
func (h *AdminHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if _, err := h.alerts.DeriveRenewalAlerts(r.Context()); err != nil {
		log.Printf("ERROR: derive renewal alerts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		return
	}

	alerts, err := h.alerts.ListAlerts(r.Context(), uid)
	if err != nil {
		log.Printf("ERROR: list alerts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]alertResponse, len(alerts))
	for i, a := range alerts {
		resp[i] = alertResponse{ID: a.ID, Kind: a.Kind, Message: a.Message, CreatedAt: a.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toUserResponse(u database.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
	if u.RestaurantID.Valid {
		rid := uuid.UUID(u.RestaurantID.Bytes)
		resp.RestaurantID = &rid
	}
	if u.SubscriptionEndDate.Valid {
		d := u.SubscriptionEndDate.Time.Format("2006-01-02")
		resp.SubscriptionEndDate = &d
	}
	return resp
}
