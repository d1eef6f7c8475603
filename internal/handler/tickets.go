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
	"github.com/swadpos/api/internal/middleware"
)

// TicketStore defines the database methods needed by ticket endpoints.
// Satisfied by *database.Queries.
type TicketStore interface {
	CreateTicket(ctx context.Context, arg database.CreateTicketParams) (database.SupportTicket, error)
	ListTicketsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.SupportTicket, error)
	ListAllTickets(ctx context.Context) ([]database.SupportTicket, error)
	AnswerTicket(ctx context.Context, arg database.AnswerTicketParams) (database.SupportTicket, error)
	CloseTicket(ctx context.Context, id uuid.UUID) (database.SupportTicket, error)
}

// TicketHandler serves support tickets: restaurant side (create, list own)
// and admin side (list all, answer, close).
type TicketHandler struct {
	store TicketStore
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(store TicketStore) *TicketHandler {
	return &TicketHandler{store: store}
}

// --- Request / Response types ---

type createTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type answerTicketRequest struct {
	Reply string `json:"reply"`
}

type ticketResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	Reply        *string   `json:"reply,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// --- Restaurant handlers ---

// Create handles POST /restaurants/{rid}/tickets.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Subject == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject and message are required"})
		return
	}

	ticket, err := h.store.CreateTicket(r.Context(), database.CreateTicketParams{
		RestaurantID: restaurantID,
		UserID:       claims.UserID,
		Subject:      req.Subject,
		Message:      req.Message,
	})
	if err != nil {
		log.Printf("ERROR: create ticket: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTicketResponse(ticket))
}

// List handles GET /restaurants/{rid}/tickets.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	tickets, err := h.store.ListTicketsByRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Printf("ERROR: list tickets: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTicketResponses(tickets))
}

// --- Admin handlers ---

// ListAll handles GET /admin/tickets.
func (h *TicketHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.store.ListAllTickets(r.Context())
	if err != nil {
		log.Printf("ERROR: list all tickets: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTicketResponses(tickets))
}

// Answer handles POST /admin/tickets/{id}/answer. Only OPEN tickets can be
// answered; anything else is a conflict.
func (h *TicketHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ticket id"})
		return
	}

	var req answerTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Reply == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reply is required"})
		return
	}

	ticket, err := h.store.AnswerTicket(r.Context(), database.AnswerTicketParams{
		ID:    ticketID,
		Reply: pgtype.Text{String: req.Reply, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ticket not found or not open"})
			return
		}
		log.Printf("ERROR: answer ticket: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// Close handles POST /admin/tickets/{id}/close.
func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ticket id"})
		return
	}

	ticket, err := h.store.CloseTicket(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "ticket not found or already closed"})
			return
		}
		log.Printf("ERROR: close ticket: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// --- Helpers ---

func toTicketResponse(t database.SupportTicket) ticketResponse {
	resp := ticketResponse{
		ID:           t.ID,
		RestaurantID: t.RestaurantID,
		Subject:      t.Subject,
		Message:      t.Message,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.Reply.Valid {
		resp.Reply = &t.Reply.String
	}
	return resp
}

func toTicketResponses(tickets []database.SupportTicket) []ticketResponse {
	resp := make([]ticketResponse, len(tickets))
	for i, t := range tickets {
		resp[i] = toTicketResponse(t)
	}
	return resp
}
