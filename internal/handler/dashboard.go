package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
	"github.com/swadpos/api/internal/middleware"
)

// DashboardStore defines the database methods needed by the dashboard.
// Satisfied by *database.Queries.
type DashboardStore interface {
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	CountOrdersByStatus(ctx context.Context, arg database.CountOrdersByStatusParams) ([]database.CountOrdersByStatusRow, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// DashboardHandler aggregates a restaurant's operational view for one day:
// sales split by channel, the kitchen pipeline and the incoming queue.
type DashboardHandler struct {
	store  DashboardStore
	alerts AlertDeriver
	loc    *time.Location
}

// NewDashboardHandler creates a new DashboardHandler. loc anchors day
// boundaries for the sales window.
func NewDashboardHandler(store DashboardStore, alerts AlertDeriver, loc *time.Location) *DashboardHandler {
	return &DashboardHandler{store: store, alerts: alerts, loc: loc}
}

type dashboardResponse struct {
	Date               string          `json:"date"`
	OnlineSales        string          `json:"online_sales"`
	OfflineSales       string          `json:"offline_sales"`
	TotalSales         string          `json:"total_sales"`
	OnlineOrders       int64           `json:"online_orders"`
	OfflineOrders      int64           `json:"offline_orders"`
	PreparationCount   int64           `json:"preparation_count"`
	PreparationOnline  int64           `json:"preparation_online"`
	PreparationOffline int64           `json:"preparation_offline"`
	IncomingOrders     []orderResponse `json:"incoming_orders"`
	Alerts             []alertResponse `json:"alerts"`
}

// Get handles GET /restaurants/{rid}/dashboard?date=YYYY-MM-DD.
// Defaults to today in the configured timezone.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant id"})
		return
	}

	day := time.Now().In(h.loc)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, h.loc)
	end := start.AddDate(0, 0, 1)

	sales, err := h.store.GetDailySales(r.Context(), database.GetDailySalesParams{
		RestaurantID: restaurantID,
		Start:        start,
		End:          end,
	})
	if err != nil {
		log.Printf("ERROR: get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dashboardResponse{
		Date:           start.Format("2006-01-02"),
		OnlineSales:    "0.00",
		OfflineSales:   "0.00",
		TotalSales:     "0.00",
		IncomingOrders: []orderResponse{},
		Alerts:         []alertResponse{},
	}
	total := decimal.Zero
	for _, row := range sales {
		amount := numericToDecimal(row.TotalSales)
		total = total.Add(amount)
		switch row.OrderType {
		case enum.OrderTypeOnline:
			resp.OnlineSales = amount.StringFixed(2)
			resp.OnlineOrders = row.OrderCount
		case enum.OrderTypeOffline:
			resp.OfflineSales = amount.StringFixed(2)
			resp.OfflineOrders = row.OrderCount
		}
	}
	resp.TotalSales = total.StringFixed(2)

	pipeline, err := h.store.CountOrdersByStatus(r.Context(), database.CountOrdersByStatusParams{
		RestaurantID: restaurantID,
		Status:       enum.OrderStatusPreparation,
	})
	if err != nil {
		log.Printf("ERROR: count preparation orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	for _, row := range pipeline {
		resp.PreparationCount += row.OrderCount
		switch row.OrderType {
		case enum.OrderTypeOnline:
			resp.PreparationOnline = row.OrderCount
		case enum.OrderTypeOffline:
			resp.PreparationOffline = row.OrderCount
		}
	}

	incoming, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		RestaurantID: restaurantID,
		Status:       pgtype.Text{String: enum.OrderStatusPlaced, Valid: true},
		Limit:        50,
	})
	if err != nil {
		log.Printf("ERROR: list incoming orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	for _, o := range incoming {
		resp.IncomingOrders = append(resp.IncomingOrders, dbOrderToResponse(o))
	}

	// Owner-facing renewal alerts ride along on the dashboard.
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		if _, err := h.alerts.DeriveRenewalAlerts(r.Context()); err != nil {
			log.Printf("ERROR: derive renewal alerts: %v", err)
		} else if alerts, err := h.alerts.ListAlerts(r.Context(), claims.UserID); err != nil {
			log.Printf("ERROR: list alerts: %v", err)
		} else {
			for _, a := range alerts {
				resp.Alerts = append(resp.Alerts, alertResponse{
					ID: a.ID, Kind: a.Kind, Message: a.Message, CreatedAt: a.CreatedAt,
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
