package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/swadpos/api/internal/channel"
	"github.com/swadpos/api/internal/config"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
	"github.com/swadpos/api/internal/handler"
	mw "github.com/swadpos/api/internal/middleware"
	"github.com/swadpos/api/internal/service"
	"github.com/swadpos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware as
// needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, ch *channel.Channel, taxRate decimal.Decimal, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(pool, queries, func(db database.DBTX) handler.AuthStore {
		return database.New(db)
	}, cfg.JWTSecret)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)

	// Customer-facing self-service surface; the share link is the capability.
	publicHandler := handler.NewPublicHandler(queries, ch, taxRate)
	r.Get("/public/menu", publicHandler.Menu)
	r.Post("/public/orders", publicHandler.Checkout)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	alertService := service.NewAlertService(queries, loc)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Platform admin routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			adminHandler := handler.NewAdminHandler(queries, alertService)
			r.Get("/admin/users/pending", adminHandler.ListPendingUsers)
			r.Post("/admin/users/{id}/approve", adminHandler.ApproveUser)
			r.Post("/admin/users/{id}/reject", adminHandler.RejectUser)
			r.Put("/admin/users/{id}/subscription", adminHandler.UpdateSubscription)
			r.Get("/admin/alerts", adminHandler.ListAlerts)

			ticketHandler := handler.NewTicketHandler(queries)
			r.Get("/admin/tickets", ticketHandler.ListAll)
			r.Post("/admin/tickets/{id}/answer", ticketHandler.Answer)
			r.Post("/admin/tickets/{id}/close", ticketHandler.Close)
		})

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			// Orders
			newOrderStore := func(db database.DBTX) service.OrderStore {
				return database.New(db)
			}
			orderService := service.NewOrderService(pool, newOrderStore, taxRate)
			orderHandler := handler.NewOrderHandler(orderService, queries)
			r.Route("/orders", orderHandler.RegisterRoutes)

			// Menu
			menuHandler := handler.NewMenuHandler(queries, cfg.SnapshotTTL)
			r.Route("/menu", menuHandler.RegisterRoutes)

			// Dashboard
			dashboardHandler := handler.NewDashboardHandler(queries, alertService, loc)
			r.Get("/dashboard", dashboardHandler.Get)

			// Support tickets
			ticketHandler := handler.NewTicketHandler(queries)
			r.Post("/tickets", ticketHandler.Create)
			r.Get("/tickets", ticketHandler.List)
		})
	})

	return r
}
