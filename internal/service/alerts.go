package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/enum"
)

// renewalWindowDays is how far ahead a subscription expiry starts showing up
// on the admin dashboard.
const renewalWindowDays = 7

// AlertStore defines the DB methods the alert service needs.
// Satisfied by *database.Queries.
type AlertStore interface {
	ListExpiringSubscriptions(ctx context.Context, arg database.ListExpiringSubscriptionsParams) ([]database.User, error)
	InsertAlertIfAbsent(ctx context.Context, arg database.InsertAlertParams) (bool, error)
	ListAlertsByUser(ctx context.Context, userID uuid.UUID) ([]database.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// AlertService derives dashboard alerts. Alert ids are deterministic, so
// deriving twice can never produce duplicates.
type AlertService struct {
	store AlertStore
	now   func() time.Time
}

// NewAlertService creates a new AlertService. loc anchors "today" for the
// expiry window.
func NewAlertService(store AlertStore, loc *time.Location) *AlertService {
	return &AlertService{
		store: store,
		now:   func() time.Time { return time.Now().In(loc) },
	}
}

// RenewalAlertID builds the deterministic id for one user's renewal alert.
func RenewalAlertID(userID uuid.UUID) string {
	return fmt.Sprintf("renewal-%s", userID)
}

// DeriveRenewalAlerts scans for subscriptions expiring within the renewal
// window and records one alert per user. Re-running it is a no-op for users
// already alerted. Returns the number of newly created alerts.
func (s *AlertService) DeriveRenewalAlerts(ctx context.Context) (int, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	users, err := s.store.ListExpiringSubscriptions(ctx, database.ListExpiringSubscriptionsParams{
		From: today,
		To:   today.AddDate(0, 0, renewalWindowDays),
	})
	if err != nil {
		return 0, fmt.Errorf("list expiring subscriptions: %w", err)
	}

	created := 0
	for _, u := range users {
		if !u.SubscriptionEndDate.Valid {
			continue
		}
		inserted, err := s.store.InsertAlertIfAbsent(ctx, database.InsertAlertParams{
			ID:      RenewalAlertID(u.ID),
			UserID:  u.ID,
			Kind:    enum.AlertKindRenewal,
			Message: fmt.Sprintf("Subscription for %s expires on %s", u.Email, u.SubscriptionEndDate.Time.Format("2006-01-02")),
		})
		if err != nil {
			return created, fmt.Errorf("insert alert: %w", err)
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// ListAlerts returns a user's alerts, newest first.
func (s *AlertService) ListAlerts(ctx context.Context, userID uuid.UUID) ([]database.Alert, error) {
	return s.store.ListAlertsByUser(ctx, userID)
}

// ClearRenewalAlert removes a user's renewal alert after their subscription
// has been extended. Deleting an alert that isn't there is a no-op.
func (s *AlertService) ClearRenewalAlert(ctx context.Context, userID uuid.UUID) error {
	return s.store.DeleteAlert(ctx, RenewalAlertID(userID))
}
