package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID        uuid.UUID
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
}

type User struct {
	ID                  uuid.UUID
	RestaurantID        pgtype.UUID // null for platform admins
	Email               string
	PasswordHash        string
	FullName            string
	Role                string
	Status              string
	SubscriptionEndDate pgtype.Date
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Category     string
	OfflinePrice pgtype.Numeric
	OnlinePrice  pgtype.Numeric
	InStock      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	SourceKind     string
	SourceInfo     string
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	Discount       pgtype.Numeric
	DeliveryCharge pgtype.Numeric
	Total          pgtype.Numeric
	PaymentMethod  pgtype.Text
	PlacedAt       time.Time
	UpdatedAt      time.Time
}

// OrderItem is a value snapshot of a menu item at order time. Later menu
// edits never reach back into it.
type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Category   string
	UnitPrice  pgtype.Numeric
	Quantity   int32
}

// OrderHandoff is one pending customer order deposited by the public
// ordering page, keyed by the order's own id.
type OrderHandoff struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	Payload      []byte
	CreatedAt    time.Time
}

// MenuSnapshot is a session-scoped frozen copy of a restaurant's menu,
// addressed by the key embedded in a share link.
type MenuSnapshot struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Payload      []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Alert ids are deterministic (e.g. "renewal-<user id>") so re-deriving the
// same alert is a no-op.
type Alert struct {
	ID        string
	UserID    uuid.UUID
	Kind      string
	Message   string
	CreatedAt time.Time
}

type SupportTicket struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	Subject      string
	Message      string
	Reply        pgtype.Text
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
