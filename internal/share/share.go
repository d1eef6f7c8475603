// Package share builds and resolves customer-facing menu links. A link can
// resolve through a stored snapshot key or, when storage is unavailable to
// the customer, through a self-contained token that embeds the whole menu.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSnapshotDecode reports a share token that could not be decoded into a
// complete menu snapshot.
var ErrSnapshotDecode = errors.New("share: malformed snapshot token")

// MenuItem is one sellable entry in a shared menu. Prices are the online
// prices at the moment of sharing.
type MenuItem struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	InStock  bool            `json:"in_stock"`
}

// Snapshot is a frozen copy of a restaurant's public menu.
type Snapshot struct {
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	Name         string     `json:"name"`
	Address      string     `json:"address"`
	Menu         []MenuItem `json:"menu"`
}

// EncodeToken packs the snapshot into a URL-safe token. The token is not
// signed: it carries only data the restaurant already chose to publish, and
// the consuming side re-validates every order against it.
func EncodeToken(s Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeToken reverses EncodeToken. Any corruption, truncation or missing
// required field yields ErrSnapshotDecode rather than a partial snapshot.
func DecodeToken(token string) (Snapshot, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Snapshot{}, ErrSnapshotDecode
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, ErrSnapshotDecode
	}
	if s.RestaurantID == uuid.Nil || s.Name == "" || len(s.Menu) == 0 {
		return Snapshot{}, ErrSnapshotDecode
	}
	for _, item := range s.Menu {
		if item.ID == uuid.Nil || item.Name == "" {
			return Snapshot{}, ErrSnapshotDecode
		}
	}
	return s, nil
}
