package channel

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/swadpos/api/internal/database"
	"github.com/swadpos/api/internal/ws"
)

// Broadcaster pushes events to connected operator dashboards.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRestaurant(restaurantID uuid.UUID, event ws.Event)
}

// Poller periodically drains every restaurant's pending handoffs and
// announces the resulting orders over WebSocket. It also clears expired
// menu-share snapshots on each tick.
type Poller struct {
	channel  *Channel
	store    Store
	hub      Broadcaster
	interval time.Duration
}

// NewPoller creates a Poller. interval comes from config.
func NewPoller(c *Channel, store Store, hub Broadcaster, interval time.Duration) *Poller {
	return &Poller{channel: c, store: store, hub: hub, interval: interval}
}

// Run blocks until ctx is cancelled, draining on each tick.
// This should be called as a goroutine: go poller.Run(ctx)
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if n, err := p.store.DeleteExpiredMenuSnapshots(ctx); err != nil {
		log.Printf("ERROR: poller: delete expired snapshots: %v", err)
	} else if n > 0 {
		log.Printf("Removed %d expired menu snapshots", n)
	}

	restaurants, err := p.store.ListRestaurantsWithHandoffs(ctx)
	if err != nil {
		log.Printf("ERROR: poller: list restaurants: %v", err)
		return
	}

	for _, rid := range restaurants {
		orders, err := p.channel.DrainPending(ctx, rid)
		if err != nil {
			log.Printf("ERROR: poller: drain restaurant %s: %v", rid, err)
			continue
		}
		for _, order := range orders {
			p.announce(rid, order)
		}
	}
}

func (p *Poller) announce(restaurantID uuid.UUID, order database.Order) {
	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"source_info":  order.SourceInfo,
		"status":       order.Status,
	})
	if err != nil {
		log.Printf("ERROR: poller: marshal event: %v", err)
		return
	}
	p.hub.BroadcastToRestaurant(restaurantID, ws.Event{
		Type:    "order.placed",
		Payload: payload,
	})
}
