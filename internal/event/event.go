// Package event carries committed stock movements to the outside world.
package event

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StockMovement describes one committed change of an item's stock.
type StockMovement struct {
	ItemType      string    `json:"item_type"`
	ItemID        uint      `json:"item_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	MovementType  string    `json:"movement_type"`
	Quantity      int       `json:"quantity"`
	StockBefore   int       `json:"stock_before"`
	StockAfter    int       `json:"stock_after"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   uint      `json:"reference_id,omitempty"`
	ActorID       uint      `json:"actor_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Sink receives batches of movements after their transaction committed.
type Sink interface {
	Publish(ctx context.Context, movements []StockMovement) error
}

// Dispatcher fans movements out to every sink. Sink failures are logged and
// never reach the caller: the stock change is already committed.
type Dispatcher struct {
	sinks []Sink
	log   *zap.Logger
}

func NewDispatcher(log *zap.Logger, sinks ...Sink) *Dispatcher {
	active := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Dispatcher{sinks: active, log: log}
}

// Dispatch is safe to call on a nil Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, movements []StockMovement) {
	if d == nil || len(movements) == 0 {
		return
	}
	for _, s := range d.sinks {
		if err := s.Publish(ctx, movements); err != nil && d.log != nil {
			d.log.Warn("failed to publish stock movements",
				zap.String("sink", sinkName(s)),
				zap.Int("count", len(movements)),
				zap.Error(err),
			)
		}
	}
}

type named interface{ Name() string }

func sinkName(s Sink) string {
	if n, ok := s.(named); ok {
		return n.Name()
	}
	return "unknown"
}
