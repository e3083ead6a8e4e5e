package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"factory/internal/event"

	"go.uber.org/zap"
)

func TestPublishQueuesStockUpdate(t *testing.T) {
	hub := NewHub(zap.NewNop())

	err := hub.Publish(context.Background(), []event.StockMovement{{ItemType: "product", ItemID: 3, StockAfter: 7}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var msg struct {
		Event string                `json:"event"`
		Data  []event.StockMovement `json:"data"`
	}
	if err := json.Unmarshal(<-hub.Broadcast, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Event != "stock_updated" || len(msg.Data) != 1 || msg.Data[0].StockAfter != 7 {
		t.Errorf("message = %+v", msg)
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	for i := 0; i < cap(hub.Broadcast); i++ {
		if err := hub.Publish(context.Background(), []event.StockMovement{{}}); err != nil {
			t.Fatalf("Publish() #%d error = %v", i, err)
		}
	}
	if err := hub.Publish(context.Background(), []event.StockMovement{{}}); err == nil {
		t.Fatal("Publish() on a full queue should report the drop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d", hub.ClientCount())
	}
}
