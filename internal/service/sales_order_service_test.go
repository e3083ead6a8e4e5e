package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"factory/internal/apperror"
	"factory/internal/model"

	"github.com/shopspring/decimal"
)

func soLine(product uint, qty int) SOItemRequest {
	return SOItemRequest{ProductID: product, Quantity: qty, Price: decimal.NewFromInt(85000)}
}

// confirmedSO creates a sales order and confirms it.
func confirmedSO(t *testing.T, f *fixture, customer uint, items ...SOItemRequest) *model.SalesOrder {
	t.Helper()
	ctx := context.Background()
	so, err := f.so.Create(ctx, 1, SalesOrderRequest{CustomerID: customer, Items: items})
	if err != nil {
		t.Fatalf("create sales order: %v", err)
	}
	if !strings.HasPrefix(so.SONumber, "SO") {
		t.Fatalf("so number = %q", so.SONumber)
	}
	so, err = f.so.Confirm(ctx, 1, so.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return so
}

func TestSalesOrderShip(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer()
	sandal := f.addProduct("PRD-SDL", 20)
	boot := f.addProduct("PRD-BOOT", 6)

	so := confirmedSO(t, f, customer, soLine(sandal, 5), soLine(boot, 6), soLine(sandal, 3))

	shipped, err := f.so.Ship(context.Background(), 2, so.ID)
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if shipped.Status != model.SOStatusShipped {
		t.Errorf("status = %q, want shipped", shipped.Status)
	}
	if got := f.productStock(sandal); got != 12 {
		t.Errorf("sandal stock = %d, want 12", got)
	}
	if got := f.productStock(boot); got != 0 {
		t.Errorf("boot stock = %d, want 0", got)
	}

	logs := f.store.logsFor(model.ReferenceSO, so.ID)
	if len(logs) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(logs))
	}
	for _, l := range logs {
		if l.MovementType != model.MovementOut || l.Notes != "Sold in SO: "+so.SONumber {
			t.Errorf("log = %+v", l)
		}
	}

	completed, err := f.so.Complete(context.Background(), 2, so.ID)
	if err != nil || completed.Status != model.SOStatusCompleted {
		t.Fatalf("complete: %v, %+v", err, completed)
	}
}

func TestSalesOrderShipShortage(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer()
	sandal := f.addProduct("PRD-SDL", 20)
	boot := f.addProduct("PRD-BOOT", 2)

	so := confirmedSO(t, f, customer, soLine(sandal, 5), soLine(boot, 5))

	_, err := f.so.Ship(context.Background(), 1, so.ID)
	var stockErr *apperror.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if len(stockErr.Shortages) != 1 {
		t.Fatalf("shortages = %+v, want 1", stockErr.Shortages)
	}
	if s := stockErr.Shortages[0]; s.ItemID != boot || s.Shortage != 3 || s.Available != 2 || s.Required != 5 {
		t.Errorf("shortage = %+v", s)
	}
	if got := f.store.sos[so.ID].Status; got != model.SOStatusConfirmed {
		t.Errorf("status = %q, want confirmed", got)
	}
	if f.productStock(sandal) != 20 || f.productStock(boot) != 2 {
		t.Errorf("stock changed: sandal %d boot %d", f.productStock(sandal), f.productStock(boot))
	}
	if len(f.store.logs) != 0 || len(f.sink.batches) != 0 {
		t.Errorf("logs %d batches %d, want none", len(f.store.logs), len(f.sink.batches))
	}
}

func TestSalesOrderShipReportsEveryShortLine(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer()
	sandal := f.addProduct("PRD-SDL", 1)
	boot := f.addProduct("PRD-BOOT", 0)

	so := confirmedSO(t, f, customer, soLine(sandal, 4), soLine(boot, 2))

	_, err := f.so.Ship(context.Background(), 1, so.ID)
	var stockErr *apperror.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if len(stockErr.Shortages) != 2 {
		t.Fatalf("shortages = %+v, want 2", stockErr.Shortages)
	}
	if stockErr.Shortages[0].ItemID != sandal || stockErr.Shortages[0].Shortage != 3 {
		t.Errorf("first = %+v", stockErr.Shortages[0])
	}
	if stockErr.Shortages[1].ItemID != boot || stockErr.Shortages[1].Shortage != 2 {
		t.Errorf("second = %+v", stockErr.Shortages[1])
	}
}

func TestSalesOrderTransitions(t *testing.T) {
	f := newFixture(t)
	customer := f.addCustomer()
	sandal := f.addProduct("PRD-SDL", 10)
	ctx := context.Background()
	var trErr *apperror.InvalidTransitionError

	so, err := f.so.Create(ctx, 1, SalesOrderRequest{CustomerID: customer, Items: []SOItemRequest{soLine(sandal, 1)}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.so.Ship(ctx, 1, so.ID); !errors.As(err, &trErr) {
		t.Errorf("ship pending: err = %v", err)
	}
	if _, err := f.so.Complete(ctx, 1, so.ID); !errors.As(err, &trErr) {
		t.Errorf("complete pending: err = %v", err)
	}
	if _, err := f.so.Cancel(ctx, 1, so.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if _, err := f.so.Confirm(ctx, 1, so.ID); !errors.As(err, &trErr) {
		t.Errorf("confirm cancelled: err = %v", err)
	}

	shipped := confirmedSO(t, f, customer, soLine(sandal, 1))
	if _, err := f.so.Ship(ctx, 1, shipped.ID); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if _, err := f.so.Cancel(ctx, 1, shipped.ID); !errors.As(err, &trErr) {
		t.Errorf("cancel shipped: err = %v", err)
	}
	if _, err := f.so.Ship(ctx, 1, shipped.ID); !errors.As(err, &trErr) {
		t.Errorf("ship twice: err = %v", err)
	}
	if got := f.productStock(sandal); got != 9 {
		t.Errorf("sandal stock = %d, want 9", got)
	}
}
