package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"

	"go.uber.org/zap"
)

func createWO(t *testing.T, f *fixture, product uint, planned int) *model.WorkOrder {
	t.Helper()
	wo, err := f.wo.Create(context.Background(), 1, WorkOrderRequest{ProductID: product, QuantityPlanned: planned})
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return wo
}

func TestWorkOrderStartConsumesMaterials(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 100, 0)
	strap := f.addMaterial("MAT-STR", 40, 0)
	sandal := f.addProduct("PRD-SDL", 0)
	f.addBOM(sandal, rubber, "2")
	f.addBOM(sandal, strap, "1")

	wo := createWO(t, f, sandal, 10)
	if !strings.HasPrefix(wo.WONumber, "WO") {
		t.Errorf("wo number = %q", wo.WONumber)
	}

	started, err := f.wo.Start(context.Background(), 7, wo.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != model.WOStatusInProgress {
		t.Errorf("status = %q, want in_progress", started.Status)
	}
	if started.StartDate == nil {
		t.Error("start date not set")
	}
	if got := f.materialStock(rubber); got != 80 {
		t.Errorf("rubber stock = %d, want 80", got)
	}
	if got := f.materialStock(strap); got != 30 {
		t.Errorf("strap stock = %d, want 30", got)
	}

	logs := f.store.logsFor(model.ReferenceWO, wo.ID)
	if len(logs) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(logs))
	}
	for _, l := range logs {
		if l.MovementType != model.MovementOut || l.ItemType != model.ItemKindMaterial {
			t.Errorf("log = %+v", l)
		}
		if l.Notes != "Used for WO: "+wo.WONumber {
			t.Errorf("notes = %q", l.Notes)
		}
		if l.CreatedBy == nil || *l.CreatedBy != 7 {
			t.Errorf("created_by = %v, want 7", l.CreatedBy)
		}
	}
	if len(f.sink.batches) != 1 || len(f.sink.batches[0]) != 2 {
		t.Errorf("dispatched = %+v", f.sink.batches)
	}
}

func TestWorkOrderStartShortageChangesNothing(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 100, 0)
	strap := f.addMaterial("MAT-STR", 4, 0)
	sandal := f.addProduct("PRD-SDL", 0)
	f.addBOM(sandal, rubber, "2")
	f.addBOM(sandal, strap, "1")

	wo := createWO(t, f, sandal, 10)
	_, err := f.wo.Start(context.Background(), 1, wo.ID)

	var matErr *apperror.InsufficientMaterialsError
	if !errors.As(err, &matErr) {
		t.Fatalf("err = %v, want InsufficientMaterialsError", err)
	}
	if len(matErr.Shortages) != 1 || matErr.Shortages[0].MaterialID != strap || matErr.Shortages[0].Shortage.IntPart() != 6 {
		t.Fatalf("shortages = %+v", matErr.Shortages)
	}
	if got := f.store.wos[wo.ID].Status; got != model.WOStatusPending {
		t.Errorf("status = %q, want pending", got)
	}
	if f.materialStock(rubber) != 100 || f.materialStock(strap) != 4 {
		t.Errorf("stock changed: rubber %d strap %d", f.materialStock(rubber), f.materialStock(strap))
	}
	if len(f.store.logs) != 0 || len(f.sink.batches) != 0 {
		t.Errorf("logs %d batches %d, want none", len(f.store.logs), len(f.sink.batches))
	}
}

func TestWorkOrderStartRoundsFractionalConsumption(t *testing.T) {
	f := newFixture(t)
	glue := f.addMaterial("MAT-GLUE", 10, 0)
	boot := f.addProduct("PRD-BOOT", 0)
	f.addBOM(boot, glue, "0.5")

	wo := createWO(t, f, boot, 3)
	if _, err := f.wo.Start(context.Background(), 1, wo.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// 1.5 units required, 2 consumed.
	if got := f.materialStock(glue); got != 8 {
		t.Errorf("glue stock = %d, want 8", got)
	}
}

func TestWorkOrderComplete(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 100, 0)
	sandal := f.addProduct("PRD-SDL", 4)
	f.addBOM(sandal, rubber, "1")
	ctx := context.Background()

	wo := createWO(t, f, sandal, 10)
	var trErr *apperror.InvalidTransitionError
	if _, err := f.wo.Complete(ctx, 1, wo.ID, 5); !errors.As(err, &trErr) {
		t.Fatalf("complete pending: err = %v", err)
	}

	if _, err := f.wo.Start(ctx, 1, wo.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	var qtyErr *apperror.InvalidQuantityError
	for _, qty := range []int{0, -1, 11} {
		if _, err := f.wo.Complete(ctx, 1, wo.ID, qty); !errors.As(err, &qtyErr) {
			t.Errorf("complete %d: err = %v, want InvalidQuantityError", qty, err)
		}
	}
	if got := f.productStock(sandal); got != 4 {
		t.Fatalf("product stock = %d after rejected completes", got)
	}

	done, err := f.wo.Complete(ctx, 1, wo.ID, 9)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.WOStatusCompleted || done.QuantityProduced != 9 || done.CompletionDate == nil {
		t.Errorf("work order = %+v", done)
	}
	if got := f.productStock(sandal); got != 13 {
		t.Errorf("product stock = %d, want 13", got)
	}

	var produced []model.StockLog
	for _, l := range f.store.logsFor(model.ReferenceWO, wo.ID) {
		if l.ItemType == model.ItemKindProduct {
			produced = append(produced, l)
		}
	}
	if len(produced) != 1 || produced[0].MovementType != model.MovementIn || produced[0].Quantity != 9 {
		t.Fatalf("product ledger rows = %+v", produced)
	}
	if produced[0].Notes != "Produced from WO: "+wo.WONumber {
		t.Errorf("notes = %q", produced[0].Notes)
	}

	if _, err := f.wo.Cancel(ctx, 1, wo.ID); !errors.As(err, &trErr) {
		t.Errorf("cancel completed: err = %v", err)
	}
}

func TestWorkOrderCancelKeepsConsumedMaterials(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 50, 0)
	sandal := f.addProduct("PRD-SDL", 0)
	f.addBOM(sandal, rubber, "2")
	ctx := context.Background()

	wo := createWO(t, f, sandal, 5)
	if _, err := f.wo.Start(ctx, 1, wo.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	logsAfterStart := len(f.store.logs)

	cancelled, err := f.wo.Cancel(ctx, 1, wo.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.WOStatusCancelled {
		t.Errorf("status = %q", cancelled.Status)
	}
	if got := f.materialStock(rubber); got != 40 {
		t.Errorf("rubber stock = %d, want 40", got)
	}
	if len(f.store.logs) != logsAfterStart {
		t.Errorf("cancel wrote ledger rows")
	}
}

func TestWorkOrderUpdateRules(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 50, 0)
	sandal := f.addProduct("PRD-SDL", 0)
	boot := f.addProduct("PRD-BOOT", 0)
	f.addBOM(sandal, rubber, "1")
	ctx := context.Background()

	wo := createWO(t, f, sandal, 5)
	updated, err := f.wo.Update(ctx, 1, wo.ID, WorkOrderRequest{ProductID: boot, QuantityPlanned: 8, Notes: "switch"})
	if err != nil {
		t.Fatalf("update pending: %v", err)
	}
	if updated.ProductID != boot || updated.QuantityPlanned != 8 {
		t.Errorf("work order = %+v", updated)
	}

	wo = createWO(t, f, sandal, 5)
	if _, err := f.wo.Start(ctx, 1, wo.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	var valErr *apperror.ValidationError
	if _, err := f.wo.Update(ctx, 1, wo.ID, WorkOrderRequest{ProductID: sandal, QuantityPlanned: 9}); !errors.As(err, &valErr) {
		t.Errorf("change quantity in progress: err = %v", err)
	}
	notes, err := f.wo.Update(ctx, 1, wo.ID, WorkOrderRequest{ProductID: sandal, QuantityPlanned: 5, Notes: "line 2"})
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if notes.Notes != "line 2" || notes.Status != model.WOStatusInProgress {
		t.Errorf("work order = %+v", notes)
	}

	var trErr *apperror.InvalidTransitionError
	if err := f.wo.Delete(ctx, 1, wo.ID); !errors.As(err, &trErr) {
		t.Errorf("delete in progress: err = %v", err)
	}
}

// staleCalculator reports requirements read before another transaction
// changed the stock.
type staleCalculator struct {
	BOMCalculator
	stock int
}

func (c staleCalculator) Calculate(ctx context.Context, productID uint, quantity int) ([]Requirement, error) {
	reqs, err := c.BOMCalculator.Calculate(ctx, productID, quantity)
	for i := range reqs {
		reqs[i] = reqs[i].withStock(c.stock)
	}
	return reqs, err
}

func TestWorkOrderStartMeasuresLockedStock(t *testing.T) {
	f := newFixture(t)
	rubber := f.addMaterial("MAT-RUB", 100, 0)
	strap := f.addMaterial("MAT-STR", 4, 0)
	sandal := f.addProduct("PRD-SDL", 0)
	f.addBOM(sandal, rubber, "2")
	f.addBOM(sandal, strap, "1")

	wos := NewWorkOrderService(f.tm, fakeWORepo{f.store}, f.products, fakeAuditRepo{f.store},
		staleCalculator{BOMCalculator: f.calculator, stock: 1000}, f.mutator, f.ledger,
		event.NewDispatcher(zap.NewNop(), f.sink))
	wo := createWO(t, f, sandal, 10)

	_, err := wos.Start(context.Background(), 1, wo.ID)
	var matErr *apperror.InsufficientMaterialsError
	if !errors.As(err, &matErr) {
		t.Fatalf("err = %v, want InsufficientMaterialsError", err)
	}
	if len(matErr.Shortages) != 1 {
		t.Fatalf("shortages = %+v", matErr.Shortages)
	}
	if s := matErr.Shortages[0]; s.MaterialID != strap || s.Available != 4 || s.Shortage.IntPart() != 6 {
		t.Errorf("shortage = %+v", s)
	}
	if f.materialStock(rubber) != 100 || len(f.store.logs) != 0 {
		t.Errorf("rubber %d logs %d, want untouched", f.materialStock(rubber), len(f.store.logs))
	}
}
