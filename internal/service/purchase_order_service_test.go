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

func createPO(t *testing.T, f *fixture, supplier uint, items ...POItemRequest) *model.PurchaseOrder {
	t.Helper()
	po, err := f.po.Create(context.Background(), 1, PurchaseOrderRequest{SupplierID: supplier, Items: items})
	if err != nil {
		t.Fatalf("create purchase order: %v", err)
	}
	return po
}

func poLine(material uint, qty int) POItemRequest {
	return POItemRequest{MaterialID: material, Quantity: qty, Price: decimal.NewFromInt(2500)}
}

func TestPurchaseOrderCreate(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 0, 0)

	po := createPO(t, f, supplier, poLine(rubber, 4), poLine(rubber, 2))

	if !strings.HasPrefix(po.PONumber, "PO") || len(po.PONumber) != len("PO")+6+3 {
		t.Errorf("po number = %q", po.PONumber)
	}
	if po.Status != model.POStatusPending {
		t.Errorf("status = %q, want pending", po.Status)
	}
	if !po.Total.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("total = %s, want 15000", po.Total)
	}
	if len(po.Items) != 2 {
		t.Errorf("items = %d, want 2", len(po.Items))
	}
	if len(f.store.audits) != 1 || f.store.audits[0].Action != model.ActionCreatePO {
		t.Errorf("audits = %+v", f.store.audits)
	}
}

func TestPurchaseOrderCreateValidation(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 0, 0)

	_, err := f.po.Create(context.Background(), 1, PurchaseOrderRequest{SupplierID: 999, Items: []POItemRequest{poLine(rubber, 1)}})
	var nf *apperror.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "supplier" {
		t.Fatalf("unknown supplier: err = %v", err)
	}

	_, err = f.po.Create(context.Background(), 1, PurchaseOrderRequest{SupplierID: supplier, Items: []POItemRequest{poLine(888, 1)}})
	if !errors.As(err, &nf) || nf.Entity != "material" {
		t.Fatalf("unknown material: err = %v", err)
	}

	_, err = f.po.Create(context.Background(), 1, PurchaseOrderRequest{SupplierID: supplier, Items: []POItemRequest{poLine(rubber, 0)}})
	var qtyErr *apperror.InvalidQuantityError
	if !errors.As(err, &qtyErr) {
		t.Fatalf("zero quantity: err = %v", err)
	}

	if len(f.store.pos) != 0 {
		t.Fatalf("orders = %d, want 0", len(f.store.pos))
	}
}

func TestPurchaseOrderReceive(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 10, 0)
	glue := f.addMaterial("MAT-GLUE", 3, 0)

	// Two lines for the same material collapse into one movement.
	po := createPO(t, f, supplier, poLine(rubber, 5), poLine(glue, 7), poLine(rubber, 15))
	ctx := context.Background()
	if _, err := f.po.Approve(ctx, 1, po.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	received, err := f.po.Receive(ctx, 1, po.ID)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.Status != model.POStatusReceived {
		t.Fatalf("status = %q, want received", received.Status)
	}
	if got := f.materialStock(rubber); got != 30 {
		t.Errorf("rubber stock = %d, want 30", got)
	}
	if got := f.materialStock(glue); got != 10 {
		t.Errorf("glue stock = %d, want 10", got)
	}

	logs := f.store.logsFor(model.ReferencePO, po.ID)
	if len(logs) != 2 {
		t.Fatalf("ledger rows = %d, want one per distinct material", len(logs))
	}
	for _, l := range logs {
		if l.MovementType != model.MovementIn {
			t.Errorf("movement = %q, want in", l.MovementType)
		}
		if l.Notes != "Received from PO: "+po.PONumber {
			t.Errorf("notes = %q", l.Notes)
		}
	}

	if len(f.sink.batches) != 1 || len(f.sink.batches[0]) != 2 {
		t.Fatalf("dispatched batches = %+v", f.sink.batches)
	}
	if m := f.sink.batches[0][0]; m.ItemID != rubber || m.StockBefore != 10 || m.StockAfter != 30 || m.ReferenceType != "PO" {
		t.Errorf("first movement = %+v", m)
	}

	// Receiving again is an invalid transition and changes nothing.
	_, err = f.po.Receive(ctx, 1, po.ID)
	var trErr *apperror.InvalidTransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("second receive: err = %v", err)
	}
	if got := f.materialStock(rubber); got != 30 {
		t.Errorf("rubber stock after second receive = %d", got)
	}
}

func TestPurchaseOrderReceiveFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 10, 0)
	glue := f.addMaterial("MAT-GLUE", 3, 0)

	po := createPO(t, f, supplier, poLine(rubber, 5), poLine(glue, 7))
	ctx := context.Background()
	if _, err := f.po.Approve(ctx, 1, po.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	auditsBefore := len(f.store.audits)

	// The second material fails after the first one was already moved.
	boom := errors.New("connection reset")
	f.store.failSetStock[glue] = boom

	_, err := f.po.Receive(ctx, 1, po.ID)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if got := f.store.pos[po.ID].Status; got != model.POStatusApproved {
		t.Errorf("status = %q, want approved", got)
	}
	if got := f.materialStock(rubber); got != 10 {
		t.Errorf("rubber stock = %d, want 10", got)
	}
	if got := f.materialStock(glue); got != 3 {
		t.Errorf("glue stock = %d, want 3", got)
	}
	if n := len(f.store.logs); n != 0 {
		t.Errorf("ledger rows = %d, want 0", n)
	}
	if n := len(f.store.audits); n != auditsBefore {
		t.Errorf("audits = %d, want %d", n, auditsBefore)
	}
	if len(f.sink.batches) != 0 {
		t.Errorf("events dispatched for a rolled back receive: %+v", f.sink.batches)
	}

	// Once the fault is gone the same order receives normally.
	delete(f.store.failSetStock, glue)
	if _, err := f.po.Receive(ctx, 1, po.ID); err != nil {
		t.Fatalf("retry receive: %v", err)
	}
	if got := f.materialStock(glue); got != 10 {
		t.Errorf("glue stock after retry = %d, want 10", got)
	}
}

func TestPurchaseOrderTransitions(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 0, 0)
	ctx := context.Background()

	pending := createPO(t, f, supplier, poLine(rubber, 1))
	var trErr *apperror.InvalidTransitionError

	if _, err := f.po.Receive(ctx, 1, pending.ID); !errors.As(err, &trErr) {
		t.Errorf("receive pending: err = %v", err)
	}

	cancelled, err := f.po.Cancel(ctx, 1, pending.ID)
	if err != nil || cancelled.Status != model.POStatusCancelled {
		t.Fatalf("cancel pending: %v, %+v", err, cancelled)
	}
	if _, err := f.po.Approve(ctx, 1, pending.ID); !errors.As(err, &trErr) {
		t.Errorf("approve cancelled: err = %v", err)
	}
	if _, err := f.po.Update(ctx, 1, pending.ID, PurchaseOrderRequest{SupplierID: supplier, Items: []POItemRequest{poLine(rubber, 2)}}); !errors.As(err, &trErr) {
		t.Errorf("update cancelled: err = %v", err)
	}

	approved := createPO(t, f, supplier, poLine(rubber, 1))
	if _, err := f.po.Approve(ctx, 1, approved.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.po.Approve(ctx, 1, approved.ID); !errors.As(err, &trErr) {
		t.Errorf("approve twice: err = %v", err)
	}
	if _, err := f.po.Receive(ctx, 1, approved.ID); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if _, err := f.po.Cancel(ctx, 1, approved.ID); !errors.As(err, &trErr) {
		t.Errorf("cancel received: err = %v", err)
	}
	if err := f.po.Delete(ctx, 1, approved.ID); !errors.As(err, &trErr) {
		t.Errorf("delete received: err = %v", err)
	}
}

func TestPurchaseOrderUpdateReplacesItems(t *testing.T) {
	f := newFixture(t)
	supplier := f.addSupplier()
	rubber := f.addMaterial("MAT-RUB", 0, 0)
	glue := f.addMaterial("MAT-GLUE", 0, 0)
	ctx := context.Background()

	po := createPO(t, f, supplier, poLine(rubber, 1))
	updated, err := f.po.Update(ctx, 1, po.ID, PurchaseOrderRequest{
		SupplierID: supplier,
		Notes:      "urgent",
		Items:      []POItemRequest{poLine(glue, 3)},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].MaterialID != glue {
		t.Fatalf("items = %+v", updated.Items)
	}
	if !updated.Total.Equal(decimal.NewFromInt(7500)) {
		t.Errorf("total = %s, want 7500", updated.Total)
	}
	if updated.PONumber != po.PONumber {
		t.Errorf("number changed from %q to %q", po.PONumber, updated.PONumber)
	}
}

func TestOrderRenameToTakenNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	supplier := f.addSupplier()
	customer := f.addCustomer()
	rubber := f.addMaterial("MAT-RUB", 0, 0)
	sandal := f.addProduct("PRD-SDL", 10)
	var dup *apperror.DuplicateError

	first := createPO(t, f, supplier, poLine(rubber, 1))
	second := createPO(t, f, supplier, poLine(rubber, 1))
	audits := len(f.store.audits)
	_, err := f.po.Update(ctx, 1, second.ID, PurchaseOrderRequest{
		PONumber: first.PONumber, SupplierID: supplier, Items: []POItemRequest{poLine(rubber, 3)},
	})
	if !errors.As(err, &dup) {
		t.Fatalf("purchase order: err = %v, want DuplicateError", err)
	}
	if got := f.store.pos[second.ID]; got.PONumber != second.PONumber || got.Items[0].Quantity != 1 {
		t.Errorf("purchase order changed: %+v", got)
	}
	if len(f.store.audits) != audits {
		t.Errorf("audit written for rejected rename")
	}

	firstWO := createWO(t, f, sandal, 1)
	secondWO := createWO(t, f, sandal, 1)
	_, err = f.wo.Update(ctx, 1, secondWO.ID, WorkOrderRequest{WONumber: firstWO.WONumber, ProductID: sandal, QuantityPlanned: 1})
	if !errors.As(err, &dup) {
		t.Errorf("work order: err = %v, want DuplicateError", err)
	}

	firstSO := confirmedSO(t, f, customer, soLine(sandal, 1))
	secondSO, err := f.so.Create(ctx, 1, SalesOrderRequest{CustomerID: customer, Items: []SOItemRequest{soLine(sandal, 1)}})
	if err != nil {
		t.Fatalf("create sales order: %v", err)
	}
	_, err = f.so.Update(ctx, 1, secondSO.ID, SalesOrderRequest{SONumber: firstSO.SONumber, CustomerID: customer, Items: []SOItemRequest{soLine(sandal, 2)}})
	if !errors.As(err, &dup) {
		t.Errorf("sales order: err = %v, want DuplicateError", err)
	}
}
