package service

import (
	"context"
	"errors"
	"testing"

	"factory/internal/apperror"
	"factory/internal/model"

	"github.com/shopspring/decimal"
)

func stockLogFor(kind model.ItemKind, id uint) model.StockLog {
	return model.StockLog{ItemType: kind, ItemID: id, MovementType: model.MovementIn, Quantity: 1}
}

func TestMaterialCreateInitialStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.materialSvc.Create(ctx, 3, MaterialRequest{
		SKU: "MAT-RUB", Name: "Rubber sheet", Unit: "sheet",
		UnitPrice: decimal.NewFromInt(12000), InitialStock: 25, MinStock: 5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Stock != 25 || m.Status != model.StatusActive {
		t.Errorf("material = %+v", m)
	}

	if len(f.store.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(f.store.logs))
	}
	l := f.store.logs[0]
	if l.MovementType != model.MovementAdjust || l.Quantity != 25 || l.Notes != "Initial stock" {
		t.Errorf("log = %+v", l)
	}
	if l.ReferenceType == nil || *l.ReferenceType != model.ReferenceAdjustment {
		t.Errorf("reference = %v", l.ReferenceType)
	}
	if l.CreatedBy == nil || *l.CreatedBy != 3 {
		t.Errorf("created_by = %v", l.CreatedBy)
	}
	if len(f.sink.batches) != 1 {
		t.Errorf("batches = %d, want 1", len(f.sink.batches))
	}

	if _, err := f.materialSvc.Create(ctx, 3, MaterialRequest{SKU: "MAT-STR", Name: "Strap", Unit: "pcs"}); err != nil {
		t.Fatalf("create without stock: %v", err)
	}
	if len(f.store.logs) != 1 || len(f.sink.batches) != 1 {
		t.Errorf("zero opening stock wrote logs %d batches %d", len(f.store.logs), len(f.sink.batches))
	}
}

func TestMaterialCreateDuplicateSKURollsBack(t *testing.T) {
	f := newFixture(t)
	f.addMaterial("MAT-RUB", 10, 0)

	_, err := f.materialSvc.Create(context.Background(), 1, MaterialRequest{SKU: "MAT-RUB", Name: "Copy", Unit: "kg", InitialStock: 4})
	var dup *apperror.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", err)
	}
	if len(f.store.logs) != 0 || len(f.store.audits) != 0 {
		t.Errorf("logs %d audits %d, want none", len(f.store.logs), len(f.store.audits))
	}
}

func TestProductCreateInitialStock(t *testing.T) {
	f := newFixture(t)

	p, err := f.productSvc.Create(context.Background(), 1, ProductRequest{
		SKU: "PRD-SDL", Name: "Sandal", Type: model.ProductTypeSendal, InitialStock: 12,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := f.productStock(p.ID); got != 12 {
		t.Errorf("stock = %d, want 12", got)
	}
	if len(f.store.logs) != 1 || f.store.logs[0].ItemType != model.ItemKindProduct || f.store.logs[0].Notes != "Initial stock" {
		t.Errorf("logs = %+v", f.store.logs)
	}
}

func TestMaterialDeleteGuards(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture, material uint)
		blocked bool
	}{
		{"unreferenced", func(*fixture, uint) {}, false},
		{"used in bom", func(f *fixture, m uint) {
			f.addBOM(f.addProduct("PRD-SDL", 0), m, "1")
		}, true},
		{"pending purchase order", func(f *fixture, m uint) {
			f.addPO(model.POStatusPending, m)
		}, true},
		{"approved purchase order", func(f *fixture, m uint) {
			f.addPO(model.POStatusApproved, m)
		}, true},
		{"cancelled purchase order", func(f *fixture, m uint) {
			f.addPO(model.POStatusCancelled, m)
		}, false},
		{"stock history", func(f *fixture, m uint) {
			f.store.logs = append(f.store.logs, stockLogFor(model.ItemKindMaterial, m))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			m := f.addMaterial("MAT-RUB", 0, 0)
			tt.setup(f, m)

			err := f.materialSvc.Delete(context.Background(), 1, m)
			_, exists := f.store.materials[m]
			if !tt.blocked {
				if err != nil || exists {
					t.Fatalf("err = %v, exists = %v", err, exists)
				}
				if len(f.store.audits) != 1 || f.store.audits[0].Action != model.ActionDeleteMaterial {
					t.Errorf("audits = %+v", f.store.audits)
				}
				return
			}
			var refErr *apperror.ReferentialIntegrityError
			if !errors.As(err, &refErr) {
				t.Fatalf("err = %v, want ReferentialIntegrityError", err)
			}
			if !exists || len(f.store.audits) != 0 {
				t.Errorf("exists = %v, audits = %d", exists, len(f.store.audits))
			}
		})
	}
}

func TestProductDeleteGuards(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture, product uint)
		blocked bool
	}{
		{"unreferenced", func(*fixture, uint) {}, false},
		{"has bom", func(f *fixture, p uint) {
			f.addBOM(p, f.addMaterial("MAT-RUB", 0, 0), "2")
		}, true},
		{"pending sales order", func(f *fixture, p uint) { f.addSO(model.SOStatusPending, p) }, true},
		{"confirmed sales order", func(f *fixture, p uint) { f.addSO(model.SOStatusConfirmed, p) }, true},
		{"shipped sales order", func(f *fixture, p uint) { f.addSO(model.SOStatusShipped, p) }, false},
		{"pending work order", func(f *fixture, p uint) { f.addWO(model.WOStatusPending, p) }, true},
		{"in-progress work order", func(f *fixture, p uint) { f.addWO(model.WOStatusInProgress, p) }, true},
		{"completed work order", func(f *fixture, p uint) { f.addWO(model.WOStatusCompleted, p) }, false},
		{"stock history", func(f *fixture, p uint) {
			f.store.logs = append(f.store.logs, stockLogFor(model.ItemKindProduct, p))
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.addProduct("PRD-BOOT", 0)
			tt.setup(f, p)

			err := f.productSvc.Delete(context.Background(), 1, p)
			_, exists := f.store.products[p]
			var refErr *apperror.ReferentialIntegrityError
			switch {
			case tt.blocked && !errors.As(err, &refErr):
				t.Fatalf("err = %v, want ReferentialIntegrityError", err)
			case tt.blocked && !exists:
				t.Fatal("blocked product was deleted")
			case !tt.blocked && (err != nil || exists):
				t.Fatalf("err = %v, exists = %v", err, exists)
			}
		})
	}
}

func TestSupplierDeleteGuards(t *testing.T) {
	ctx := context.Background()
	var refErr *apperror.ReferentialIntegrityError

	f := newFixture(t)
	supplier := f.addSupplier()
	m := f.addMaterial("MAT-RUB", 0, 0)
	mat := f.store.materials[m]
	mat.SupplierID = &supplier
	f.store.materials[m] = mat
	if err := f.supplierSvc.Delete(ctx, 1, supplier); !errors.As(err, &refErr) {
		t.Errorf("supplier with materials: err = %v", err)
	}

	f = newFixture(t)
	supplier = f.addSupplier()
	po := f.addPO(model.POStatusApproved, f.addMaterial("MAT-RUB", 0, 0))
	p := f.store.pos[po]
	p.SupplierID = supplier
	f.store.pos[po] = p
	if err := f.supplierSvc.Delete(ctx, 1, supplier); !errors.As(err, &refErr) {
		t.Errorf("supplier with approved order: err = %v", err)
	}
	p.Status = model.POStatusReceived
	f.store.pos[po] = p
	if err := f.supplierSvc.Delete(ctx, 1, supplier); err != nil {
		t.Errorf("supplier with received order: err = %v", err)
	}
	if _, ok := f.store.suppliers[supplier]; ok {
		t.Error("supplier not deleted")
	}
}

func TestCustomerDeleteGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	so := f.addSO(model.SOStatusConfirmed, f.addProduct("PRD-SDL", 0))
	customer := f.store.sos[so].CustomerID

	var refErr *apperror.ReferentialIntegrityError
	if err := f.customerSvc.Delete(ctx, 1, customer); !errors.As(err, &refErr) {
		t.Fatalf("customer with confirmed order: err = %v", err)
	}

	order := f.store.sos[so]
	order.Status = model.SOStatusCompleted
	f.store.sos[so] = order
	if err := f.customerSvc.Delete(ctx, 1, customer); err != nil {
		t.Fatalf("customer with completed order: err = %v", err)
	}
	if _, ok := f.store.customers[customer]; ok {
		t.Error("customer not deleted")
	}
}

func TestBOMCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rubber := f.addMaterial("MAT-RUB", 0, 0)
	sandal := f.addProduct("PRD-SDL", 0)

	line, err := f.bomSvc.Create(ctx, 1, CreateBOMRequest{ProductID: sandal, MaterialID: rubber, Quantity: decimal.RequireFromString("1.5")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !line.Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("quantity = %s", line.Quantity)
	}

	_, err = f.bomSvc.Create(ctx, 1, CreateBOMRequest{ProductID: sandal, MaterialID: rubber, Quantity: decimal.NewFromInt(2)})
	var dup *apperror.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("duplicate pair: err = %v, want DuplicateError", err)
	}
	if len(f.store.boms) != 1 || len(f.store.audits) != 1 {
		t.Errorf("boms %d audits %d, want 1 and 1", len(f.store.boms), len(f.store.audits))
	}

	var qtyErr *apperror.InvalidQuantityError
	if _, err := f.bomSvc.Create(ctx, 1, CreateBOMRequest{ProductID: sandal, MaterialID: rubber, Quantity: decimal.Zero}); !errors.As(err, &qtyErr) {
		t.Errorf("zero quantity: err = %v", err)
	}
	var nf *apperror.NotFoundError
	if _, err := f.bomSvc.Create(ctx, 1, CreateBOMRequest{ProductID: sandal, MaterialID: 9999, Quantity: decimal.NewFromInt(1)}); !errors.As(err, &nf) {
		t.Errorf("unknown material: err = %v", err)
	}

	lines, err := f.bomSvc.ListByProduct(ctx, sandal)
	if err != nil || len(lines) != 1 || lines[0].Material == nil {
		t.Fatalf("list = %+v, %v", lines, err)
	}
	if err := f.bomSvc.Delete(ctx, 1, line.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := f.boms.CountByProduct(ctx, sandal); n != 0 {
		t.Errorf("bom lines after delete = %d", n)
	}
}
