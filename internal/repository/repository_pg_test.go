package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"factory/internal/apperror"
	"factory/internal/database"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to the database named by TEST_DATABASE_DSN and
// migrates it. Tests that need it are skipped when the variable is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedMaterial(t *testing.T, repo repository.MaterialRepository, stock int) *model.Material {
	t.Helper()
	m := &model.Material{
		SKU:       fmt.Sprintf("TEST-%d", time.Now().UnixNano()),
		Name:      "Test rubber",
		Unit:      "kg",
		UnitPrice: decimal.NewFromInt(1200),
		Stock:     stock,
		Status:    model.StatusActive,
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("create material: %v", err)
	}
	return m
}

func TestMaterialDuplicateSKU(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewMaterialRepository(db)
	m := seedMaterial(t, repo, 0)

	err := repo.Create(context.Background(), &model.Material{SKU: m.SKU, Name: "copy", Unit: "kg", Status: model.StatusActive})
	var dup *apperror.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", err)
	}
}

func TestRollbackDiscardsStockAndLedger(t *testing.T) {
	db := openTestDB(t)
	tm := repository.NewTransactionManager(db)
	materials := repository.NewMaterialRepository(db)
	logs := repository.NewStockLogRepository(db)
	m := seedMaterial(t, materials, 10)
	ctx := context.Background()

	boom := errors.New("abort")
	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		row, err := materials.LockStock(txCtx, m.ID)
		if err != nil {
			return err
		}
		if err := materials.SetStock(txCtx, m.ID, row.Stock+5); err != nil {
			return err
		}
		if err := logs.Create(txCtx, &model.StockLog{
			ItemType:     model.ItemKindMaterial,
			ItemID:       m.ID,
			MovementType: model.MovementIn,
			Quantity:     5,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	got, err := materials.FindByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Stock != 10 {
		t.Errorf("stock = %d, want 10", got.Stock)
	}
	if n, _ := logs.CountByItem(ctx, model.ItemKindMaterial, m.ID); n != 0 {
		t.Errorf("ledger rows = %d, want 0", n)
	}
}

func TestStockCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	tm := repository.NewTransactionManager(db)
	materials := repository.NewMaterialRepository(db)
	m := seedMaterial(t, materials, 1)

	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		return materials.SetStock(txCtx, m.ID, -1)
	})
	if err == nil {
		t.Fatal("negative stock accepted")
	}
}

func TestMaterialNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewMaterialRepository(db)

	_, err := repo.FindByID(context.Background(), 0)
	var nf *apperror.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestPurchaseOrderRenameToTakenNumber(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	suppliers := repository.NewSupplierRepository(db)
	orders := repository.NewPurchaseOrderRepository(db)

	supplier := &model.Supplier{Name: "Test supplier", Status: model.StatusActive}
	if err := suppliers.Create(ctx, supplier); err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	stamp := time.Now().UnixNano()
	newPO := func(number string) *model.PurchaseOrder {
		po := &model.PurchaseOrder{
			PONumber:   number,
			SupplierID: supplier.ID,
			OrderDate:  time.Now(),
			Status:     model.POStatusPending,
		}
		if err := orders.Create(ctx, po); err != nil {
			t.Fatalf("create %s: %v", number, err)
		}
		return po
	}
	first := newPO(fmt.Sprintf("PO-A-%d", stamp))
	second := newPO(fmt.Sprintf("PO-B-%d", stamp))

	second.PONumber = first.PONumber
	err := orders.UpdateHeader(ctx, second)
	var dup *apperror.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("err = %v, want DuplicateError", err)
	}
}
