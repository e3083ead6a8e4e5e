package service

import (
	"context"
	"fmt"

	"factory/internal/apperror"
	"factory/internal/model"
	"factory/internal/repository"
)

// LedgerEntry is the input of StockLedger.Record. RefType "" and RefID 0 mean
// the movement has no originating document.
type LedgerEntry struct {
	Item     ItemRef
	Movement model.MovementType
	Quantity int
	RefType  model.ReferenceType
	RefID    uint
	Note     string
	ActorID  uint
}

// StockLedger appends movement rows and reads them back. There is no update
// or delete path.
type StockLedger interface {
	// Record inserts one row through the transaction carried by ctx, so the
	// row disappears if that transaction rolls back. Quantity is a positive
	// magnitude; the direction is carried by Movement.
	Record(ctx context.Context, entry LedgerEntry) (*model.StockLog, error)
	List(ctx context.Context, filter repository.StockLogFilter, page, limit int) ([]repository.StockLogView, int64, error)
	ListByItem(ctx context.Context, item ItemRef, page, limit int) ([]repository.StockLogView, int64, error)
}

type stockLedger struct {
	repo repository.StockLogRepository
}

func NewStockLedger(repo repository.StockLogRepository) StockLedger {
	return &stockLedger{repo: repo}
}

func (l *stockLedger) Record(ctx context.Context, entry LedgerEntry) (*model.StockLog, error) {
	if !repository.InTx(ctx) {
		return nil, errNoTransaction
	}
	if entry.Quantity <= 0 {
		return nil, apperror.InvalidQuantity("ledger quantity must be positive, got %d", entry.Quantity)
	}
	if !entry.Movement.Valid() {
		return nil, apperror.Validation("unknown movement type %q", entry.Movement)
	}

	row := &model.StockLog{
		ItemType:     entry.Item.Kind(),
		ItemID:       entry.Item.ItemID(),
		MovementType: entry.Movement,
		Quantity:     entry.Quantity,
		Notes:        entry.Note,
	}
	if entry.RefType != "" {
		refType := entry.RefType
		row.ReferenceType = &refType
	}
	if entry.RefID != 0 {
		refID := entry.RefID
		row.ReferenceID = &refID
	}
	if entry.ActorID != 0 {
		actor := entry.ActorID
		row.CreatedBy = &actor
	}

	if err := l.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to write stock log: %w", err)
	}
	return row, nil
}

func (l *stockLedger) List(ctx context.Context, filter repository.StockLogFilter, page, limit int) ([]repository.StockLogView, int64, error) {
	if filter.ItemType != "" && !filter.ItemType.Valid() {
		return nil, 0, apperror.Validation("unknown item type %q", filter.ItemType)
	}
	if filter.MovementType != "" && !filter.MovementType.Valid() {
		return nil, 0, apperror.Validation("unknown movement type %q", filter.MovementType)
	}
	return l.repo.List(ctx, filter, page, limit)
}

func (l *stockLedger) ListByItem(ctx context.Context, item ItemRef, page, limit int) ([]repository.StockLogView, int64, error) {
	return l.repo.List(ctx, repository.StockLogFilter{ItemType: item.Kind(), ItemID: item.ItemID()}, page, limit)
}

// moveStock applies an in or out movement and writes its ledger row in the
// same transaction. Both steps fail together.
func moveStock(ctx context.Context, mutator StockMutator, ledger StockLedger, entry LedgerEntry) (*StockChange, error) {
	change, err := mutator.Apply(ctx, entry.Item, entry.Movement, entry.Quantity)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.Record(ctx, entry); err != nil {
		return nil, err
	}
	return change, nil
}
