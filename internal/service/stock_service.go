package service

import (
	"context"
	"fmt"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"
)

type AdjustStockRequest struct {
	ItemType string `json:"item_type" binding:"required,oneof=material product"`
	ItemID   uint   `json:"item_id" binding:"required"`
	NewStock int    `json:"new_stock" binding:"gte=0"`
	Notes    string `json:"notes"`
}

type AdjustStockResponse struct {
	ItemType           model.ItemKind `json:"item_type"`
	ItemID             uint           `json:"item_id"`
	PreviousStock      int            `json:"previous_stock"`
	NewStock           int            `json:"new_stock"`
	AdjustmentQuantity int            `json:"adjustment_quantity"` // new - previous, negative when stock went down
	StockLogID         uint           `json:"stock_log_id"`
}

type StockLevel struct {
	ItemType   model.ItemKind `json:"item_type"`
	ID         uint           `json:"id"`
	SKU        string         `json:"sku"`
	Name       string         `json:"name"`
	Stock      int            `json:"stock"`
	MinStock   int            `json:"min_stock"`
	Difference int            `json:"difference"`
	Low        bool           `json:"low"`
}

type StockSummary struct {
	Materials      []StockLevel `json:"materials"`
	Products       []StockLevel `json:"products"`
	TotalMaterials int          `json:"total_materials"`
	TotalProducts  int          `json:"total_products"`
	LowMaterials   int          `json:"low_materials"`
	LowProducts    int          `json:"low_products"`
}

// StockService exposes manual adjustment and read views over stock levels
// and the movement ledger.
type StockService interface {
	// Adjust sets an item's stock to an absolute value and logs the magnitude
	// of the change. Adjusting to the current value is rejected.
	Adjust(ctx context.Context, actor uint, req AdjustStockRequest) (*AdjustStockResponse, error)
	Summary(ctx context.Context) (*StockSummary, error)
	Logs(ctx context.Context, filter repository.StockLogFilter, page, limit int) (*ListResult[repository.StockLogView], error)
	Movements(ctx context.Context, item ItemRef, page, limit int) (*ListResult[repository.StockLogView], error)
}

type stockService struct {
	txManager    repository.TransactionManager
	materialRepo repository.MaterialRepository
	productRepo  repository.ProductRepository
	auditRepo    repository.AuditRepository
	mutator      StockMutator
	ledger       StockLedger
	events       *event.Dispatcher
}

func NewStockService(
	txManager repository.TransactionManager,
	materialRepo repository.MaterialRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) StockService {
	return &stockService{
		txManager:    txManager,
		materialRepo: materialRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
		mutator:      mutator,
		ledger:       ledger,
		events:       events,
	}
}

func (s *stockService) Adjust(ctx context.Context, actor uint, req AdjustStockRequest) (*AdjustStockResponse, error) {
	item, err := ParseItemRef(req.ItemType, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.NewStock < 0 {
		return nil, apperror.InvalidQuantity("stock cannot be adjusted to %d", req.NewStock)
	}

	var res *AdjustStockResponse
	var moved stockMovements
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		change, err := s.mutator.Apply(txCtx, item, model.MovementAdjust, req.NewStock)
		if err != nil {
			return err
		}
		delta := change.Current - change.Previous
		if delta == 0 {
			return apperror.Validation("no adjustment needed")
		}

		note := fmt.Sprintf("Stock adjusted from %d to %d", change.Previous, change.Current)
		if req.Notes != "" {
			note += ". " + req.Notes
		}
		entry := LedgerEntry{
			Item:     item,
			Movement: model.MovementAdjust,
			Quantity: abs(delta),
			RefType:  model.ReferenceAdjustment,
			Note:     note,
			ActorID:  actor,
		}
		row, err := s.ledger.Record(txCtx, entry)
		if err != nil {
			return err
		}
		moved = append(moved, newMovement(change, entry))

		res = &AdjustStockResponse{
			ItemType:           item.Kind(),
			ItemID:             item.ItemID(),
			PreviousStock:      change.Previous,
			NewStock:           change.Current,
			AdjustmentQuantity: delta,
			StockLogID:         row.ID,
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAdjustStock, string(item.Kind()), item.ItemID(), change.Name, res)
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return res, nil
}

func stockLevel(kind model.ItemKind, id uint, sku, name string, stock, minStock int) StockLevel {
	return StockLevel{
		ItemType:   kind,
		ID:         id,
		SKU:        sku,
		Name:       name,
		Stock:      stock,
		MinStock:   minStock,
		Difference: stock - minStock,
		Low:        stock <= minStock,
	}
}

func (s *stockService) Summary(ctx context.Context) (*StockSummary, error) {
	materials, err := s.materialRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	sum := &StockSummary{
		Materials:      make([]StockLevel, 0, len(materials)),
		Products:       make([]StockLevel, 0, len(products)),
		TotalMaterials: len(materials),
		TotalProducts:  len(products),
	}
	for _, m := range materials {
		lvl := stockLevel(model.ItemKindMaterial, m.ID, m.SKU, m.Name, m.Stock, m.MinStock)
		if lvl.Low {
			sum.LowMaterials++
		}
		sum.Materials = append(sum.Materials, lvl)
	}
	for _, p := range products {
		lvl := stockLevel(model.ItemKindProduct, p.ID, p.SKU, p.Name, p.Stock, p.MinStock)
		if lvl.Low {
			sum.LowProducts++
		}
		sum.Products = append(sum.Products, lvl)
	}
	return sum, nil
}

func (s *stockService) Logs(ctx context.Context, filter repository.StockLogFilter, page, limit int) (*ListResult[repository.StockLogView], error) {
	page, limit = normalizePage(page, limit)
	rows, total, err := s.ledger.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[repository.StockLogView]{Items: rows, Total: total, Page: page, Limit: limit}, nil
}

func (s *stockService) Movements(ctx context.Context, item ItemRef, page, limit int) (*ListResult[repository.StockLogView], error) {
	page, limit = normalizePage(page, limit)
	switch item.(type) {
	case MaterialRef:
		if _, err := s.materialRepo.FindByID(ctx, item.ItemID()); err != nil {
			return nil, err
		}
	case ProductRef:
		if _, err := s.productRepo.FindByID(ctx, item.ItemID()); err != nil {
			return nil, err
		}
	}
	rows, total, err := s.ledger.ListByItem(ctx, item, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[repository.StockLogView]{Items: rows, Total: total, Page: page, Limit: limit}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
