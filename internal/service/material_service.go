package service

import (
	"context"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type MaterialRequest struct {
	SKU          string          `json:"sku" binding:"required,max=50"`
	Name         string          `json:"name" binding:"required,max=100"`
	Category     string          `json:"category" binding:"max=50"`
	Unit         string          `json:"unit" binding:"required,max=20"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"gte=0"`
	InitialStock int             `json:"initial_stock" binding:"gte=0"`
	MinStock     int             `json:"min_stock" binding:"gte=0"`
	SupplierID   *uint           `json:"supplier_id"`
	Status       string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

// MaterialService manages the raw material catalog. Stock is never written
// through Update; it changes only through stock movements.
type MaterialService interface {
	Create(ctx context.Context, actor uint, req MaterialRequest) (*model.Material, error)
	Get(ctx context.Context, id uint) (*model.Material, error)
	List(ctx context.Context, filter repository.ItemFilter, page, limit int) (*ListResult[model.Material], error)
	ListAll(ctx context.Context) ([]model.Material, error)
	LowStock(ctx context.Context) ([]model.Material, error)
	Update(ctx context.Context, actor uint, id uint, req MaterialRequest) (*model.Material, error)
	Delete(ctx context.Context, actor uint, id uint) error
}

type materialService struct {
	txManager    repository.TransactionManager
	materialRepo repository.MaterialRepository
	supplierRepo repository.SupplierRepository
	bomRepo      repository.BOMRepository
	poRepo       repository.PurchaseOrderRepository
	stockLogRepo repository.StockLogRepository
	auditRepo    repository.AuditRepository
	mutator      StockMutator
	ledger       StockLedger
	events       *event.Dispatcher
}

func NewMaterialService(
	txManager repository.TransactionManager,
	materialRepo repository.MaterialRepository,
	supplierRepo repository.SupplierRepository,
	bomRepo repository.BOMRepository,
	poRepo repository.PurchaseOrderRepository,
	stockLogRepo repository.StockLogRepository,
	auditRepo repository.AuditRepository,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) MaterialService {
	return &materialService{
		txManager:    txManager,
		materialRepo: materialRepo,
		supplierRepo: supplierRepo,
		bomRepo:      bomRepo,
		poRepo:       poRepo,
		stockLogRepo: stockLogRepo,
		auditRepo:    auditRepo,
		mutator:      mutator,
		ledger:       ledger,
		events:       events,
	}
}

func (s *materialService) checkSupplier(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	_, err := s.supplierRepo.FindByID(ctx, *id)
	return err
}

func (s *materialService) Create(ctx context.Context, actor uint, req MaterialRequest) (*model.Material, error) {
	if req.InitialStock < 0 || req.MinStock < 0 {
		return nil, apperror.InvalidQuantity("stock values cannot be negative")
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	material := &model.Material{
		SKU:        req.SKU,
		Name:       req.Name,
		Category:   req.Category,
		Unit:       req.Unit,
		UnitPrice:  req.UnitPrice,
		MinStock:   req.MinStock,
		SupplierID: req.SupplierID,
		Status:     defaultStatus(req.Status),
	}

	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		if err := s.materialRepo.Create(txCtx, material); err != nil {
			return err
		}
		if req.InitialStock > 0 {
			if err := moved.initialStock(txCtx, s.mutator, s.ledger, MaterialRef(material.ID), req.InitialStock, actor); err != nil {
				return err
			}
			material.Stock = req.InitialStock
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateMaterial, "material", material.ID, material.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.materialRepo.FindByID(ctx, material.ID)
}

func (s *materialService) Get(ctx context.Context, id uint) (*model.Material, error) {
	return s.materialRepo.FindByID(ctx, id)
}

func (s *materialService) List(ctx context.Context, filter repository.ItemFilter, page, limit int) (*ListResult[model.Material], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.materialRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.Material]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *materialService) ListAll(ctx context.Context) ([]model.Material, error) {
	return s.materialRepo.ListAll(ctx)
}

func (s *materialService) LowStock(ctx context.Context) ([]model.Material, error) {
	return s.materialRepo.ListLowStock(ctx)
}

func (s *materialService) Update(ctx context.Context, actor uint, id uint, req MaterialRequest) (*model.Material, error) {
	if req.MinStock < 0 {
		return nil, apperror.InvalidQuantity("min_stock cannot be negative")
	}
	if err := s.checkSupplier(ctx, req.SupplierID); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		material, err := s.materialRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		material.SKU = req.SKU
		material.Name = req.Name
		material.Category = req.Category
		material.Unit = req.Unit
		material.UnitPrice = req.UnitPrice
		material.MinStock = req.MinStock
		material.SupplierID = req.SupplierID
		material.Supplier = nil
		if req.Status != "" {
			material.Status = req.Status
		}
		if err := s.materialRepo.Update(txCtx, material); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateMaterial, "material", material.ID, material.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.materialRepo.FindByID(ctx, id)
}

// Delete refuses materials still referenced by a BOM, an open purchase order
// or the stock ledger.
func (s *materialService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		material, err := s.materialRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		n, err := s.bomRepo.CountByMaterial(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("material", "it is used in a bill of materials")
		}
		n, err = s.poRepo.CountItemsByMaterial(txCtx, id, []string{model.POStatusPending, model.POStatusApproved})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("material", "it is used in pending or approved purchase orders")
		}
		n, err = s.stockLogRepo.CountByItem(txCtx, model.ItemKindMaterial, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("material", "it has stock history")
		}

		if err := s.materialRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteMaterial, "material", material.ID, material.Name, nil)
	})
}

func defaultStatus(status string) string {
	if status == "" {
		return model.StatusActive
	}
	return status
}

// initialStock sets a freshly created item's opening balance and logs it as
// an adjustment.
func (m *stockMovements) initialStock(ctx context.Context, mutator StockMutator, ledger StockLedger, item ItemRef, qty int, actor uint) error {
	change, err := mutator.Apply(ctx, item, model.MovementAdjust, qty)
	if err != nil {
		return err
	}
	entry := LedgerEntry{
		Item:     item,
		Movement: model.MovementAdjust,
		Quantity: qty,
		RefType:  model.ReferenceAdjustment,
		Note:     "Initial stock",
		ActorID:  actor,
	}
	if _, err := ledger.Record(ctx, entry); err != nil {
		return err
	}
	*m = append(*m, newMovement(change, entry))
	return nil
}
