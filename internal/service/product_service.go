package service

import (
	"context"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductRequest struct {
	SKU          string          `json:"sku" binding:"required,max=50"`
	Name         string          `json:"name" binding:"required,max=100"`
	Category     string          `json:"category" binding:"max=50"`
	Type         string          `json:"type" binding:"required,oneof=sendal boot"`
	Size         string          `json:"size" binding:"max=10"`
	Color        string          `json:"color" binding:"max=30"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"gte=0"`
	InitialStock int             `json:"initial_stock" binding:"gte=0"`
	MinStock     int             `json:"min_stock" binding:"gte=0"`
	Status       string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

type ProductService interface {
	Create(ctx context.Context, actor uint, req ProductRequest) (*model.Product, error)
	Get(ctx context.Context, id uint) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter, page, limit int) (*ListResult[model.Product], error)
	ListAll(ctx context.Context) ([]model.Product, error)
	LowStock(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, actor uint, id uint, req ProductRequest) (*model.Product, error)
	Delete(ctx context.Context, actor uint, id uint) error
}

type productService struct {
	txManager    repository.TransactionManager
	productRepo  repository.ProductRepository
	bomRepo      repository.BOMRepository
	soRepo       repository.SalesOrderRepository
	woRepo       repository.WorkOrderRepository
	stockLogRepo repository.StockLogRepository
	auditRepo    repository.AuditRepository
	mutator      StockMutator
	ledger       StockLedger
	events       *event.Dispatcher
}

func NewProductService(
	txManager repository.TransactionManager,
	productRepo repository.ProductRepository,
	bomRepo repository.BOMRepository,
	soRepo repository.SalesOrderRepository,
	woRepo repository.WorkOrderRepository,
	stockLogRepo repository.StockLogRepository,
	auditRepo repository.AuditRepository,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) ProductService {
	return &productService{
		txManager:    txManager,
		productRepo:  productRepo,
		bomRepo:      bomRepo,
		soRepo:       soRepo,
		woRepo:       woRepo,
		stockLogRepo: stockLogRepo,
		auditRepo:    auditRepo,
		mutator:      mutator,
		ledger:       ledger,
		events:       events,
	}
}

func (s *productService) Create(ctx context.Context, actor uint, req ProductRequest) (*model.Product, error) {
	if req.InitialStock < 0 || req.MinStock < 0 {
		return nil, apperror.InvalidQuantity("stock values cannot be negative")
	}

	product := &model.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		Category:  req.Category,
		Type:      req.Type,
		Size:      req.Size,
		Color:     req.Color,
		UnitPrice: req.UnitPrice,
		MinStock:  req.MinStock,
		Status:    defaultStatus(req.Status),
	}

	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return err
		}
		if req.InitialStock > 0 {
			if err := moved.initialStock(txCtx, s.mutator, s.ledger, ProductRef(product.ID), req.InitialStock, actor); err != nil {
				return err
			}
			product.Stock = req.InitialStock
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateProduct, "product", product.ID, product.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.productRepo.FindByID(ctx, product.ID)
}

func (s *productService) Get(ctx context.Context, id uint) (*model.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter, page, limit int) (*ListResult[model.Product], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.productRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.Product]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *productService) ListAll(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.ListAll(ctx)
}

func (s *productService) LowStock(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.ListLowStock(ctx)
}

func (s *productService) Update(ctx context.Context, actor uint, id uint, req ProductRequest) (*model.Product, error) {
	if req.MinStock < 0 {
		return nil, apperror.InvalidQuantity("min_stock cannot be negative")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		product.SKU = req.SKU
		product.Name = req.Name
		product.Category = req.Category
		product.Type = req.Type
		product.Size = req.Size
		product.Color = req.Color
		product.UnitPrice = req.UnitPrice
		product.MinStock = req.MinStock
		if req.Status != "" {
			product.Status = req.Status
		}
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProduct, "product", product.ID, product.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(ctx, id)
}

// Delete refuses products still referenced by a BOM, an open sales or work
// order, or the stock ledger.
func (s *productService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		checks := []struct {
			count  func() (int64, error)
			reason string
		}{
			{func() (int64, error) { return s.bomRepo.CountByProduct(txCtx, id) }, "it has a bill of materials"},
			{func() (int64, error) {
				return s.soRepo.CountItemsByProduct(txCtx, id, []string{model.SOStatusPending, model.SOStatusConfirmed})
			}, "it is used in pending or confirmed sales orders"},
			{func() (int64, error) {
				return s.woRepo.CountByProduct(txCtx, id, []string{model.WOStatusPending, model.WOStatusInProgress})
			}, "it is used in pending or in-progress work orders"},
			{func() (int64, error) { return s.stockLogRepo.CountByItem(txCtx, model.ItemKindProduct, id) }, "it has stock history"},
		}
		for _, c := range checks {
			n, err := c.count()
			if err != nil {
				return err
			}
			if n > 0 {
				return apperror.ReferentialIntegrity("product", c.reason)
			}
		}

		if err := s.productRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteProduct, "product", product.ID, product.Name, nil)
	})
}
