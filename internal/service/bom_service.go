package service

import (
	"context"

	"factory/internal/apperror"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type CreateBOMRequest struct {
	ProductID  uint            `json:"product_id" binding:"required"`
	MaterialID uint            `json:"material_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"gt=0"`
	Notes      string          `json:"notes"`
}

type UpdateBOMRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"gt=0"`
	Notes    string          `json:"notes"`
}

// BOMService maintains bill-of-materials lines. A product/material pair
// appears at most once.
type BOMService interface {
	ListByProduct(ctx context.Context, productID uint) ([]model.BOM, error)
	Requirements(ctx context.Context, productID uint, quantity int) ([]Requirement, error)
	Create(ctx context.Context, actor uint, req CreateBOMRequest) (*model.BOM, error)
	Update(ctx context.Context, actor uint, id uint, req UpdateBOMRequest) (*model.BOM, error)
	Delete(ctx context.Context, actor uint, id uint) error
}

type bomService struct {
	txManager    repository.TransactionManager
	bomRepo      repository.BOMRepository
	productRepo  repository.ProductRepository
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	calculator   BOMCalculator
}

func NewBOMService(
	txManager repository.TransactionManager,
	bomRepo repository.BOMRepository,
	productRepo repository.ProductRepository,
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	calculator BOMCalculator,
) BOMService {
	return &bomService{
		txManager:    txManager,
		bomRepo:      bomRepo,
		productRepo:  productRepo,
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		calculator:   calculator,
	}
}

func (s *bomService) ListByProduct(ctx context.Context, productID uint) ([]model.BOM, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.bomRepo.ListByProduct(ctx, productID)
}

func (s *bomService) Requirements(ctx context.Context, productID uint, quantity int) ([]Requirement, error) {
	return s.calculator.Calculate(ctx, productID, quantity)
}

func (s *bomService) Create(ctx context.Context, actor uint, req CreateBOMRequest) (*model.BOM, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.InvalidQuantity("bom quantity must be positive")
	}
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	material, err := s.materialRepo.FindByID(ctx, req.MaterialID)
	if err != nil {
		return nil, err
	}

	line := &model.BOM{
		ProductID:  req.ProductID,
		MaterialID: req.MaterialID,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.bomRepo.Create(txCtx, line); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateBOM, "bom", line.ID,
			product.Name+" / "+material.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.bomRepo.FindByID(ctx, line.ID)
}

func (s *bomService) Update(ctx context.Context, actor uint, id uint, req UpdateBOMRequest) (*model.BOM, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.InvalidQuantity("bom quantity must be positive")
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		line, err := s.bomRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		line.Quantity = req.Quantity
		line.Notes = req.Notes
		if err := s.bomRepo.Update(txCtx, line); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateBOM, "bom", line.ID, "", req)
	})
	if err != nil {
		return nil, err
	}
	return s.bomRepo.FindByID(ctx, id)
}

func (s *bomService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		line, err := s.bomRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.bomRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteBOM, "bom", line.ID, "",
			map[string]uint{"product_id": line.ProductID, "material_id": line.MaterialID})
	})
}
