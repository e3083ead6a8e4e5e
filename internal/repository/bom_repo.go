package repository

import (
	"context"

	"factory/internal/model"

	"gorm.io/gorm"
)

type BOMRepository interface {
	Create(ctx context.Context, bom *model.BOM) error
	Update(ctx context.Context, bom *model.BOM) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.BOM, error)
	// ListByProduct returns the BOM lines of a product with their materials loaded,
	// ordered by material id.
	ListByProduct(ctx context.Context, productID uint) ([]model.BOM, error)
	CountByMaterial(ctx context.Context, materialID uint) (int64, error)
	CountByProduct(ctx context.Context, productID uint) (int64, error)
}

type bomRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) BOMRepository {
	return &bomRepository{db: db}
}

func (r *bomRepository) Create(ctx context.Context, bom *model.BOM) error {
	return duplicate(GetDB(ctx, r.db).Create(bom).Error, "bom entry", "product/material pair", "")
}

func (r *bomRepository) Update(ctx context.Context, bom *model.BOM) error {
	return GetDB(ctx, r.db).Model(bom).Updates(map[string]interface{}{
		"quantity": bom.Quantity,
		"notes":    bom.Notes,
	}).Error
}

func (r *bomRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.BOM{}).Error
}

func (r *bomRepository) FindByID(ctx context.Context, id uint) (*model.BOM, error) {
	var bom model.BOM
	if err := GetDB(ctx, r.db).Preload("Material").Preload("Product").First(&bom, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "bom entry", id)
	}
	return &bom, nil
}

func (r *bomRepository) ListByProduct(ctx context.Context, productID uint) ([]model.BOM, error) {
	var boms []model.BOM
	if err := GetDB(ctx, r.db).Preload("Material").
		Where("product_id = ?", productID).Order("material_id asc").Find(&boms).Error; err != nil {
		return nil, err
	}
	return boms, nil
}

func (r *bomRepository) CountByMaterial(ctx context.Context, materialID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.BOM{}).Where("material_id = ?", materialID).Count(&count).Error
	return count, err
}

func (r *bomRepository) CountByProduct(ctx context.Context, productID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.BOM{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}
