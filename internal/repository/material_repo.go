package repository

import (
	"context"

	"factory/internal/apperror"
	"factory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MaterialRepository interface {
	StockRepository
	Create(ctx context.Context, material *model.Material) error
	Update(ctx context.Context, material *model.Material) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Material, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error)
	List(ctx context.Context, filter ItemFilter, page, limit int) ([]model.Material, int64, error)
	ListAll(ctx context.Context) ([]model.Material, error)
	ListLowStock(ctx context.Context) ([]model.Material, error)
	CountBySupplier(ctx context.Context, supplierID uint) (int64, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *model.Material) error {
	return duplicate(GetDB(ctx, r.db).Create(material).Error, "material", "sku", material.SKU)
}

// Update saves catalog fields. Stock is excluded; it changes only through SetStock.
func (r *materialRepository) Update(ctx context.Context, material *model.Material) error {
	err := GetDB(ctx, r.db).Model(material).Omit("stock", "created_at", clause.Associations).
		Select("*").Updates(material).Error
	return duplicate(err, "material", "sku", material.SKU)
}

func (r *materialRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Material{}).Error
}

func (r *materialRepository) FindByID(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).Preload("Supplier").First(&material, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "material", id)
	}
	return &material, nil
}

func (r *materialRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error) {
	var materials []model.Material
	if len(ids) == 0 {
		return materials, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) List(ctx context.Context, filter ItemFilter, page, limit int) ([]model.Material, int64, error) {
	var materials []model.Material
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Material{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Supplier").Order("created_at desc").Offset(offset).Limit(limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *materialRepository) ListAll(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	if err := GetDB(ctx, r.db).Preload("Supplier").Order("name asc").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) ListLowStock(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := GetDB(ctx, r.db).
		Where("status = ? AND stock <= min_stock", model.StatusActive).
		Order("stock asc").Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) CountBySupplier(ctx context.Context, supplierID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Material{}).Where("supplier_id = ?", supplierID).Count(&count).Error
	return count, err
}

func (r *materialRepository) LockStock(ctx context.Context, id uint) (*StockRow, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "sku", "name", "stock").
		Where("id = ?", id).First(&material).Error; err != nil {
		return nil, notFound(err, "material", id)
	}
	return &StockRow{ID: material.ID, SKU: material.SKU, Name: material.Name, Stock: material.Stock}, nil
}

func (r *materialRepository) SetStock(ctx context.Context, id uint, stock int) error {
	res := GetDB(ctx, r.db).Model(&model.Material{}).Where("id = ?", id).Update("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("material", id)
	}
	return nil
}
