package repository

import (
	"context"

	"factory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder) error
	FindByID(ctx context.Context, id uint) (*model.WorkOrder, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.WorkOrder, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.WorkOrder, int64, error)
	Update(ctx context.Context, wo *model.WorkOrder) error
	Delete(ctx context.Context, id uint) error
	NumberExists(ctx context.Context, number string) (bool, error)
	CountByProduct(ctx context.Context, productID uint, statuses []string) (int64, error)
}

type workOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, wo *model.WorkOrder) error {
	return duplicate(GetDB(ctx, r.db).Omit(clause.Associations).Create(wo).Error, "work order", "wo_number", wo.WONumber)
}

func (r *workOrderRepository) FindByID(ctx context.Context, id uint) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := GetDB(ctx, r.db).Preload("Product").First(&wo, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "work order", id)
	}
	return &wo, nil
}

func (r *workOrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&wo, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "work order", id)
	}
	return &wo, nil
}

// List filters by status, product (OrderFilter.PartnerID) and wo_number.
func (r *workOrderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.WorkOrder, int64, error) {
	var orders []model.WorkOrder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.WorkOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != 0 {
		query = query.Where("product_id = ?", filter.PartnerID)
	}
	if filter.Search != "" {
		query = query.Where("wo_number ILIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Product").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *workOrderRepository) Update(ctx context.Context, wo *model.WorkOrder) error {
	return duplicate(GetDB(ctx, r.db).Omit(clause.Associations).Save(wo).Error, "work order", "wo_number", wo.WONumber)
}

func (r *workOrderRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.WorkOrder{}).Error
}

func (r *workOrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.WorkOrder{}).Where("wo_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *workOrderRepository) CountByProduct(ctx context.Context, productID uint, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.WorkOrder{}).
		Where("product_id = ? AND status IN ?", productID, statuses).Count(&count).Error
	return count, err
}
