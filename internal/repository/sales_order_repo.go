package repository

import (
	"context"

	"factory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SalesOrderRepository interface {
	Create(ctx context.Context, so *model.SalesOrder) error
	FindByID(ctx context.Context, id uint) (*model.SalesOrder, error)
	// FindByIDForUpdate locks the order row and loads its lines ordered by id.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.SalesOrder, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.SalesOrder, int64, error)
	UpdateHeader(ctx context.Context, so *model.SalesOrder) error
	ReplaceItems(ctx context.Context, soID uint, items []model.SOItem) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	NumberExists(ctx context.Context, number string) (bool, error)
	CountByCustomer(ctx context.Context, customerID uint, statuses []string) (int64, error)
	CountItemsByProduct(ctx context.Context, productID uint, statuses []string) (int64, error)
}

type salesOrderRepository struct {
	db *gorm.DB
}

func NewSalesOrderRepository(db *gorm.DB) SalesOrderRepository {
	return &salesOrderRepository{db: db}
}

func (r *salesOrderRepository) Create(ctx context.Context, so *model.SalesOrder) error {
	return duplicate(GetDB(ctx, r.db).Create(so).Error, "sales order", "so_number", so.SONumber)
}

func (r *salesOrderRepository) FindByID(ctx context.Context, id uint) (*model.SalesOrder, error) {
	var so model.SalesOrder
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		First(&so, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sales order", id)
	}
	return &so, nil
}

func (r *salesOrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.SalesOrder, error) {
	db := GetDB(ctx, r.db)
	var so model.SalesOrder
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&so, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sales order", id)
	}
	if err := db.Where("so_id = ?", id).Order("id asc").Find(&so.Items).Error; err != nil {
		return nil, err
	}
	return &so, nil
}

func (r *salesOrderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.SalesOrder, int64, error) {
	var orders []model.SalesOrder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.SalesOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != 0 {
		query = query.Where("customer_id = ?", filter.PartnerID)
	}
	if filter.Search != "" {
		query = query.Where("so_number ILIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Customer").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *salesOrderRepository) UpdateHeader(ctx context.Context, so *model.SalesOrder) error {
	return duplicate(GetDB(ctx, r.db).Omit(clause.Associations).Save(so).Error, "sales order", "so_number", so.SONumber)
}

func (r *salesOrderRepository) ReplaceItems(ctx context.Context, soID uint, items []model.SOItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("so_id = ?", soID).Delete(&model.SOItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].SOID = soID
	}
	return db.Omit(clause.Associations).Create(&items).Error
}

func (r *salesOrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return GetDB(ctx, r.db).Model(&model.SalesOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *salesOrderRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("so_id = ?", id).Delete(&model.SOItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.SalesOrder{}).Error
}

func (r *salesOrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SalesOrder{}).Where("so_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *salesOrderRepository) CountByCustomer(ctx context.Context, customerID uint, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SalesOrder{}).
		Where("customer_id = ? AND status IN ?", customerID, statuses).Count(&count).Error
	return count, err
}

func (r *salesOrderRepository) CountItemsByProduct(ctx context.Context, productID uint, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.SOItem{}).
		Joins("JOIN sales_orders ON sales_orders.id = so_items.so_id").
		Where("so_items.product_id = ? AND sales_orders.status IN ?", productID, statuses).
		Count(&count).Error
	return count, err
}
