package repository

import (
	"context"

	"factory/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows order listings. PartnerID is the supplier for purchase
// orders, the customer for sales orders and the product for work orders.
type OrderFilter struct {
	Status    string
	PartnerID uint
	Search    string
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id uint) (*model.PurchaseOrder, error)
	// FindByIDForUpdate locks the order row and loads its lines ordered by id.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseOrder, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error)
	UpdateHeader(ctx context.Context, po *model.PurchaseOrder) error
	ReplaceItems(ctx context.Context, poID uint, items []model.POItem) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	NumberExists(ctx context.Context, number string) (bool, error)
	CountBySupplier(ctx context.Context, supplierID uint, statuses []string) (int64, error)
	CountItemsByMaterial(ctx context.Context, materialID uint, statuses []string) (int64, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return duplicate(GetDB(ctx, r.db).Create(po).Error, "purchase order", "po_number", po.PONumber)
}

func (r *purchaseOrderRepository) FindByID(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Material").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	return &po, nil
}

func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	db := GetDB(ctx, r.db)
	var po model.PurchaseOrder
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	if err := db.Where("po_id = ?", id).Order("id asc").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PartnerID != 0 {
		query = query.Where("supplier_id = ?", filter.PartnerID)
	}
	if filter.Search != "" {
		query = query.Where("po_number ILIKE ?", "%"+filter.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Supplier").
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *purchaseOrderRepository) UpdateHeader(ctx context.Context, po *model.PurchaseOrder) error {
	return duplicate(GetDB(ctx, r.db).Omit(clause.Associations).Save(po).Error, "purchase order", "po_number", po.PONumber)
}

func (r *purchaseOrderRepository) ReplaceItems(ctx context.Context, poID uint, items []model.POItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("po_id = ?", poID).Delete(&model.POItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].POID = poID
	}
	return db.Omit(clause.Associations).Create(&items).Error
}

func (r *purchaseOrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *purchaseOrderRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("po_id = ?", id).Delete(&model.POItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *purchaseOrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("po_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *purchaseOrderRepository) CountBySupplier(ctx context.Context, supplierID uint, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("supplier_id = ? AND status IN ?", supplierID, statuses).Count(&count).Error
	return count, err
}

func (r *purchaseOrderRepository) CountItemsByMaterial(ctx context.Context, materialID uint, statuses []string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.POItem{}).
		Joins("JOIN purchase_orders ON purchase_orders.id = po_items.po_id").
		Where("po_items.material_id = ? AND purchase_orders.status IN ?", materialID, statuses).
		Count(&count).Error
	return count, err
}
