package repository

import (
	"context"
	"time"

	"factory/internal/model"

	"gorm.io/gorm"
)

// StockLogFilter narrows ledger listings. Zero values mean "any".
type StockLogFilter struct {
	ItemType      model.ItemKind
	ItemID        uint
	MovementType  model.MovementType
	ReferenceType model.ReferenceType
}

// StockLogView is a ledger row joined with its item and creator names.
type StockLogView struct {
	ID            uint                 `json:"id"`
	ItemType      model.ItemKind       `json:"item_type"`
	ItemID        uint                 `json:"item_id"`
	ItemSKU       string               `json:"item_sku"`
	ItemName      string               `json:"item_name"`
	MovementType  model.MovementType   `json:"movement_type"`
	Quantity      int                  `json:"quantity"`
	ReferenceType *model.ReferenceType `json:"reference_type"`
	ReferenceID   *uint                `json:"reference_id"`
	Notes         string               `json:"notes"`
	CreatedBy     *uint                `json:"created_by"`
	CreatorName   string               `json:"created_by_name"`
	CreatedAt     time.Time            `json:"created_at"`
}

// StockLogRepository exposes inserts and reads only. Ledger rows are never updated or deleted.
type StockLogRepository interface {
	Create(ctx context.Context, entry *model.StockLog) error
	List(ctx context.Context, filter StockLogFilter, page, limit int) ([]StockLogView, int64, error)
	CountByItem(ctx context.Context, kind model.ItemKind, itemID uint) (int64, error)
}

type stockLogRepository struct {
	db *gorm.DB
}

func NewStockLogRepository(db *gorm.DB) StockLogRepository {
	return &stockLogRepository{db: db}
}

func (r *stockLogRepository) Create(ctx context.Context, entry *model.StockLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *stockLogRepository) List(ctx context.Context, filter StockLogFilter, page, limit int) ([]StockLogView, int64, error) {
	var total int64
	views := []StockLogView{}

	scoped := func(db *gorm.DB) *gorm.DB {
		if filter.ItemType != "" {
			db = db.Where("stock_logs.item_type = ?", filter.ItemType)
		}
		if filter.ItemID != 0 {
			db = db.Where("stock_logs.item_id = ?", filter.ItemID)
		}
		if filter.MovementType != "" {
			db = db.Where("stock_logs.movement_type = ?", filter.MovementType)
		}
		if filter.ReferenceType != "" {
			db = db.Where("stock_logs.reference_type = ?", filter.ReferenceType)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.StockLog{}).Scopes(scoped).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Table("stock_logs").
		Select(`stock_logs.id, stock_logs.item_type, stock_logs.item_id,
			COALESCE(m.sku, p.sku, '') AS item_sku,
			COALESCE(m.name, p.name, '') AS item_name,
			stock_logs.movement_type, stock_logs.quantity,
			stock_logs.reference_type, stock_logs.reference_id, stock_logs.notes,
			stock_logs.created_by, COALESCE(u.full_name, '') AS creator_name,
			stock_logs.created_at`).
		Joins("LEFT JOIN raw_materials m ON stock_logs.item_type = ? AND m.id = stock_logs.item_id", model.ItemKindMaterial).
		Joins("LEFT JOIN products p ON stock_logs.item_type = ? AND p.id = stock_logs.item_id", model.ItemKindProduct).
		Joins("LEFT JOIN users u ON u.id = stock_logs.created_by").
		Scopes(scoped).
		Order("stock_logs.created_at DESC, stock_logs.id DESC").
		Offset(offset).Limit(limit).
		Scan(&views).Error
	if err != nil {
		return nil, 0, err
	}

	return views, total, nil
}

func (r *stockLogRepository) CountByItem(ctx context.Context, kind model.ItemKind, itemID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StockLog{}).
		Where("item_type = ? AND item_id = ?", kind, itemID).Count(&count).Error
	return count, err
}
