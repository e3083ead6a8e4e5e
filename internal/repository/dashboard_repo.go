package repository

import (
	"context"
	"fmt"
	"time"

	"factory/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductRanking is a product ordered by quantity sold.
type ProductRanking struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductSKU    string          `json:"product_sku"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// InventoryTotals aggregates active items of one kind.
type InventoryTotals struct {
	Active     int64           `json:"active"`
	LowStock   int64           `json:"low_stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}

type DashboardRepository interface {
	PurchaseOrderStatusCounts(ctx context.Context) (map[string]int64, error)
	WorkOrderStatusCounts(ctx context.Context) (map[string]int64, error)
	SalesOrderStatusCounts(ctx context.Context) (map[string]int64, error)
	OrdersCreatedSince(ctx context.Context, since time.Time) (po, wo, so int64, err error)
	InventoryTotals(ctx context.Context, kind model.ItemKind) (*InventoryTotals, error)
	ActivePartnerCounts(ctx context.Context) (suppliers, customers int64, err error)
	TopSellingProducts(ctx context.Context, since time.Time, limit int) ([]ProductRanking, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

type statusCount struct {
	Status string
	Count  int64
}

func (r *dashboardRepository) statusCounts(ctx context.Context, m interface{}) (map[string]int64, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(m).
		Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *dashboardRepository) PurchaseOrderStatusCounts(ctx context.Context) (map[string]int64, error) {
	return r.statusCounts(ctx, &model.PurchaseOrder{})
}

func (r *dashboardRepository) WorkOrderStatusCounts(ctx context.Context) (map[string]int64, error) {
	return r.statusCounts(ctx, &model.WorkOrder{})
}

func (r *dashboardRepository) SalesOrderStatusCounts(ctx context.Context) (map[string]int64, error) {
	return r.statusCounts(ctx, &model.SalesOrder{})
}

func (r *dashboardRepository) OrdersCreatedSince(ctx context.Context, since time.Time) (int64, int64, int64, error) {
	var po, wo, so int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.PurchaseOrder{}).Where("order_date >= ?", since).Count(&po).Error; err != nil {
		return 0, 0, 0, err
	}
	if err := db.Model(&model.WorkOrder{}).Where("created_at >= ?", since).Count(&wo).Error; err != nil {
		return 0, 0, 0, err
	}
	if err := db.Model(&model.SalesOrder{}).Where("order_date >= ?", since).Count(&so).Error; err != nil {
		return 0, 0, 0, err
	}
	return po, wo, so, nil
}

func (r *dashboardRepository) InventoryTotals(ctx context.Context, kind model.ItemKind) (*InventoryTotals, error) {
	var m interface{}
	switch kind {
	case model.ItemKindMaterial:
		m = &model.Material{}
	case model.ItemKindProduct:
		m = &model.Product{}
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}

	var totals InventoryTotals
	err := r.db.WithContext(ctx).Model(m).
		Select(`COUNT(*) AS active,
			COUNT(*) FILTER (WHERE stock <= min_stock) AS low_stock,
			COALESCE(SUM(stock * unit_price), 0) AS stock_value`).
		Where("status = ?", model.StatusActive).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s inventory: %w", kind, err)
	}
	return &totals, nil
}

func (r *dashboardRepository) ActivePartnerCounts(ctx context.Context) (int64, int64, error) {
	var suppliers, customers int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Supplier{}).Where("status = ?", model.StatusActive).Count(&suppliers).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&model.Customer{}).Where("status = ?", model.StatusActive).Count(&customers).Error; err != nil {
		return 0, 0, err
	}
	return suppliers, customers, nil
}

func (r *dashboardRepository) TopSellingProducts(ctx context.Context, since time.Time, limit int) ([]ProductRanking, error) {
	var rankings []ProductRanking
	if err := r.db.WithContext(ctx).Table("so_items").
		Select("products.id AS product_id, products.name AS product_name, products.sku AS product_sku, SUM(so_items.quantity) AS total_quantity, SUM(so_items.subtotal) AS total_value").
		Joins("JOIN products ON products.id = so_items.product_id").
		Joins("JOIN sales_orders ON sales_orders.id = so_items.so_id").
		Where("sales_orders.status IN ? AND sales_orders.order_date >= ?",
			[]string{model.SOStatusShipped, model.SOStatusCompleted}, since).
		Group("products.id, products.name, products.sku").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return rankings, nil
}
