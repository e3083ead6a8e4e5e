package service

import (
	"context"
	"time"

	"factory/internal/model"
	"factory/internal/repository"

	"go.uber.org/zap"
)

// DashboardCache is the read-through cache the dashboard uses. A cache that
// always misses is valid.
type DashboardCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type DashboardSummary struct {
	PurchaseOrders    map[string]int64 `json:"purchase_orders"`
	WorkOrders        map[string]int64 `json:"work_orders"`
	SalesOrders       map[string]int64 `json:"sales_orders"`
	ActiveWorkOrders  int64            `json:"active_work_orders"`
	PendingWorkOrders int64            `json:"pending_work_orders"`
	PendingSales      int64            `json:"pending_sales_orders"`
	PendingPurchases  int64            `json:"pending_purchase_orders"`
	TodayPurchases    int64            `json:"today_purchase_orders"`
	TodayWorkOrders   int64            `json:"today_work_orders"`
	TodaySales        int64            `json:"today_sales_orders"`
	LowStockMaterials int64            `json:"low_stock_materials"`
	LowStockProducts  int64            `json:"low_stock_products"`
}

type DashboardStats struct {
	Materials       repository.InventoryTotals  `json:"materials"`
	Products        repository.InventoryTotals  `json:"products"`
	ActiveSuppliers int64                       `json:"active_suppliers"`
	ActiveCustomers int64                       `json:"active_customers"`
	TopProducts     []repository.ProductRanking `json:"top_products"`
}

type DashboardService interface {
	Summary(ctx context.Context) (*DashboardSummary, error)
	Stats(ctx context.Context) (*DashboardStats, error)
	// Activities returns the latest stock movements, newest first.
	Activities(ctx context.Context, limit int) ([]repository.StockLogView, error)
}

type dashboardService struct {
	repo   repository.DashboardRepository
	ledger StockLedger
	cache  DashboardCache
	log    *zap.Logger
	now    func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository, ledger StockLedger, cache DashboardCache, log *zap.Logger) DashboardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &dashboardService{repo: repo, ledger: ledger, cache: cache, log: log, now: time.Now}
}

func (s *dashboardService) cached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

func (s *dashboardService) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.log.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *dashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	var sum DashboardSummary
	if s.cached(ctx, "summary", &sum) {
		return &sum, nil
	}

	po, err := s.repo.PurchaseOrderStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	wo, err := s.repo.WorkOrderStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	so, err := s.repo.SalesOrderStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayPO, todayWO, todaySO, err := s.repo.OrdersCreatedSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.InventoryTotals(ctx, model.ItemKindMaterial)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.InventoryTotals(ctx, model.ItemKindProduct)
	if err != nil {
		return nil, err
	}

	sum = DashboardSummary{
		PurchaseOrders:    po,
		WorkOrders:        wo,
		SalesOrders:       so,
		ActiveWorkOrders:  wo[model.WOStatusInProgress],
		PendingWorkOrders: wo[model.WOStatusPending],
		PendingSales:      so[model.SOStatusPending],
		PendingPurchases:  po[model.POStatusPending],
		TodayPurchases:    todayPO,
		TodayWorkOrders:   todayWO,
		TodaySales:        todaySO,
		LowStockMaterials: materials.LowStock,
		LowStockProducts:  products.LowStock,
	}
	s.store(ctx, "summary", sum)
	return &sum, nil
}

func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if s.cached(ctx, "stats", &stats) {
		return &stats, nil
	}

	materials, err := s.repo.InventoryTotals(ctx, model.ItemKindMaterial)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.InventoryTotals(ctx, model.ItemKindProduct)
	if err != nil {
		return nil, err
	}
	suppliers, customers, err := s.repo.ActivePartnerCounts(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopSellingProducts(ctx, s.now().AddDate(0, 0, -30), 5)
	if err != nil {
		return nil, err
	}

	stats = DashboardStats{
		Materials:       *materials,
		Products:        *products,
		ActiveSuppliers: suppliers,
		ActiveCustomers: customers,
		TopProducts:     top,
	}
	s.store(ctx, "stats", stats)
	return &stats, nil
}

func (s *dashboardService) Activities(ctx context.Context, limit int) ([]repository.StockLogView, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	rows, _, err := s.ledger.List(ctx, repository.StockLogFilter{}, 1, limit)
	return rows, err
}
