package service

import (
	"context"
	"fmt"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type SOItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	Price     decimal.Decimal `json:"price" binding:"gte=0"`
}

type SalesOrderRequest struct {
	SONumber   string          `json:"so_number" binding:"omitempty,max=50"`
	CustomerID uint            `json:"customer_id" binding:"required"`
	OrderDate  string          `json:"order_date" binding:"omitempty,datetime=2006-01-02"`
	Notes      string          `json:"notes"`
	Items      []SOItemRequest `json:"items" binding:"required,min=1,dive"`
}

// SalesOrderService drives sales orders through pending -> confirmed ->
// shipped -> completed. Shipping is the only transition that touches stock.
type SalesOrderService interface {
	Create(ctx context.Context, actor uint, req SalesOrderRequest) (*model.SalesOrder, error)
	Get(ctx context.Context, id uint) (*model.SalesOrder, error)
	List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.SalesOrder], error)
	Update(ctx context.Context, actor uint, id uint, req SalesOrderRequest) (*model.SalesOrder, error)
	Delete(ctx context.Context, actor uint, id uint) error
	Confirm(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error)
	// Ship reports every short product in one InsufficientStockError before
	// changing anything.
	Ship(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error)
	Complete(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error)
	Cancel(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error)
}

type salesOrderService struct {
	txManager    repository.TransactionManager
	soRepo       repository.SalesOrderRepository
	customerRepo repository.CustomerRepository
	productRepo  repository.ProductRepository
	auditRepo    repository.AuditRepository
	mutator      StockMutator
	ledger       StockLedger
	events       *event.Dispatcher
	numbers      orderNumbers
}

func NewSalesOrderService(
	txManager repository.TransactionManager,
	soRepo repository.SalesOrderRepository,
	customerRepo repository.CustomerRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) SalesOrderService {
	return &salesOrderService{
		txManager:    txManager,
		soRepo:       soRepo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
		mutator:      mutator,
		ledger:       ledger,
		events:       events,
		numbers:      newOrderNumbers(),
	}
}

func (s *salesOrderService) buildItems(ctx context.Context, reqs []SOItemRequest) ([]model.SOItem, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, apperror.Validation("sales order needs at least one item")
	}

	ids := make([]uint, 0, len(reqs))
	seen := make(map[uint]bool, len(reqs))
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, decimal.Zero, apperror.InvalidQuantity("item quantity must be positive, got %d", r.Quantity)
		}
		if r.Price.IsNegative() {
			return nil, decimal.Zero, apperror.Validation("item price cannot be negative")
		}
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			ids = append(ids, r.ProductID)
		}
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	found := make(map[uint]bool, len(products))
	for _, p := range products {
		found[p.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, decimal.Zero, apperror.NotFound("product", id)
		}
	}

	total := decimal.Zero
	items := make([]model.SOItem, 0, len(reqs))
	for _, r := range reqs {
		subtotal := r.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))
		total = total.Add(subtotal)
		items = append(items, model.SOItem{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			Price:     r.Price,
			Subtotal:  subtotal,
		})
	}
	return items, total, nil
}

func (s *salesOrderService) Create(ctx context.Context, actor uint, req SalesOrderRequest) (*model.SalesOrder, error) {
	if _, err := s.customerRepo.FindByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	orderDate, err := parseOrderDate(req.OrderDate, s.numbers.now())
	if err != nil {
		return nil, err
	}
	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	so := &model.SalesOrder{
		SONumber:   req.SONumber,
		CustomerID: req.CustomerID,
		OrderDate:  orderDate,
		Status:     model.SOStatusPending,
		Total:      total,
		Notes:      req.Notes,
		CreatedBy:  actorPtr(actor),
		Items:      items,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if so.SONumber == "" {
			number, err := s.numbers.next(txCtx, "SO", "sales order", s.soRepo.NumberExists)
			if err != nil {
				return err
			}
			so.SONumber = number
		}
		if err := s.soRepo.Create(txCtx, so); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSO, "sales_order", so.ID, so.SONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.soRepo.FindByID(ctx, so.ID)
}

func (s *salesOrderService) Get(ctx context.Context, id uint) (*model.SalesOrder, error) {
	return s.soRepo.FindByID(ctx, id)
}

func (s *salesOrderService) List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.SalesOrder], error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.soRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.SalesOrder]{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *salesOrderService) Update(ctx context.Context, actor uint, id uint, req SalesOrderRequest) (*model.SalesOrder, error) {
	if _, err := s.customerRepo.FindByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		so, err := s.soRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		switch so.Status {
		case model.SOStatusShipped, model.SOStatusCompleted, model.SOStatusCancelled:
			return apperror.InvalidTransition("sales order", so.Status, "update")
		}

		if req.OrderDate != "" {
			orderDate, err := parseOrderDate(req.OrderDate, s.numbers.now())
			if err != nil {
				return err
			}
			so.OrderDate = orderDate
		}
		if req.SONumber != "" {
			so.SONumber = req.SONumber
		}
		so.CustomerID = req.CustomerID
		so.Notes = req.Notes
		so.Total = total

		if err := s.soRepo.UpdateHeader(txCtx, so); err != nil {
			return err
		}
		if err := s.soRepo.ReplaceItems(txCtx, so.ID, items); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSO, "sales_order", so.ID, so.SONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.soRepo.FindByID(ctx, id)
}

func (s *salesOrderService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		so, err := s.soRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if so.Status == model.SOStatusShipped || so.Status == model.SOStatusCompleted {
			return apperror.InvalidTransition("sales order", so.Status, "delete")
		}
		if err := s.soRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSO, "sales_order", so.ID, so.SONumber, nil)
	})
}

func (s *salesOrderService) transition(ctx context.Context, actor uint, id uint, action, auditAction, next string, from ...string) (*model.SalesOrder, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		so, err := s.soRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !statusIn(so.Status, from) {
			return apperror.InvalidTransition("sales order", so.Status, action)
		}
		if err := s.soRepo.UpdateStatus(txCtx, id, next); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, auditAction, "sales_order", so.ID, so.SONumber,
			map[string]string{"from": so.Status, "to": next})
	})
	if err != nil {
		return nil, err
	}
	return s.soRepo.FindByID(ctx, id)
}

func (s *salesOrderService) Confirm(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, actor, id, "confirm", model.ActionConfirmSO, model.SOStatusConfirmed, model.SOStatusPending)
}

func (s *salesOrderService) Complete(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, actor, id, "complete", model.ActionCompleteSO, model.SOStatusCompleted, model.SOStatusShipped)
}

func (s *salesOrderService) Cancel(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, actor, id, "cancel", model.ActionCancelSO, model.SOStatusCancelled,
		model.SOStatusPending, model.SOStatusConfirmed)
}

func (s *salesOrderService) Ship(ctx context.Context, actor uint, id uint) (*model.SalesOrder, error) {
	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		so, err := s.soRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if so.Status != model.SOStatusConfirmed {
			return apperror.InvalidTransition("sales order", so.Status, "ship")
		}

		lines := aggregateLines(so.Items, func(it model.SOItem) (uint, int) { return it.ProductID, it.Quantity })

		// Lock every product first so the shortage report covers all lines.
		var shortages []apperror.Shortage
		for _, line := range lines {
			row, err := s.mutator.Lock(txCtx, ProductRef(line.ID))
			if err != nil {
				return err
			}
			if row.Stock < line.Quantity {
				shortages = append(shortages, apperror.Shortage{
					ItemType:  string(model.ItemKindProduct),
					ItemID:    line.ID,
					Name:      row.Name,
					Required:  line.Quantity,
					Available: row.Stock,
					Shortage:  line.Quantity - row.Stock,
				})
			}
		}
		if len(shortages) > 0 {
			return &apperror.InsufficientStockError{Shortages: shortages}
		}

		for _, line := range lines {
			err := moved.move(txCtx, s.mutator, s.ledger, LedgerEntry{
				Item:     ProductRef(line.ID),
				Movement: model.MovementOut,
				Quantity: line.Quantity,
				RefType:  model.ReferenceSO,
				RefID:    so.ID,
				Note:     "Sold in SO: " + so.SONumber,
				ActorID:  actor,
			})
			if err != nil {
				return fmt.Errorf("failed to ship product %d: %w", line.ID, err)
			}
		}

		if err := s.soRepo.UpdateStatus(txCtx, id, model.SOStatusShipped); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionShipSO, "sales_order", so.ID, so.SONumber,
			map[string]int{"products": len(lines)})
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.soRepo.FindByID(ctx, id)
}
