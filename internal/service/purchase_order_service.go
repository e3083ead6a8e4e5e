package service

import (
	"context"
	"fmt"
	"time"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type POItemRequest struct {
	MaterialID uint            `json:"material_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	Price      decimal.Decimal `json:"price" binding:"gte=0"`
}

type PurchaseOrderRequest struct {
	PONumber   string          `json:"po_number" binding:"omitempty,max=50"`
	SupplierID uint            `json:"supplier_id" binding:"required"`
	OrderDate  string          `json:"order_date" binding:"omitempty,datetime=2006-01-02"`
	Notes      string          `json:"notes"`
	Items      []POItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderService drives purchase orders through
// pending -> approved -> received, with cancellation before receipt.
// Receiving is the only transition that touches stock.
type PurchaseOrderService interface {
	Create(ctx context.Context, actor uint, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	Get(ctx context.Context, id uint) (*model.PurchaseOrder, error)
	List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.PurchaseOrder], error)
	Update(ctx context.Context, actor uint, id uint, req PurchaseOrderRequest) (*model.PurchaseOrder, error)
	Delete(ctx context.Context, actor uint, id uint) error
	Approve(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error)
	Receive(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error)
	Cancel(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error)
}

type purchaseOrderService struct {
	txManager    repository.TransactionManager
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	mutator      StockMutator
	ledger       StockLedger
	events       *event.Dispatcher
	numbers      orderNumbers
}

func NewPurchaseOrderService(
	txManager repository.TransactionManager,
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) PurchaseOrderService {
	return &purchaseOrderService{
		txManager:    txManager,
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		mutator:      mutator,
		ledger:       ledger,
		events:       events,
		numbers:      newOrderNumbers(),
	}
}

// buildItems checks the referenced materials and prices every line.
func (s *purchaseOrderService) buildItems(ctx context.Context, reqs []POItemRequest) ([]model.POItem, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, apperror.Validation("purchase order needs at least one item")
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
		if !seen[r.MaterialID] {
			seen[r.MaterialID] = true
			ids = append(ids, r.MaterialID)
		}
	}

	materials, err := s.materialRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	found := make(map[uint]bool, len(materials))
	for _, m := range materials {
		found[m.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, decimal.Zero, apperror.NotFound("material", id)
		}
	}

	total := decimal.Zero
	items := make([]model.POItem, 0, len(reqs))
	for _, r := range reqs {
		subtotal := r.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))
		total = total.Add(subtotal)
		items = append(items, model.POItem{
			MaterialID: r.MaterialID,
			Quantity:   r.Quantity,
			Price:      r.Price,
			Subtotal:   subtotal,
		})
	}
	return items, total, nil
}

func (s *purchaseOrderService) Create(ctx context.Context, actor uint, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if _, err := s.supplierRepo.FindByID(ctx, req.SupplierID); err != nil {
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

	po := &model.PurchaseOrder{
		PONumber:   req.PONumber,
		SupplierID: req.SupplierID,
		OrderDate:  orderDate,
		Status:     model.POStatusPending,
		Total:      total,
		Notes:      req.Notes,
		CreatedBy:  actorPtr(actor),
		Items:      items,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if po.PONumber == "" {
			number, err := s.numbers.next(txCtx, "PO", "purchase order", s.poRepo.NumberExists)
			if err != nil {
				return err
			}
			po.PONumber = number
		}
		if err := s.poRepo.Create(txCtx, po); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreatePO, "purchase_order", po.ID, po.PONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.poRepo.FindByID(ctx, po.ID)
}

func (s *purchaseOrderService) Get(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	return s.poRepo.FindByID(ctx, id)
}

func (s *purchaseOrderService) List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.PurchaseOrder], error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.poRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.PurchaseOrder]{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *purchaseOrderService) Update(ctx context.Context, actor uint, id uint, req PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if _, err := s.supplierRepo.FindByID(ctx, req.SupplierID); err != nil {
		return nil, err
	}
	items, total, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if po.Status == model.POStatusReceived || po.Status == model.POStatusCancelled {
			return apperror.InvalidTransition("purchase order", po.Status, "update")
		}

		if req.OrderDate != "" {
			orderDate, err := parseOrderDate(req.OrderDate, s.numbers.now())
			if err != nil {
				return err
			}
			po.OrderDate = orderDate
		}
		if req.PONumber != "" {
			po.PONumber = req.PONumber
		}
		po.SupplierID = req.SupplierID
		po.Notes = req.Notes
		po.Total = total

		if err := s.poRepo.UpdateHeader(txCtx, po); err != nil {
			return err
		}
		if err := s.poRepo.ReplaceItems(txCtx, po.ID, items); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdatePO, "purchase_order", po.ID, po.PONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.poRepo.FindByID(ctx, id)
}

func (s *purchaseOrderService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if po.Status == model.POStatusReceived {
			return apperror.InvalidTransition("purchase order", po.Status, "delete")
		}
		if err := s.poRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeletePO, "purchase_order", po.ID, po.PONumber, nil)
	})
}

// transition moves the order from one of the allowed states to next, with no
// stock side effect.
func (s *purchaseOrderService) transition(ctx context.Context, actor uint, id uint, action, auditAction, next string, from ...string) (*model.PurchaseOrder, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !statusIn(po.Status, from) {
			return apperror.InvalidTransition("purchase order", po.Status, action)
		}
		if err := s.poRepo.UpdateStatus(txCtx, id, next); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, auditAction, "purchase_order", po.ID, po.PONumber,
			map[string]string{"from": po.Status, "to": next})
	})
	if err != nil {
		return nil, err
	}
	return s.poRepo.FindByID(ctx, id)
}

func (s *purchaseOrderService) Approve(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "approve", model.ActionApprovePO, model.POStatusApproved, model.POStatusPending)
}

func (s *purchaseOrderService) Cancel(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, "cancel", model.ActionCancelPO, model.POStatusCancelled,
		model.POStatusPending, model.POStatusApproved)
}

// Receive adds every line's quantity to its material and logs one "in" entry
// per material. Any failure leaves the order approved and stock untouched.
func (s *purchaseOrderService) Receive(ctx context.Context, actor uint, id uint) (*model.PurchaseOrder, error) {
	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		po, err := s.poRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if po.Status != model.POStatusApproved {
			return apperror.InvalidTransition("purchase order", po.Status, "receive")
		}

		lines := aggregateLines(po.Items, func(it model.POItem) (uint, int) { return it.MaterialID, it.Quantity })
		for _, line := range lines {
			err := moved.move(txCtx, s.mutator, s.ledger, LedgerEntry{
				Item:     MaterialRef(line.ID),
				Movement: model.MovementIn,
				Quantity: line.Quantity,
				RefType:  model.ReferencePO,
				RefID:    po.ID,
				Note:     "Received from PO: " + po.PONumber,
				ActorID:  actor,
			})
			if err != nil {
				return fmt.Errorf("failed to receive material %d: %w", line.ID, err)
			}
		}

		if err := s.poRepo.UpdateStatus(txCtx, id, model.POStatusReceived); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionReceivePO, "purchase_order", po.ID, po.PONumber,
			map[string]any{"materials": len(lines), "received_at": time.Now().UTC()})
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.poRepo.FindByID(ctx, id)
}

func statusIn(status string, allowed []string) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}
