package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

type WorkOrderRequest struct {
	WONumber        string `json:"wo_number" binding:"omitempty,max=50"`
	ProductID       uint   `json:"product_id" binding:"required"`
	QuantityPlanned int    `json:"quantity_planned" binding:"required,gt=0"`
	Notes           string `json:"notes"`
}

type CompleteWorkOrderRequest struct {
	QuantityProduced int `json:"quantity_produced"`
}

// WorkOrderService drives work orders through pending -> in_progress ->
// completed. Starting consumes materials per the product's BOM; completing
// adds the produced quantity to the product.
type WorkOrderService interface {
	Create(ctx context.Context, actor uint, req WorkOrderRequest) (*model.WorkOrder, error)
	Get(ctx context.Context, id uint) (*model.WorkOrder, error)
	List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.WorkOrder], error)
	Update(ctx context.Context, actor uint, id uint, req WorkOrderRequest) (*model.WorkOrder, error)
	Delete(ctx context.Context, actor uint, id uint) error
	// Requirements expands the BOM for the order's planned quantity.
	Requirements(ctx context.Context, id uint) ([]Requirement, error)
	Start(ctx context.Context, actor uint, id uint) (*model.WorkOrder, error)
	Complete(ctx context.Context, actor uint, id uint, quantityProduced int) (*model.WorkOrder, error)
	// Cancel does not return materials already consumed by an in-progress order.
	Cancel(ctx context.Context, actor uint, id uint) (*model.WorkOrder, error)
}

type workOrderService struct {
	txManager   repository.TransactionManager
	woRepo      repository.WorkOrderRepository
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	calculator  BOMCalculator
	mutator     StockMutator
	ledger      StockLedger
	events      *event.Dispatcher
	numbers     orderNumbers
}

func NewWorkOrderService(
	txManager repository.TransactionManager,
	woRepo repository.WorkOrderRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	calculator BOMCalculator,
	mutator StockMutator,
	ledger StockLedger,
	events *event.Dispatcher,
) WorkOrderService {
	return &workOrderService{
		txManager:   txManager,
		woRepo:      woRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		calculator:  calculator,
		mutator:     mutator,
		ledger:      ledger,
		events:      events,
		numbers:     newOrderNumbers(),
	}
}

func (s *workOrderService) Create(ctx context.Context, actor uint, req WorkOrderRequest) (*model.WorkOrder, error) {
	if req.QuantityPlanned <= 0 {
		return nil, apperror.InvalidQuantity("quantity_planned must be positive, got %d", req.QuantityPlanned)
	}
	if _, err := s.productRepo.FindByID(ctx, req.ProductID); err != nil {
		return nil, err
	}

	wo := &model.WorkOrder{
		WONumber:        req.WONumber,
		ProductID:       req.ProductID,
		QuantityPlanned: req.QuantityPlanned,
		Status:          model.WOStatusPending,
		Notes:           req.Notes,
		CreatedBy:       actorPtr(actor),
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if wo.WONumber == "" {
			number, err := s.numbers.next(txCtx, "WO", "work order", s.woRepo.NumberExists)
			if err != nil {
				return err
			}
			wo.WONumber = number
		}
		if err := s.woRepo.Create(txCtx, wo); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateWO, "work_order", wo.ID, wo.WONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.woRepo.FindByID(ctx, wo.ID)
}

func (s *workOrderService) Get(ctx context.Context, id uint) (*model.WorkOrder, error) {
	return s.woRepo.FindByID(ctx, id)
}

func (s *workOrderService) List(ctx context.Context, filter repository.OrderFilter, page, limit int) (*ListResult[model.WorkOrder], error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.woRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.WorkOrder]{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *workOrderService) Update(ctx context.Context, actor uint, id uint, req WorkOrderRequest) (*model.WorkOrder, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.woRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		switch wo.Status {
		case model.WOStatusCompleted, model.WOStatusCancelled:
			return apperror.InvalidTransition("work order", wo.Status, "update")
		case model.WOStatusInProgress:
			// Materials are already consumed for the planned quantity.
			if (req.ProductID != 0 && req.ProductID != wo.ProductID) ||
				(req.QuantityPlanned != 0 && req.QuantityPlanned != wo.QuantityPlanned) {
				return apperror.Validation("only notes can change on an in-progress work order")
			}
		default:
			if req.QuantityPlanned <= 0 {
				return apperror.InvalidQuantity("quantity_planned must be positive, got %d", req.QuantityPlanned)
			}
			if req.ProductID != wo.ProductID {
				if _, err := s.productRepo.FindByID(txCtx, req.ProductID); err != nil {
					return err
				}
				wo.ProductID = req.ProductID
			}
			wo.QuantityPlanned = req.QuantityPlanned
			if req.WONumber != "" {
				wo.WONumber = req.WONumber
			}
		}
		wo.Notes = req.Notes

		if err := s.woRepo.Update(txCtx, wo); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateWO, "work_order", wo.ID, wo.WONumber, req)
	})
	if err != nil {
		return nil, err
	}
	return s.woRepo.FindByID(ctx, id)
}

func (s *workOrderService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.woRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if wo.Status == model.WOStatusInProgress || wo.Status == model.WOStatusCompleted {
			return apperror.InvalidTransition("work order", wo.Status, "delete")
		}
		if err := s.woRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteWO, "work_order", wo.ID, wo.WONumber, nil)
	})
}

func (s *workOrderService) Requirements(ctx context.Context, id uint) ([]Requirement, error) {
	wo, err := s.woRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.calculator.Calculate(ctx, wo.ProductID, wo.QuantityPlanned)
}

func materialShortages(reqs []Requirement) []apperror.MaterialShortage {
	var out []apperror.MaterialShortage
	for _, r := range reqs {
		if !r.Shortage.IsPositive() {
			continue
		}
		out = append(out, apperror.MaterialShortage{
			MaterialID:   r.MaterialID,
			MaterialSKU:  r.MaterialSKU,
			MaterialName: r.MaterialName,
			Required:     r.RequiredQuantity,
			Available:    r.CurrentStock,
			Shortage:     r.Shortage,
		})
	}
	return out
}

// Start checks every BOM line against stock and consumes the materials only
// when none is short. The BOM materials are locked in ascending id order and
// shortages are measured against the locked rows.
func (s *workOrderService) Start(ctx context.Context, actor uint, id uint) (*model.WorkOrder, error) {
	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		wo, err := s.woRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if wo.Status != model.WOStatusPending {
			return apperror.InvalidTransition("work order", wo.Status, "start")
		}

		reqs, err := s.calculator.Calculate(txCtx, wo.ProductID, wo.QuantityPlanned)
		if err != nil {
			return err
		}
		if err := s.lockRequirements(txCtx, reqs); err != nil {
			return err
		}
		if shortages := materialShortages(reqs); len(shortages) > 0 {
			return &apperror.InsufficientMaterialsError{Shortages: shortages}
		}

		for _, req := range reqs {
			qty := req.ConsumeQuantity()
			if qty <= 0 {
				continue
			}
			err := moved.move(txCtx, s.mutator, s.ledger, LedgerEntry{
				Item:     MaterialRef(req.MaterialID),
				Movement: model.MovementOut,
				Quantity: qty,
				RefType:  model.ReferenceWO,
				RefID:    wo.ID,
				Note:     "Used for WO: " + wo.WONumber,
				ActorID:  actor,
			})
			if err != nil {
				return fmt.Errorf("failed to consume material %d: %w", req.MaterialID, err)
			}
		}

		now := time.Now()
		wo.Status = model.WOStatusInProgress
		wo.StartDate = &now
		if err := s.woRepo.Update(txCtx, wo); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionStartWO, "work_order", wo.ID, wo.WONumber,
			map[string]any{"materials": len(reqs), "quantity_planned": wo.QuantityPlanned, "required_total": requiredTotal(reqs)})
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.woRepo.FindByID(ctx, id)
}

// lockRequirements takes the row lock on every material in reqs and
// refreshes the stock figures from the locked rows.
func (s *workOrderService) lockRequirements(ctx context.Context, reqs []Requirement) error {
	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(reqs[a].MaterialID, reqs[b].MaterialID) })

	for _, i := range order {
		row, err := s.mutator.Lock(ctx, MaterialRef(reqs[i].MaterialID))
		if err != nil {
			return err
		}
		reqs[i] = reqs[i].withStock(row.Stock)
	}
	return nil
}

func (s *workOrderService) Complete(ctx context.Context, actor uint, id uint, quantityProduced int) (*model.WorkOrder, error) {
	var moved stockMovements
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		moved = moved[:0]
		wo, err := s.woRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if wo.Status != model.WOStatusInProgress {
			return apperror.InvalidTransition("work order", wo.Status, "complete")
		}
		if quantityProduced <= 0 || quantityProduced > wo.QuantityPlanned {
			return apperror.InvalidQuantity("quantity produced must be between 1 and %d, got %d", wo.QuantityPlanned, quantityProduced)
		}

		err = moved.move(txCtx, s.mutator, s.ledger, LedgerEntry{
			Item:     ProductRef(wo.ProductID),
			Movement: model.MovementIn,
			Quantity: quantityProduced,
			RefType:  model.ReferenceWO,
			RefID:    wo.ID,
			Note:     "Produced from WO: " + wo.WONumber,
			ActorID:  actor,
		})
		if err != nil {
			return err
		}

		now := time.Now()
		wo.Status = model.WOStatusCompleted
		wo.QuantityProduced = quantityProduced
		wo.CompletionDate = &now
		if err := s.woRepo.Update(txCtx, wo); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCompleteWO, "work_order", wo.ID, wo.WONumber,
			map[string]int{"quantity_produced": quantityProduced})
	})
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, moved)
	return s.woRepo.FindByID(ctx, id)
}

func (s *workOrderService) Cancel(ctx context.Context, actor uint, id uint) (*model.WorkOrder, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wo, err := s.woRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if wo.Status != model.WOStatusPending && wo.Status != model.WOStatusInProgress {
			return apperror.InvalidTransition("work order", wo.Status, "cancel")
		}
		from := wo.Status
		wo.Status = model.WOStatusCancelled
		if err := s.woRepo.Update(txCtx, wo); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCancelWO, "work_order", wo.ID, wo.WONumber,
			map[string]string{"from": from, "to": wo.Status})
	})
	if err != nil {
		return nil, err
	}
	return s.woRepo.FindByID(ctx, id)
}

// requiredTotal sums the required quantity of every line.
func requiredTotal(reqs []Requirement) decimal.Decimal {
	total := decimal.Zero
	for _, r := range reqs {
		total = total.Add(r.RequiredQuantity)
	}
	return total
}
