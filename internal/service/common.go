package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"
)

const dateLayout = "2006-01-02"

// actorPtr turns the authenticated user id into a nullable column value.
func actorPtr(actor uint) *uint {
	if actor == 0 {
		return nil
	}
	return &actor
}

// writeAudit appends an audit row through the transaction in ctx. Details is
// marshalled to JSON; nil becomes an empty object.
func writeAudit(ctx context.Context, repo repository.AuditRepository, actor uint, action, entityType string, entityID uint, entityName string, details any) error {
	raw := []byte("{}")
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		raw = b
	}

	entry := &model.AuditLog{
		UserID:     actorPtr(actor),
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatUint(uint64(entityID), 10),
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// parseOrderDate accepts YYYY-MM-DD and defaults to today.
func parseOrderDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperror.Validation("order_date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

const orderNumberAttempts = 5

// orderNumbers generates document numbers such as PO240501123:
// prefix, the generation date as YYMMDD, then three random digits.
type orderNumbers struct {
	now    func() time.Time
	suffix func() int
}

func newOrderNumbers() orderNumbers {
	return orderNumbers{
		now:    time.Now,
		suffix: func() int { return rand.IntN(1000) },
	}
}

// next returns a number not yet taken according to exists. The unique index
// on the number column still guards against a concurrent insert of the same value.
func (g orderNumbers) next(ctx context.Context, prefix, entity string, exists func(context.Context, string) (bool, error)) (string, error) {
	var candidate string
	for range orderNumberAttempts {
		candidate = fmt.Sprintf("%s%s%03d", prefix, g.now().Format("060102"), g.suffix())
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperror.Duplicate(entity, "number", candidate)
}

// itemQuantity is the total quantity of one item across an order's lines.
type itemQuantity struct {
	ID       uint
	Quantity int
}

// aggregateLines sums quantities per item id and returns them in ascending id
// order, which is also the row lock order.
func aggregateLines[T any](lines []T, key func(T) (uint, int)) []itemQuantity {
	totals := make(map[uint]int, len(lines))
	for _, line := range lines {
		id, qty := key(line)
		totals[id] += qty
	}
	out := make([]itemQuantity, 0, len(totals))
	for id, qty := range totals {
		out = append(out, itemQuantity{ID: id, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b itemQuantity) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func newMovement(change *StockChange, entry LedgerEntry) event.StockMovement {
	return event.StockMovement{
		ItemType:      string(change.Item.Kind()),
		ItemID:        change.Item.ItemID(),
		SKU:           change.SKU,
		Name:          change.Name,
		MovementType:  string(entry.Movement),
		Quantity:      entry.Quantity,
		StockBefore:   change.Previous,
		StockAfter:    change.Current,
		ReferenceType: string(entry.RefType),
		ReferenceID:   entry.RefID,
		ActorID:       entry.ActorID,
		Timestamp:     time.Now().UTC(),
	}
}

// stockMovements collects the movements of one transaction so they can be
// dispatched after commit.
type stockMovements []event.StockMovement

func (m *stockMovements) move(ctx context.Context, mutator StockMutator, ledger StockLedger, entry LedgerEntry) error {
	change, err := moveStock(ctx, mutator, ledger, entry)
	if err != nil {
		return err
	}
	*m = append(*m, newMovement(change, entry))
	return nil
}

// ListResult is a page of rows plus the unpaginated total.
type ListResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}
