package service

import (
	"context"
	"errors"
	"fmt"

	"factory/internal/apperror"
	"factory/internal/model"
	"factory/internal/repository"
)

var errNoTransaction = errors.New("stock mutation must run inside a transaction")

// StockChange is the outcome of one applied movement.
type StockChange struct {
	Item     ItemRef
	SKU      string
	Name     string
	Previous int
	Current  int
}

// StockMutator is the only writer of the stock column of materials and products.
//
// Apply takes the movement quantity with two different meanings:
//   - MovementIn and MovementOut: quantity is a positive delta.
//   - MovementAdjust: quantity is the new absolute stock, not a delta.
//
// Callers that log an adjustment compute the delta themselves from the
// returned StockChange. The ctx must carry a transaction (see
// repository.TransactionManager); the item row stays locked until it ends.
type StockMutator interface {
	Apply(ctx context.Context, item ItemRef, movement model.MovementType, quantity int) (*StockChange, error)
	// Lock takes the row lock without changing stock and returns the current row.
	Lock(ctx context.Context, item ItemRef) (*repository.StockRow, error)
}

type stockMutator struct {
	materials repository.StockRepository
	products  repository.StockRepository
}

func NewStockMutator(materials repository.StockRepository, products repository.StockRepository) StockMutator {
	return &stockMutator{materials: materials, products: products}
}

func (m *stockMutator) repoFor(item ItemRef) repository.StockRepository {
	switch item.(type) {
	case MaterialRef:
		return m.materials
	case ProductRef:
		return m.products
	}
	panic(fmt.Sprintf("unhandled item ref %T", item))
}

func (m *stockMutator) Lock(ctx context.Context, item ItemRef) (*repository.StockRow, error) {
	if !repository.InTx(ctx) {
		return nil, errNoTransaction
	}
	return m.repoFor(item).LockStock(ctx, item.ItemID())
}

func (m *stockMutator) Apply(ctx context.Context, item ItemRef, movement model.MovementType, quantity int) (*StockChange, error) {
	if !repository.InTx(ctx) {
		return nil, errNoTransaction
	}

	switch movement {
	case model.MovementIn, model.MovementOut:
		if quantity <= 0 {
			return nil, apperror.InvalidQuantity("%s movement needs a positive quantity, got %d", movement, quantity)
		}
	case model.MovementAdjust:
		if quantity < 0 {
			return nil, apperror.InvalidQuantity("stock cannot be adjusted to %d", quantity)
		}
	default:
		return nil, apperror.Validation("unknown movement type %q", movement)
	}

	repo := m.repoFor(item)
	row, err := repo.LockStock(ctx, item.ItemID())
	if err != nil {
		return nil, err
	}

	next := row.Stock
	switch movement {
	case model.MovementIn:
		next = row.Stock + quantity
	case model.MovementOut:
		if row.Stock < quantity {
			return nil, &apperror.InsufficientStockError{Shortages: []apperror.Shortage{{
				ItemType:  string(item.Kind()),
				ItemID:    item.ItemID(),
				Name:      row.Name,
				Required:  quantity,
				Available: row.Stock,
				Shortage:  quantity - row.Stock,
			}}}
		}
		next = row.Stock - quantity
	case model.MovementAdjust:
		next = quantity
	}

	if err := repo.SetStock(ctx, item.ItemID(), next); err != nil {
		return nil, fmt.Errorf("failed to update %s %d stock: %w", item.Kind(), item.ItemID(), err)
	}

	return &StockChange{
		Item:     item,
		SKU:      row.SKU,
		Name:     row.Name,
		Previous: row.Stock,
		Current:  next,
	}, nil
}
