package repository

import "context"

// StockRow is the locked view of a stockable item used by the stock mutator.
type StockRow struct {
	ID    uint
	SKU   string
	Name  string
	Stock int
}

// StockRepository is implemented by both the material and the product repository.
// LockStock must be called inside a transaction; it takes a row lock that is
// held until the transaction ends.
type StockRepository interface {
	LockStock(ctx context.Context, id uint) (*StockRow, error)
	SetStock(ctx context.Context, id uint, stock int) error
}

// ItemFilter narrows catalog listings.
type ItemFilter struct {
	Search   string
	Category string
	Status   string
}
