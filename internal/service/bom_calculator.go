package service

import (
	"context"

	"factory/internal/repository"

	"github.com/shopspring/decimal"
)

// Requirement is the material need of one BOM line for a production quantity.
type Requirement struct {
	MaterialID       uint            `json:"material_id"`
	MaterialSKU      string          `json:"material_sku"`
	MaterialName     string          `json:"material_name"`
	Unit             string          `json:"unit"`
	BOMQuantity      decimal.Decimal `json:"bom_quantity"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	CurrentStock     int             `json:"current_stock"`
	Shortage         decimal.Decimal `json:"shortage"`
}

// ConsumeQuantity is the whole number of stock units consumed for this line.
// Fractional requirements round up.
func (r Requirement) ConsumeQuantity() int {
	return int(r.RequiredQuantity.Ceil().IntPart())
}

// BOMCalculator expands a product's bill of materials. It only reads.
type BOMCalculator interface {
	// Calculate returns one Requirement per BOM line, ordered by material id.
	// A product without BOM lines yields an empty slice. quantity is not
	// validated here.
	Calculate(ctx context.Context, productID uint, quantity int) ([]Requirement, error)
}

type bomCalculator struct {
	productRepo repository.ProductRepository
	bomRepo     repository.BOMRepository
}

func NewBOMCalculator(productRepo repository.ProductRepository, bomRepo repository.BOMRepository) BOMCalculator {
	return &bomCalculator{productRepo: productRepo, bomRepo: bomRepo}
}

func (c *bomCalculator) Calculate(ctx context.Context, productID uint, quantity int) ([]Requirement, error) {
	if _, err := c.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	lines, err := c.bomRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(int64(quantity))
	reqs := make([]Requirement, 0, len(lines))
	for _, line := range lines {
		req := Requirement{
			MaterialID:       line.MaterialID,
			BOMQuantity:      line.Quantity,
			RequiredQuantity: line.Quantity.Mul(qty),
		}
		if line.Material != nil {
			req.MaterialSKU = line.Material.SKU
			req.MaterialName = line.Material.Name
			req.Unit = line.Material.Unit
			req.CurrentStock = line.Material.Stock
		}
		reqs = append(reqs, req.withStock(req.CurrentStock))
	}
	return reqs, nil
}

// withStock returns the requirement measured against the given stock level.
func (r Requirement) withStock(stock int) Requirement {
	r.CurrentStock = stock
	r.Shortage = r.RequiredQuantity.Sub(decimal.NewFromInt(int64(stock)))
	if r.Shortage.IsNegative() {
		r.Shortage = decimal.Zero
	}
	return r
}

// HasShortage reports whether any requirement cannot be covered.
func HasShortage(reqs []Requirement) bool {
	for _, r := range reqs {
		if r.Shortage.IsPositive() {
			return true
		}
	}
	return false
}
