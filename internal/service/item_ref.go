package service

import (
	"factory/internal/apperror"
	"factory/internal/model"
)

// ItemRef identifies a stockable item. It is sealed: MaterialRef and ProductRef
// are the only variants, and code that dispatches on it switches over both.
type ItemRef interface {
	Kind() model.ItemKind
	ItemID() uint
	isItemRef()
}

// MaterialRef points at a row in raw_materials.
type MaterialRef uint

func (r MaterialRef) Kind() model.ItemKind { return model.ItemKindMaterial }
func (r MaterialRef) ItemID() uint         { return uint(r) }
func (MaterialRef) isItemRef()             {}

// ProductRef points at a row in products.
type ProductRef uint

func (r ProductRef) Kind() model.ItemKind { return model.ItemKindProduct }
func (r ProductRef) ItemID() uint         { return uint(r) }
func (ProductRef) isItemRef()             {}

// ParseItemRef builds an ItemRef from the string tag used at the HTTP boundary.
func ParseItemRef(kind string, id uint) (ItemRef, error) {
	switch model.ItemKind(kind) {
	case model.ItemKindMaterial:
		return MaterialRef(id), nil
	case model.ItemKindProduct:
		return ProductRef(id), nil
	default:
		return nil, apperror.Validation("item_type must be material or product, got %q", kind)
	}
}
