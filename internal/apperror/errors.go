// Package apperror holds the error kinds returned by the stock and order core.
// Handlers map each kind to an HTTP status; services never swallow them.
package apperror

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s with status %s", e.Action, e.Entity, e.From)
}

func InvalidTransition(entity, from, action string) error {
	return &InvalidTransitionError{Entity: entity, From: from, Action: action}
}

// Shortage describes one item that cannot cover an outbound quantity.
type Shortage struct {
	ItemType  string `json:"item_type"`
	ItemID    uint   `json:"item_id"`
	Name      string `json:"name,omitempty"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
	Shortage  int    `json:"shortage"`
}

type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("%s %d", s.ItemType, s.ItemID)
		}
		parts = append(parts, fmt.Sprintf("%s (short %d)", label, s.Shortage))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// MaterialShortage is a BOM line that the current material stock cannot cover.
type MaterialShortage struct {
	MaterialID   uint            `json:"material_id"`
	MaterialSKU  string          `json:"material_sku"`
	MaterialName string          `json:"material_name"`
	Required     decimal.Decimal `json:"required"`
	Available    int             `json:"available"`
	Shortage     decimal.Decimal `json:"shortage"`
}

type InsufficientMaterialsError struct {
	Shortages []MaterialShortage
}

func (e *InsufficientMaterialsError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (short %s)", s.MaterialName, s.Shortage.String()))
	}
	return "insufficient materials: " + strings.Join(parts, ", ")
}

type InvalidQuantityError struct {
	Message string
}

func (e *InvalidQuantityError) Error() string {
	return "invalid quantity: " + e.Message
}

func InvalidQuantity(format string, args ...any) error {
	return &InvalidQuantityError{Message: fmt.Sprintf(format, args...)}
}

type DuplicateError struct {
	Entity string
	Field  string
	Value  string
}

func (e *DuplicateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s with this %s already exists", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func Duplicate(entity, field, value string) error {
	return &DuplicateError{Entity: entity, Field: field, Value: value}
}

type ReferentialIntegrityError struct {
	Entity string
	Reason string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s: %s", e.Entity, e.Reason)
}

func ReferentialIntegrity(entity, reason string) error {
	return &ReferentialIntegrityError{Entity: entity, Reason: reason}
}

// ValidationError covers bad input that is not a quantity bound.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError means the caller's credentials were rejected.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func Unauthorized(message string) error {
	return &UnauthorizedError{Message: message}
}
