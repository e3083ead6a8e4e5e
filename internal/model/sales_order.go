package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sales order status
const (
	SOStatusPending   = "pending"
	SOStatusConfirmed = "confirmed"
	SOStatusShipped   = "shipped"
	SOStatusCompleted = "completed"
	SOStatusCancelled = "cancelled"
)

type SalesOrder struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SONumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"so_number"`
	CustomerID uint            `gorm:"not null;index" json:"customer_id"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	OrderDate  time.Time       `gorm:"type:date;not null" json:"order_date"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedBy  *uint           `json:"created_by"`
	Items      []SOItem        `gorm:"foreignKey:SOID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type SOItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SOID      uint            `gorm:"column:so_id;not null;index" json:"so_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

func (SOItem) TableName() string {
	return "so_items"
}
