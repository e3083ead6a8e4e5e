package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order status
const (
	POStatusPending   = "pending"
	POStatusApproved  = "approved"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

type PurchaseOrder struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PONumber   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"po_number"`
	SupplierID uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier   *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	OrderDate  time.Time       `gorm:"type:date;not null" json:"order_date"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedBy  *uint           `json:"created_by"`
	Items      []POItem        `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type POItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	POID       uint            `gorm:"column:po_id;not null;index" json:"po_id"`
	MaterialID uint            `gorm:"not null;index" json:"material_id"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity   int             `gorm:"type:int;not null" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

func (POItem) TableName() string {
	return "po_items"
}
