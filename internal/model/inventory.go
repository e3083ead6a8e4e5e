package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind tags the two stockable item tables.
type ItemKind string

const (
	ItemKindMaterial ItemKind = "material"
	ItemKindProduct  ItemKind = "product"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindMaterial || k == ItemKindProduct
}

// MovementType is the direction of a stock change.
type MovementType string

const (
	MovementIn     MovementType = "in"
	MovementOut    MovementType = "out"
	MovementAdjust MovementType = "adjust"
)

func (m MovementType) Valid() bool {
	return m == MovementIn || m == MovementOut || m == MovementAdjust
}

// ReferenceType links a stock log row back to what caused it.
type ReferenceType string

const (
	ReferencePO         ReferenceType = "PO"
	ReferenceWO         ReferenceType = "WO"
	ReferenceSO         ReferenceType = "SO"
	ReferenceAdjustment ReferenceType = "ADJUSTMENT"
)

// Item status
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Product types
const (
	ProductTypeSendal = "sendal"
	ProductTypeBoot   = "boot"
)

// Material is a raw material bought from suppliers and consumed by work orders.
type Material struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SKU        string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name       string          `gorm:"type:varchar(100);not null" json:"name"`
	Category   string          `gorm:"type:varchar(50)" json:"category"`
	Unit       string          `gorm:"type:varchar(20);not null" json:"unit"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"unit_price"`
	Stock      int             `gorm:"type:int;not null;default:0;check:stock >= 0" json:"stock"`
	MinStock   int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	SupplierID *uint           `gorm:"index" json:"supplier_id"`
	Supplier   *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status     string          `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Material) TableName() string {
	return "raw_materials"
}

// Product is a finished good produced by work orders and sold through sales orders.
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SKU       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Category  string          `gorm:"type:varchar(50)" json:"category"`
	Type      string          `gorm:"type:varchar(20);not null" json:"type"` // sendal, boot
	Size      string          `gorm:"type:varchar(10)" json:"size"`
	Color     string          `gorm:"type:varchar(30)" json:"color"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"unit_price"`
	Stock     int             `gorm:"type:int;not null;default:0;check:stock >= 0" json:"stock"`
	MinStock  int             `gorm:"type:int;not null;default:0" json:"min_stock"`
	Status    string          `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StockLog is the append-only movement ledger. Rows are inserted once and never changed.
type StockLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ItemType      ItemKind       `gorm:"type:varchar(20);not null;index:idx_stock_logs_item" json:"item_type"`
	ItemID        uint           `gorm:"not null;index:idx_stock_logs_item" json:"item_id"`
	MovementType  MovementType   `gorm:"type:varchar(10);not null;index" json:"movement_type"`
	Quantity      int            `gorm:"type:int;not null;check:quantity > 0" json:"quantity"`
	ReferenceType *ReferenceType `gorm:"type:varchar(20);index:idx_stock_logs_reference" json:"reference_type"`
	ReferenceID   *uint          `gorm:"index:idx_stock_logs_reference" json:"reference_id"`
	Notes         string         `gorm:"type:text" json:"notes"`
	CreatedBy     *uint          `gorm:"index" json:"created_by"`
	Creator       *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}
