package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOM is one bill-of-materials line: how much of a material one unit of product consumes.
type BOM struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ProductID  uint            `gorm:"not null;uniqueIndex:idx_bom_product_material" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	MaterialID uint            `gorm:"not null;uniqueIndex:idx_bom_product_material;index" json:"material_id"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	Notes      string          `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (BOM) TableName() string {
	return "bom"
}
