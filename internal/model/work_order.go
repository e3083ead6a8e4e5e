package model

import "time"

// Work order status
const (
	WOStatusPending    = "pending"
	WOStatusInProgress = "in_progress"
	WOStatusCompleted  = "completed"
	WOStatusCancelled  = "cancelled"
)

type WorkOrder struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	WONumber         string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"wo_number"`
	ProductID        uint       `gorm:"not null;index" json:"product_id"`
	Product          *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	QuantityPlanned  int        `gorm:"type:int;not null" json:"quantity_planned"`
	QuantityProduced int        `gorm:"type:int;not null;default:0" json:"quantity_produced"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartDate        *time.Time `json:"start_date"`
	CompletionDate   *time.Time `json:"completion_date"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedBy        *uint      `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
