package model

import "time"

const (
	ActionCreateMaterial = "CREATE_MATERIAL"
	ActionUpdateMaterial = "UPDATE_MATERIAL"
	ActionDeleteMaterial = "DELETE_MATERIAL"
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionCreateSupplier = "CREATE_SUPPLIER"
	ActionUpdateSupplier = "UPDATE_SUPPLIER"
	ActionDeleteSupplier = "DELETE_SUPPLIER"
	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionUpdateCustomer = "UPDATE_CUSTOMER"
	ActionDeleteCustomer = "DELETE_CUSTOMER"
	ActionCreateBOM      = "CREATE_BOM"
	ActionUpdateBOM      = "UPDATE_BOM"
	ActionDeleteBOM      = "DELETE_BOM"
	ActionAdjustStock    = "ADJUST_STOCK"

	// Purchase orders
	ActionCreatePO  = "CREATE_PO"
	ActionUpdatePO  = "UPDATE_PO"
	ActionDeletePO  = "DELETE_PO"
	ActionApprovePO = "APPROVE_PO"
	ActionReceivePO = "RECEIVE_PO"
	ActionCancelPO  = "CANCEL_PO"

	// Work orders
	ActionCreateWO   = "CREATE_WO"
	ActionUpdateWO   = "UPDATE_WO"
	ActionDeleteWO   = "DELETE_WO"
	ActionStartWO    = "START_WO"
	ActionCompleteWO = "COMPLETE_WO"
	ActionCancelWO   = "CANCEL_WO"

	// Sales orders
	ActionCreateSO   = "CREATE_SO"
	ActionUpdateSO   = "UPDATE_SO"
	ActionDeleteSO   = "DELETE_SO"
	ActionConfirmSO  = "CONFIRM_SO"
	ActionShipSO     = "SHIP_SO"
	ActionCompleteSO = "COMPLETE_SO"
	ActionCancelSO   = "CANCEL_SO"

	// Users
	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"
	ActionUpdateRole = "UPDATE_ROLE"
)

// AuditLog tracks who changed what and when
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(50);index" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
