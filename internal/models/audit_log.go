package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionStatus  AuditAction = "status_change"
	AuditActionCancel  AuditAction = "cancel"
	AuditActionReceive AuditAction = "receive"
	AuditActionAdjust  AuditAction = "stock_adjust"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"size:36;uniqueIndex" json:"event_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID   uint   `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // denormalized

	// "purchase_order", "receipt", "sale_order", "shipment", "inventory_item"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`
	EntityName string `gorm:"size:100" json:"entity_name"` // PO-000001, SKU, ...

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Optional field diff (JSON)
	Changes string `gorm:"type:jsonb" json:"changes"`
}
