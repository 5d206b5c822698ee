package models

import "time"

type MovementReason string

const (
	MovementPurchaseReceipt  MovementReason = "purchase_receipt"
	MovementSale             MovementReason = "sale"
	MovementSaleCancellation MovementReason = "sale_cancellation"
	MovementStockTake        MovementReason = "stock_take"
)

func (r MovementReason) Valid() bool {
	switch r {
	case MovementPurchaseReceipt, MovementSale, MovementSaleCancellation, MovementStockTake:
		return true
	}
	return false
}

// StockMovement: journal row written with every change to InventoryItem.Quantity.
type StockMovement struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	InventoryItemID uint           `gorm:"index;not null" json:"inventory_item_id"`
	SKU             string         `gorm:"size:64;index" json:"sku"`
	Delta           int            `gorm:"not null" json:"delta"`
	BalanceAfter    int            `gorm:"not null" json:"balance_after"`
	Reason          MovementReason `gorm:"size:30;index;not null" json:"reason"`
	ReferenceType   string         `gorm:"size:50" json:"reference_type"` // "purchase_order", "sale_order", ...
	ReferenceID     uint           `gorm:"index" json:"reference_id"`
	Note            string         `gorm:"size:255" json:"note"`
	ActorID         uint           `json:"actor_id"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}
