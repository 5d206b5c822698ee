package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem: one SKU in the ledger. Quantity is the authoritative on-hand figure.
type InventoryItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SKU           string          `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"size:200;not null" json:"name"`
	Type          string          `gorm:"size:50;index" json:"type"`
	Rate          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"rate"` // unit price
	Quantity      int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	LocationStock []LocationStock `gorm:"foreignKey:InventoryItemID;constraint:OnDelete:CASCADE" json:"location_stock"`
	CreatedBy     uint            `json:"created_by"`
	UpdatedBy     uint            `json:"updated_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LocationStock: per-location sub-ledger. The sum over locations need not match InventoryItem.Quantity.
type LocationStock struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InventoryItemID uint      `gorm:"not null;uniqueIndex:idx_location_stock_item_location" json:"inventory_item_id"`
	LocationID      string    `gorm:"size:64;not null;uniqueIndex:idx_location_stock_item_location" json:"location_id"`
	LocationName    string    `gorm:"size:100" json:"location_name"`
	Quantity        int       `gorm:"not null;default:0" json:"quantity"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type LocationStockOp string

const (
	LocationOpSet      LocationStockOp = "set"
	LocationOpAdd      LocationStockOp = "add"
	LocationOpSubtract LocationStockOp = "subtract"
)

func (op LocationStockOp) Valid() bool {
	switch op {
	case LocationOpSet, LocationOpAdd, LocationOpSubtract:
		return true
	}
	return false
}

// Location returns the sub-ledger entry for locationID, or nil.
func (i *InventoryItem) Location(locationID string) *LocationStock {
	for idx := range i.LocationStock {
		if i.LocationStock[idx].LocationID == locationID {
			return &i.LocationStock[idx]
		}
	}
	return nil
}

// ItemRef addresses an inventory item either by id or by SKU.
type ItemRef struct {
	ID  uint
	SKU string
}

func ByID(id uint) ItemRef     { return ItemRef{ID: id} }
func BySKU(sku string) ItemRef { return ItemRef{SKU: sku} }

func (r ItemRef) String() string {
	if r.ID != 0 {
		return "id=" + strconv.FormatUint(uint64(r.ID), 10)
	}
	return "sku=" + r.SKU
}
