// Package store defines the unit of work the workflow services run in.
//
// Every multi-record operation is executed as
//
//	uow.Do(ctx, func(tx store.Tx) error { ... })
//
// All reads and writes go through tx. A nil return commits; any error discards every
// write made inside the callback. Pure queries use uow.View, which sees one consistent
// snapshot and refuses writes. Implementations must serialize conflicting writers
// (row locks for GetForUpdate, or a single writer) so quantity invariants hold under
// concurrent calls.
package store

import (
	"context"

	"warehouse-backend/internal/models"
)

type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Inventory() InventoryRepository
	Movements() MovementRepository
	PurchaseOrders() PurchaseOrderRepository
	Receipts() ReceiptRepository
	SaleOrders() SaleOrderRepository
	Shipments() ShipmentRepository
}

type InventoryRepository interface {
	Get(id uint) (*models.InventoryItem, error)
	// GetForUpdate locks the row until the transaction ends.
	GetForUpdate(ref models.ItemRef) (*models.InventoryItem, error)
	FindBySKU(sku string) (*models.InventoryItem, error)
	Create(item *models.InventoryItem) error
	Save(item *models.InventoryItem) error
	Delete(id uint) error
	List(opts ListOptions) ([]models.InventoryItem, int64, error)
	// OpenReferences counts open purchase order lines and sale order lines that can still be
	// cancelled (every status but Cancelled) pointing at the item.
	OpenReferences(id uint) (int64, error)
}

type MovementRepository interface {
	Record(m *models.StockMovement) error
	ListByItem(itemID uint, opts ListOptions) ([]models.StockMovement, int64, error)
	SumByItem() (map[uint]int, error)
}

type PurchaseOrderRepository interface {
	Get(id uint) (*models.PurchaseOrder, error)
	GetForUpdate(id uint) (*models.PurchaseOrder, error)
	Create(po *models.PurchaseOrder) error
	// Save persists header and items and inserts history entries that have no id yet.
	Save(po *models.PurchaseOrder) error
	Delete(id uint) error
	List(opts ListOptions) ([]models.PurchaseOrder, int64, error)
	CountByStatus() (map[string]int64, error)
}

type ReceiptRepository interface {
	Get(id uint) (*models.ReceivingReceipt, error)
	GetForUpdate(id uint) (*models.ReceivingReceipt, error)
	Create(r *models.ReceivingReceipt) error
	// SaveReview persists the review fields only; lines and totals are immutable.
	SaveReview(r *models.ReceivingReceipt) error
	ListByPurchaseOrder(poID uint) ([]models.ReceivingReceipt, error)
	CountByPurchaseOrder(poID uint) (int64, error)
	List(opts ListOptions) ([]models.ReceivingReceipt, int64, error)
}

type SaleOrderRepository interface {
	Get(id uint) (*models.SaleOrder, error)
	GetForUpdate(id uint) (*models.SaleOrder, error)
	Create(so *models.SaleOrder) error
	// Save persists header fields; lines are fixed at creation.
	Save(so *models.SaleOrder) error
	List(opts ListOptions) ([]models.SaleOrder, int64, error)
	CountByStatus() (map[string]int64, error)
}

type ShipmentRepository interface {
	Get(id uint) (*models.Shipment, error)
	GetForUpdate(id uint) (*models.Shipment, error)
	FindBySalesOrder(salesOrderID uint) (*models.Shipment, error)
	Create(s *models.Shipment) error
	// Save persists header fields and inserts tracking events that have no id yet.
	Save(s *models.Shipment) error
	Delete(id uint) error
	List(opts ListOptions) ([]models.Shipment, int64, error)
	CountByStatus() (map[string]int64, error)
}
