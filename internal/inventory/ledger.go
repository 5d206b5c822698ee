package inventory

import (
	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"

	"github.com/shopspring/decimal"
)

// Movement describes why a ledger quantity changes. Every on-hand change is journaled
// with exactly one Movement.
type Movement struct {
	Reason        models.MovementReason
	ReferenceType string
	ReferenceID   uint
	Note          string
	ActorID       uint
}

// Ledger is the only code path that writes InventoryItem.Quantity. It has no state of its
// own; every call runs inside the caller's transaction.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Adjust applies delta to the on-hand quantity and returns the updated item.
// A negative delta larger than the stock fails with InsufficientStock and writes nothing.
func (l *Ledger) Adjust(tx store.Tx, ref models.ItemRef, delta int, mv Movement) (*models.InventoryItem, error) {
	if !mv.Reason.Valid() {
		return nil, apperr.Validation("unknown movement reason %q", mv.Reason)
	}
	item, err := tx.Inventory().GetForUpdate(ref)
	if err != nil {
		return nil, err
	}
	if delta < 0 && item.Quantity+delta < 0 {
		return nil, apperr.InsufficientStock(item.SKU, -delta, item.Quantity).With("item_id", item.ID)
	}

	item.Quantity += delta
	item.UpdatedBy = mv.ActorID
	if err := tx.Inventory().Save(item); err != nil {
		return nil, err
	}
	if err := journal(tx, item, delta, mv); err != nil {
		return nil, err
	}
	return item, nil
}

// SetLocationStock changes one location's sub-ledger. Subtract clamps at zero and an
// unknown location is created. The on-hand quantity is not touched.
func (l *Ledger) SetLocationStock(tx store.Tx, id uint, locationID, locationName string, qty int, op models.LocationStockOp, actorID uint) (*models.InventoryItem, error) {
	if !op.Valid() {
		return nil, apperr.Validation("unknown location stock operation %q", op)
	}
	if qty < 0 {
		return nil, apperr.Validation("location quantity must not be negative")
	}
	item, err := tx.Inventory().GetForUpdate(models.ByID(id))
	if err != nil {
		return nil, err
	}

	loc := item.Location(locationID)
	if loc == nil {
		item.LocationStock = append(item.LocationStock, models.LocationStock{
			InventoryItemID: item.ID,
			LocationID:      locationID,
			LocationName:    locationName,
		})
		loc = &item.LocationStock[len(item.LocationStock)-1]
	}
	if locationName != "" {
		loc.LocationName = locationName
	}

	switch op {
	case models.LocationOpSet:
		loc.Quantity = qty
	case models.LocationOpAdd:
		loc.Quantity += qty
	case models.LocationOpSubtract:
		loc.Quantity = max(0, loc.Quantity-qty)
	}

	item.UpdatedBy = actorID
	if err := tx.Inventory().Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// NewItem seeds a ledger entry for a SKU seen for the first time.
type NewItem struct {
	SKU      string
	Name     string
	Type     string
	Rate     decimal.Decimal
	Quantity int
}

// Create inserts the item and journals its opening quantity, if any.
func (l *Ledger) Create(tx store.Tx, in NewItem, mv Movement) (*models.InventoryItem, error) {
	if in.Quantity < 0 {
		return nil, apperr.Validation("opening quantity must not be negative")
	}
	item := &models.InventoryItem{
		SKU:       in.SKU,
		Name:      in.Name,
		Type:      in.Type,
		Rate:      in.Rate,
		Quantity:  in.Quantity,
		CreatedBy: mv.ActorID,
		UpdatedBy: mv.ActorID,
	}
	if err := tx.Inventory().Create(item); err != nil {
		return nil, err
	}
	if in.Quantity > 0 {
		if err := journal(tx, item, in.Quantity, mv); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func journal(tx store.Tx, item *models.InventoryItem, delta int, mv Movement) error {
	return tx.Movements().Record(&models.StockMovement{
		InventoryItemID: item.ID,
		SKU:             item.SKU,
		Delta:           delta,
		BalanceAfter:    item.Quantity,
		Reason:          mv.Reason,
		ReferenceType:   mv.ReferenceType,
		ReferenceID:     mv.ReferenceID,
		Note:            mv.Note,
		ActorID:         mv.ActorID,
	})
}
