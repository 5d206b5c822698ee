// Package inventory owns the stock ledger and the inventory item administration endpoints.
package inventory

import (
	"context"
	"strings"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"

	"github.com/shopspring/decimal"
)

const entityType = "inventory_item"

type Service struct {
	uow     store.UnitOfWork
	ledger  *Ledger
	audit   *audit.Recorder
	metrics *metrics.Metrics
}

func NewService(uow store.UnitOfWork, ledger *Ledger, rec *audit.Recorder, m *metrics.Metrics) *Service {
	return &Service{uow: uow, ledger: ledger, audit: rec, metrics: m}
}

type CreateItemInput struct {
	SKU      string          `json:"sku" validate:"required,max=64"`
	Name     string          `json:"name" validate:"required,max=200"`
	Type     string          `json:"type" validate:"max=50"`
	Rate     decimal.Decimal `json:"rate"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

type UpdateItemInput struct {
	Name *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Type *string          `json:"type" validate:"omitempty,max=50"`
	Rate *decimal.Decimal `json:"rate"`
}

type AdjustInput struct {
	Delta int    `json:"delta" validate:"ne=0"`
	Note  string `json:"note" validate:"required,max=255"`
}

type LocationInput struct {
	LocationID   string                 `json:"location_id" validate:"required,max=64"`
	LocationName string                 `json:"location_name" validate:"max=100"`
	Quantity     int                    `json:"quantity" validate:"gte=0"`
	Op           models.LocationStockOp `json:"op" validate:"required,oneof=set add subtract"`
}

func (s *Service) CreateItem(ctx context.Context, actor models.Actor, in CreateItemInput) (item *models.InventoryItem, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "create")
	defer func() { done(err) }()

	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Rate.IsNegative() {
		return nil, apperr.Validation("rate must not be negative")
	}

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		item, err = s.ledger.Create(tx, NewItem{
			SKU:      in.SKU,
			Name:     in.Name,
			Type:     in.Type,
			Rate:     in.Rate,
			Quantity: in.Quantity,
		}, Movement{
			Reason:        models.MovementStockTake,
			ReferenceType: entityType,
			Note:          "opening balance",
			ActorID:       actor.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockMoved(string(models.MovementStockTake), in.Quantity)
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    item.ID,
		EntityName:  item.SKU,
		Action:      models.AuditActionCreate,
		Description: "inventory item created",
		After:       item,
	})
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, actor models.Actor, id uint, in UpdateItemInput) (item *models.InventoryItem, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "update")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Rate != nil && in.Rate.IsNegative() {
		return nil, apperr.Validation("rate must not be negative")
	}

	var before models.InventoryItem
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		item, err = tx.Inventory().GetForUpdate(models.ByID(id))
		if err != nil {
			return err
		}
		before = *item
		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			item.Type = *in.Type
		}
		if in.Rate != nil {
			item.Rate = *in.Rate
		}
		item.UpdatedBy = actor.ID
		return tx.Inventory().Save(item)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    item.ID,
		EntityName:  item.SKU,
		Action:      models.AuditActionUpdate,
		Description: "inventory item updated",
		Before:      itemSnapshot(&before),
		After:       itemSnapshot(item),
	})
	return item, nil
}

// Adjust is the manual stock-take entry point of the ledger.
func (s *Service) Adjust(ctx context.Context, actor models.Actor, ref models.ItemRef, in AdjustInput) (item *models.InventoryItem, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "adjust")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		item, err = s.ledger.Adjust(tx, ref, in.Delta, Movement{
			Reason:        models.MovementStockTake,
			ReferenceType: entityType,
			ReferenceID:   ref.ID,
			Note:          in.Note,
			ActorID:       actor.ID,
		})
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInsufficientStock {
			s.metrics.InsufficientStock()
		}
		return nil, err
	}

	s.metrics.StockMoved(string(models.MovementStockTake), in.Delta)
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    item.ID,
		EntityName:  item.SKU,
		Action:      models.AuditActionAdjust,
		Description: in.Note,
		After:       map[string]int{"delta": in.Delta, "quantity": item.Quantity},
	})
	return item, nil
}

func (s *Service) SetLocationStock(ctx context.Context, actor models.Actor, id uint, in LocationInput) (item *models.InventoryItem, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "set_location_stock")
	defer func() { done(err) }()

	in.LocationID = strings.TrimSpace(in.LocationID)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		item, err = s.ledger.SetLocationStock(tx, id, in.LocationID, in.LocationName, in.Quantity, in.Op, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    item.ID,
		EntityName:  item.SKU,
		Action:      models.AuditActionAdjust,
		Description: "location stock " + string(in.Op) + " at " + in.LocationID,
		After:       item.Location(in.LocationID),
	})
	return item, nil
}

// DeleteItem refuses while an open purchase order or a sale order that is not cancelled
// references the item.
func (s *Service) DeleteItem(ctx context.Context, actor models.Actor, id uint) (err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "delete")
	defer func() { done(err) }()

	var item *models.InventoryItem
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		item, err = tx.Inventory().GetForUpdate(models.ByID(id))
		if err != nil {
			return err
		}
		refs, err := tx.Inventory().OpenReferences(id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperr.InvalidState("inventory item %s is referenced by %d open order lines", item.SKU, refs).
				With("references", refs)
		}
		return tx.Inventory().Delete(id)
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    item.ID,
		EntityName:  item.SKU,
		Action:      models.AuditActionDelete,
		Description: "inventory item deleted",
		Before:      itemSnapshot(item),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (item *models.InventoryItem, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		item, err = tx.Inventory().Get(id)
		return err
	})
	return item, err
}

func (s *Service) List(ctx context.Context, opts store.ListOptions) (items []models.InventoryItem, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		items, total, err = tx.Inventory().List(opts)
		return err
	})
	return items, total, err
}

func (s *Service) Movements(ctx context.Context, id uint, opts store.ListOptions) (rows []models.StockMovement, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		if _, err := tx.Inventory().Get(id); err != nil {
			return err
		}
		rows, total, err = tx.Movements().ListByItem(id, opts)
		return err
	})
	return rows, total, err
}

func itemSnapshot(i *models.InventoryItem) map[string]any {
	return map[string]any{
		"sku":      i.SKU,
		"name":     i.Name,
		"type":     i.Type,
		"rate":     i.Rate,
		"quantity": i.Quantity,
	}
}
