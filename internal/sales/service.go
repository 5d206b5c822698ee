// Package sales runs customer orders against the inventory ledger.
package sales

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"

	"github.com/shopspring/decimal"
)

const entityType = "sale_order"

type Service struct {
	uow     store.UnitOfWork
	ledger  *inventory.Ledger
	numbers *numbering.Generator
	audit   *audit.Recorder
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(uow store.UnitOfWork, ledger *inventory.Ledger, numbers *numbering.Generator, rec *audit.Recorder, m *metrics.Metrics) *Service {
	return &Service{uow: uow, ledger: ledger, numbers: numbers, audit: rec, metrics: m, now: time.Now}
}

// LineInput references an item by id or by SKU.
type LineInput struct {
	ProductID uint   `json:"product_id" validate:"required_without=SKU"`
	SKU       string `json:"sku" validate:"required_without=ProductID,max=64"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func (l LineInput) ref() models.ItemRef {
	if l.ProductID != 0 {
		return models.ByID(l.ProductID)
	}
	return models.BySKU(l.SKU)
}

// resolve finds the item id of a line without locking the row.
func resolve(tx store.Tx, l LineInput) (uint, error) {
	if l.ProductID != 0 {
		return l.ProductID, nil
	}
	item, err := tx.Inventory().FindBySKU(l.SKU)
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

// lockOrder returns the distinct ids in ascending order. Inventory rows are always locked
// in this order.
func lockOrder(ids []uint) []uint {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// itemLockOrder returns line indexes ordered by product id.
func itemLockOrder(items []models.SaleOrderItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(items[a].ProductID, items[b].ProductID)
	})
	return idx
}

type OrderInput struct {
	CustomerName    string                 `json:"customer_name" validate:"required,max=150"`
	CustomerEmail   string                 `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string                 `json:"customer_phone" validate:"omitempty,phone"`
	CustomerAddress string                 `json:"customer_address" validate:"max=255"`
	Items           []LineInput            `json:"items" validate:"required,min=1,dive"`
	Tax             decimal.Decimal        `json:"tax"`
	Discount        decimal.Decimal        `json:"discount"`
	ShippingCost    decimal.Decimal        `json:"shipping_cost"`
	Status          models.SaleOrderStatus `json:"status"`
	PaymentStatus   models.PaymentStatus   `json:"payment_status"`
	PaymentMethod   string                 `json:"payment_method" validate:"max=30"`
	Notes           string                 `json:"notes"`
}

func (in *OrderInput) check() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.Tax.IsNegative() || in.Discount.IsNegative() || in.ShippingCost.IsNegative() {
		return apperr.Validation("tax, discount and shipping_cost must not be negative")
	}
	switch in.Status {
	case "":
		in.Status = models.SaleStatusPending
	case models.SaleStatusPending, models.SaleStatusConfirmed, models.SaleStatusProcessing:
	default:
		return apperr.ValidationFields(map[string]string{"status": "oneof"})
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = models.PaymentPending
	}
	if !in.PaymentStatus.Valid() {
		return apperr.ValidationFields(map[string]string{"payment_status": "oneof"})
	}
	return nil
}

// Create takes stock for every line and records the order. One short line fails the whole
// order and nothing is decremented.
func (s *Service) Create(ctx context.Context, actor models.Actor, in OrderInput) (so *models.SaleOrder, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "create")
	defer func() { done(err) }()

	if err := in.check(); err != nil {
		return nil, err
	}
	number := s.numbers.Next(ctx, numbering.SaleOrder)

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		so = &models.SaleOrder{
			OrderNumber:     number,
			CustomerName:    in.CustomerName,
			CustomerEmail:   in.CustomerEmail,
			CustomerPhone:   in.CustomerPhone,
			CustomerAddress: in.CustomerAddress,
			Tax:             in.Tax,
			Discount:        in.Discount,
			ShippingCost:    in.ShippingCost,
			Status:          in.Status,
			PaymentStatus:   in.PaymentStatus,
			PaymentMethod:   in.PaymentMethod,
			Notes:           in.Notes,
			CreatedBy:       actor.ID,
			UpdatedBy:       actor.ID,
		}
		ids := make([]uint, len(in.Items))
		for i, l := range in.Items {
			id, err := resolve(tx, l)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		locked := make(map[uint]*models.InventoryItem, len(ids))
		for _, id := range lockOrder(ids) {
			item, err := tx.Inventory().GetForUpdate(models.ByID(id))
			if err != nil {
				return err
			}
			locked[id] = item
		}
		for i, l := range in.Items {
			item := locked[ids[i]]
			so.Items = append(so.Items, models.SaleOrderItem{
				ProductID:   item.ID,
				ProductName: item.Name,
				SKU:         item.SKU,
				Quantity:    l.Quantity,
				UnitPrice:   item.Rate,
			})
		}
		so.RecomputeTotals()
		if err := tx.SaleOrders().Create(so); err != nil {
			return err
		}

		mv := inventory.Movement{
			Reason:        models.MovementSale,
			ReferenceType: entityType,
			ReferenceID:   so.ID,
			Note:          so.OrderNumber,
			ActorID:       actor.ID,
		}
		for _, i := range itemLockOrder(so.Items) {
			it := so.Items[i]
			if _, err := s.ledger.Adjust(tx, models.ByID(it.ProductID), -it.Quantity, mv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInsufficientStock {
			s.metrics.InsufficientStock()
		}
		return nil, err
	}

	s.metrics.StockMoved(string(models.MovementSale), so.TotalQuantity())
	s.record(ctx, actor, so, models.AuditActionCreate, "sale order created", nil, map[string]any{
		"customer_name": so.CustomerName,
		"total":         so.Total,
		"lines":         len(so.Items),
	})
	return so, nil
}

// Cancel puts every line back into stock.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id uint, reason string) (so *models.SaleOrder, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "cancel")
	defer func() { done(err) }()

	var before models.SaleOrderStatus
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		so, err = tx.SaleOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if so.Status == models.SaleStatusCancelled {
			return apperr.InvalidState("sale order %s is already cancelled", so.OrderNumber)
		}
		before = so.Status

		note := so.OrderNumber
		if reason != "" {
			note += ": " + reason
		}
		mv := inventory.Movement{
			Reason:        models.MovementSaleCancellation,
			ReferenceType: entityType,
			ReferenceID:   so.ID,
			Note:          note,
			ActorID:       actor.ID,
		}
		for _, i := range itemLockOrder(so.Items) {
			it := so.Items[i]
			if _, err := s.ledger.Adjust(tx, models.ByID(it.ProductID), it.Quantity, mv); err != nil {
				return err
			}
		}

		now := s.now()
		so.Status = models.SaleStatusCancelled
		so.CancelledAt = &now
		so.UpdatedBy = actor.ID
		if reason != "" {
			so.Notes = appendNote(so.Notes, "Cancelled: "+reason)
		}
		return tx.SaleOrders().Save(so)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockMoved(string(models.MovementSaleCancellation), so.TotalQuantity())
	s.record(ctx, actor, so, models.AuditActionCancel, "sale order cancelled",
		map[string]any{"status": before}, map[string]any{"status": so.Status})
	return so, nil
}

type StatusInput struct {
	Status        models.SaleOrderStatus `json:"status"`
	PaymentStatus models.PaymentStatus   `json:"payment_status"`
	Notes         string                 `json:"notes" validate:"max=500"`
}

// UpdateStatus sets order and payment status directly without touching stock.
// Cancellation has its own operation because it restores stock.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id uint, in StatusInput) (so *models.SaleOrder, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "update_status")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if in.Status == "" && in.PaymentStatus == "" {
		fields["status"] = "required"
	}
	if in.Status != "" && !in.Status.Valid() {
		fields["status"] = "oneof"
	}
	if in.Status == models.SaleStatusCancelled {
		fields["status"] = "use_cancel"
	}
	if in.PaymentStatus != "" && !in.PaymentStatus.Valid() {
		fields["payment_status"] = "oneof"
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields(fields)
	}

	var before map[string]any
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		so, err = tx.SaleOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if so.Status == models.SaleStatusCancelled {
			return apperr.InvalidState("sale order %s is cancelled", so.OrderNumber)
		}
		before = statusSnapshot(so)
		if in.Status != "" {
			so.Status = in.Status
		}
		if in.PaymentStatus != "" {
			so.PaymentStatus = in.PaymentStatus
		}
		if in.Notes != "" {
			so.Notes = appendNote(so.Notes, in.Notes)
		}
		so.UpdatedBy = actor.ID
		return tx.SaleOrders().Save(so)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, so, models.AuditActionStatus,
		fmt.Sprintf("sale order status %s, payment %s", so.Status, so.PaymentStatus), before, statusSnapshot(so))
	return so, nil
}

func (s *Service) Get(ctx context.Context, id uint) (so *models.SaleOrder, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		so, err = tx.SaleOrders().Get(id)
		return err
	})
	return so, err
}

func (s *Service) List(ctx context.Context, opts store.ListOptions) (rows []models.SaleOrder, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		rows, total, err = tx.SaleOrders().List(opts)
		return err
	})
	return rows, total, err
}

type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

func (s *Service) Stats(ctx context.Context) (st Stats, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		st.ByStatus, err = tx.SaleOrders().CountByStatus()
		return err
	})
	for _, n := range st.ByStatus {
		st.Total += n
	}
	return st, err
}

func (s *Service) record(ctx context.Context, actor models.Actor, so *models.SaleOrder, action models.AuditAction, desc string, before, after any) {
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    so.ID,
		EntityName:  so.OrderNumber,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
}

func statusSnapshot(so *models.SaleOrder) map[string]any {
	return map[string]any{"status": so.Status, "payment_status": so.PaymentStatus}
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
