package purchasing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/inventory"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"
)

type ReceiveLine struct {
	ItemID           uint                 `json:"item_id" validate:"required"`
	QuantityReceived int                  `json:"quantity_received" validate:"gt=0"`
	Condition        models.ItemCondition `json:"condition"`
	Notes            string               `json:"notes" validate:"max=255"`
}

type ReceiveInput struct {
	Items          []ReceiveLine `json:"items" validate:"required,min=1,dive"`
	Carrier        string        `json:"carrier" validate:"max=100"`
	TrackingNumber string        `json:"tracking_number" validate:"max=100"`
	Notes          string        `json:"notes"`
}

type ReceiveResult struct {
	Order   *models.PurchaseOrder    `json:"purchase_order"`
	Receipt *models.ReceivingReceipt `json:"receipt"`
}

// Receive books goods against an order in one transaction: order lines, ledger quantities,
// the stock journal, the receipt and the status history either all change or none do.
func (s *Service) Receive(ctx context.Context, actor models.Actor, poID uint, in ReceiveInput) (res *ReceiveResult, err error) {
	ctx, done := s.track(ctx, "receive")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	for i := range in.Items {
		if in.Items[i].Condition == "" {
			in.Items[i].Condition = models.ConditionGood
		}
		if !in.Items[i].Condition.Valid() {
			return nil, apperr.ValidationFields(map[string]string{lineField(i, "condition"): "oneof"})
		}
	}
	number := s.numbers.Next(ctx, numbering.Receipt)

	var before map[string]any
	units := 0
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err := tx.PurchaseOrders().GetForUpdate(poID)
		if err != nil {
			return err
		}
		if !po.Status.Receivable() {
			return apperr.InvalidState("purchase order %s is %s and cannot be received against", po.PONumber, po.Status)
		}
		before = statusSnapshot(po)

		now := s.now()
		receipt := &models.ReceivingReceipt{
			ReceiptNumber:   number,
			PurchaseOrderID: po.ID,
			PONumber:        po.PONumber,
			Status:          models.ReceiptReceived,
			Carrier:         in.Carrier,
			TrackingNumber:  in.TrackingNumber,
			Notes:           in.Notes,
			ReceivedBy:      actor.ID,
			ReceivedAt:      now,
		}
		mv := inventory.Movement{
			Reason:        models.MovementPurchaseReceipt,
			ReferenceType: orderEntity,
			ReferenceID:   po.ID,
			Note:          po.PONumber + " " + number,
			ActorID:       actor.ID,
		}

		lines := make([]*models.PurchaseOrderItem, len(in.Items))
		for i, line := range in.Items {
			item := po.FindItem(line.ItemID)
			if item == nil {
				return apperr.NotFound("purchase order item", line.ItemID).
					With("purchase_order_id", po.ID).
					With("reason", "item_not_found")
			}
			if item.ReceivedQuantity+line.QuantityReceived > item.Quantity {
				return apperr.InvalidState("over-receipt on %s: ordered %d, already received %d, receiving %d",
					item.SKU, item.Quantity, item.ReceivedQuantity, line.QuantityReceived).
					With("item_id", item.ID).
					With("pending", item.Quantity-item.ReceivedQuantity).
					With("reason", "over_receipt")
			}
			item.ReceivedQuantity += line.QuantityReceived
			units += line.QuantityReceived
			lines[i] = item
		}

		receipt.Lines = make([]models.ReceiptLine, len(in.Items))
		for _, i := range lockOrder(lines) {
			line, item := in.Items[i], lines[i]
			inv, err := s.stockIn(tx, item, line.QuantityReceived, mv)
			if err != nil {
				return err
			}
			receipt.Lines[i] = models.ReceiptLine{
				PurchaseOrderItemID: item.ID,
				ProductID:           inv.ID,
				ProductName:         item.ProductName,
				SKU:                 inv.SKU,
				QuantityOrdered:     item.Quantity,
				QuantityReceived:    line.QuantityReceived,
				UnitPrice:           item.UnitPrice,
				Condition:           line.Condition,
				Notes:               line.Notes,
			}
		}

		po.Derive()
		po.UpdatedBy = actor.ID
		po.AppendHistory(po.Status, actor.ID, fmt.Sprintf("Received %d units (%s)", units, number), now)
		if err := tx.PurchaseOrders().Save(po); err != nil {
			return err
		}
		receipt.RecomputeTotal()
		if err := tx.Receipts().Create(receipt); err != nil {
			return err
		}
		res = &ReceiveResult{Order: po, Receipt: receipt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockMoved(string(models.MovementPurchaseReceipt), units)
	s.record(ctx, actor, res.Order, models.AuditActionReceive,
		fmt.Sprintf("received %d units on %s", units, res.Receipt.ReceiptNumber), before, statusSnapshot(res.Order))
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  receiptEntity,
		EntityID:    res.Receipt.ID,
		EntityName:  res.Receipt.ReceiptNumber,
		Action:      models.AuditActionCreate,
		Description: "receipt recorded for " + res.Order.PONumber,
		After:       map[string]any{"total_value": res.Receipt.TotalValue, "lines": len(res.Receipt.Lines)},
	})
	return res, nil
}

// lockOrder returns line indexes ordered by inventory id, then by SKU for lines not yet
// bound to an item. Ledger rows are always locked in this order.
func lockOrder(lines []*models.PurchaseOrderItem) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		pa, pb := lines[a].ProductID, lines[b].ProductID
		switch {
		case pa != nil && pb != nil:
			return cmp.Compare(*pa, *pb)
		case pa != nil:
			return -1
		case pb != nil:
			return 1
		}
		return cmp.Compare(lines[a].SKU, lines[b].SKU)
	})
	return idx
}

// stockIn increments the ledger for one order line. Lines without a product reference are
// bound to the ledger entry carrying their SKU, which is created on first receipt.
func (s *Service) stockIn(tx store.Tx, item *models.PurchaseOrderItem, qty int, mv inventory.Movement) (*models.InventoryItem, error) {
	if item.ProductID != nil {
		return s.ledger.Adjust(tx, models.ByID(*item.ProductID), qty, mv)
	}
	if item.SKU == "" {
		return nil, apperr.InvalidState("purchase order item %d has neither product nor sku", item.ID)
	}

	inv, err := s.ledger.Adjust(tx, models.BySKU(item.SKU), qty, mv)
	if errors.Is(err, apperr.ErrNotFound) {
		inv, err = s.ledger.Create(tx, inventory.NewItem{
			SKU:      item.SKU,
			Name:     item.ProductName,
			Rate:     item.UnitPrice,
			Quantity: qty,
		}, mv)
	}
	if err != nil {
		return nil, err
	}
	id := inv.ID
	item.ProductID = &id
	return inv, nil
}

type ReviewInput struct {
	Status models.ReceiptStatus `json:"status" validate:"required"`
	Notes  string               `json:"notes" validate:"max=500"`
}

// ReviewReceipt moves a receipt through inspection. Rejection does not reverse stock.
func (s *Service) ReviewReceipt(ctx context.Context, actor models.Actor, id uint, in ReviewInput) (r *models.ReceivingReceipt, err error) {
	ctx, done := observability.Track(ctx, s.metrics, receiptEntity, "review")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var from models.ReceiptStatus
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		r, err = tx.Receipts().GetForUpdate(id)
		if err != nil {
			return err
		}
		from = r.Status
		if r.Status.Final() {
			return apperr.InvalidState("receipt %s is %s", r.ReceiptNumber, r.Status)
		}
		if !r.Status.CanTransitionTo(in.Status) {
			return apperr.InvalidState("receipt %s cannot move from %s to %s", r.ReceiptNumber, r.Status, in.Status)
		}
		now := s.now()
		r.Status = in.Status
		r.ReviewedBy = &actor.ID
		r.ReviewedAt = &now
		r.ReviewNotes = in.Notes
		return tx.Receipts().SaveReview(r)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  receiptEntity,
		EntityID:    r.ID,
		EntityName:  r.ReceiptNumber,
		Action:      models.AuditActionStatus,
		Description: fmt.Sprintf("receipt %s -> %s", from, r.Status),
		Before:      map[string]any{"status": from},
		After:       map[string]any{"status": r.Status},
	})
	return r, nil
}

func (s *Service) GetReceipt(ctx context.Context, id uint) (r *models.ReceivingReceipt, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		r, err = tx.Receipts().Get(id)
		return err
	})
	return r, err
}

func (s *Service) ListReceipts(ctx context.Context, opts store.ListOptions) (rows []models.ReceivingReceipt, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		rows, total, err = tx.Receipts().List(opts)
		return err
	})
	return rows, total, err
}

// ReceiptsForOrder returns the receipts of one order, oldest first.
func (s *Service) ReceiptsForOrder(ctx context.Context, poID uint) (rows []models.ReceivingReceipt, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		if _, err := tx.PurchaseOrders().Get(poID); err != nil {
			return err
		}
		rows, err = tx.Receipts().ListByPurchaseOrder(poID)
		return err
	})
	return rows, err
}
