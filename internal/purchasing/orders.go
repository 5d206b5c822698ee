package purchasing

import (
	"context"
	"strconv"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"
)

func itoa(i int) string { return strconv.Itoa(i) }

// Create opens a Draft order. Totals are computed from the lines, never taken from input.
func (s *Service) Create(ctx context.Context, actor models.Actor, in OrderInput) (po *models.PurchaseOrder, err error) {
	ctx, done := s.track(ctx, "create")
	defer func() { done(err) }()

	if err := in.check(); err != nil {
		return nil, err
	}
	number := s.numbers.Next(ctx, numbering.PurchaseOrder)
	now := s.now()

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		items, err := buildItems(tx, in.Items)
		if err != nil {
			return err
		}
		po = &models.PurchaseOrder{
			PONumber:         number,
			Items:            items,
			Tax:              in.Tax,
			Discount:         in.Discount,
			ShippingCost:     in.ShippingCost,
			Status:           models.POStatusDraft,
			ApprovalStatus:   models.ApprovalPending,
			ReceivingStatus:  models.ReceivingPending,
			ExpectedDelivery: in.ExpectedDelivery,
			Notes:            in.Notes,
			CreatedBy:        actor.ID,
			UpdatedBy:        actor.ID,
		}
		applyVendor(po, in)
		po.OrderDate = now
		if in.OrderDate != nil {
			po.OrderDate = *in.OrderDate
		}
		po.RecomputeTotals()
		po.AppendHistory(models.POStatusDraft, actor.ID, "Purchase order created", now)
		return tx.PurchaseOrders().Create(po)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, po, models.AuditActionCreate, "purchase order created", nil, map[string]any{
		"vendor_name": po.VendorName,
		"total":       po.Total,
		"lines":       len(po.Items),
	})
	return po, nil
}

func applyVendor(po *models.PurchaseOrder, in OrderInput) {
	po.VendorName = in.VendorName
	po.VendorContact = in.VendorContact
	po.VendorEmail = in.VendorEmail
	po.VendorPhone = in.VendorPhone
	po.VendorAddress = in.VendorAddress
}

// Update replaces vendor, lines and charges. Only Draft orders can be edited.
func (s *Service) Update(ctx context.Context, actor models.Actor, id uint, in OrderInput) (po *models.PurchaseOrder, err error) {
	ctx, done := s.track(ctx, "update")
	defer func() { done(err) }()

	if err := in.check(); err != nil {
		return nil, err
	}

	var before map[string]any
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if po.Status != models.POStatusDraft {
			return apperr.InvalidState("purchase order %s is %s; only Draft orders can be edited", po.PONumber, po.Status)
		}
		before = map[string]any{"vendor_name": po.VendorName, "total": po.Total, "lines": len(po.Items)}

		items, err := buildItems(tx, in.Items)
		if err != nil {
			return err
		}
		applyVendor(po, in)
		if in.OrderDate != nil {
			po.OrderDate = *in.OrderDate
		}
		po.ExpectedDelivery = in.ExpectedDelivery
		po.Items = items
		po.Tax, po.Discount, po.ShippingCost = in.Tax, in.Discount, in.ShippingCost
		po.Notes = in.Notes
		po.UpdatedBy = actor.ID
		po.RecomputeTotals()
		return tx.PurchaseOrders().Save(po)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, po, models.AuditActionUpdate, "purchase order updated", before, map[string]any{
		"vendor_name": po.VendorName,
		"total":       po.Total,
		"lines":       len(po.Items),
	})
	return po, nil
}

// Delete removes a Draft order that has never been received against.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id uint) (err error) {
	ctx, done := s.track(ctx, "delete")
	defer func() { done(err) }()

	var po *models.PurchaseOrder
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if po.Status != models.POStatusDraft {
			return apperr.InvalidState("purchase order %s is %s; only Draft orders can be deleted", po.PONumber, po.Status)
		}
		n, err := tx.Receipts().CountByPurchaseOrder(id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.InvalidState("purchase order %s has %d receipts", po.PONumber, n)
		}
		return tx.PurchaseOrders().Delete(id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, po, models.AuditActionDelete, "purchase order deleted", statusSnapshot(po), nil)
	return nil
}

// Approve marks the order approved and sends a Draft to the vendor.
func (s *Service) Approve(ctx context.Context, actor models.Actor, id uint, notes string) (po *models.PurchaseOrder, err error) {
	ctx, done := s.track(ctx, "approve")
	defer func() { done(err) }()

	var before map[string]any
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if po.Status.Terminal() {
			return apperr.InvalidState("purchase order %s is %s", po.PONumber, po.Status)
		}
		if po.ApprovalStatus == models.ApprovalApproved {
			return apperr.InvalidState("purchase order %s is already approved", po.PONumber)
		}
		before = statusSnapshot(po)

		now := s.now()
		po.ApprovalStatus = models.ApprovalApproved
		po.ApprovedBy = &actor.ID
		po.ApprovedAt = &now
		if po.Status == models.POStatusDraft {
			po.Status = models.POStatusSent
		}
		if notes == "" {
			notes = "Approved"
		}
		po.UpdatedBy = actor.ID
		po.AppendHistory(po.Status, actor.ID, notes, now)
		return tx.PurchaseOrders().Save(po)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, po, models.AuditActionStatus, "purchase order approved", before, statusSnapshot(po))
	return po, nil
}

type StatusInput struct {
	Status models.PurchaseOrderStatus `json:"status" validate:"required"`
	Notes  string                     `json:"notes" validate:"max=500"`
}

// UpdateStatus sets the status as requested. The order of statuses is the caller's
// responsibility; closed and cancelled orders cannot be moved, and Cancelled goes through
// the cancellation rules. A status that contradicts the received quantities is refused.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id uint, in StatusInput) (po *models.PurchaseOrder, err error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperr.ValidationFields(map[string]string{"status": "oneof"})
	}
	if in.Status == models.POStatusCancelled {
		return s.Cancel(ctx, actor, id, in.Notes)
	}

	ctx, done := s.track(ctx, "update_status")
	defer func() { done(err) }()

	var before map[string]any
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		if po.Status.Terminal() {
			return apperr.InvalidState("purchase order %s is %s and can no longer change status", po.PONumber, po.Status)
		}
		before = statusSnapshot(po)
		po.Status = in.Status
		po.Derive()
		if po.Status != in.Status {
			return apperr.InvalidState("purchase order %s is %s by its received quantities and cannot be set to %s",
				po.PONumber, po.ReceivingStatus, in.Status).
				With("receiving_status", string(po.ReceivingStatus))
		}
		po.UpdatedBy = actor.ID
		po.AppendHistory(in.Status, actor.ID, in.Notes, s.now())
		return tx.PurchaseOrders().Save(po)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, po, models.AuditActionStatus, "purchase order status changed to "+string(po.Status), before, statusSnapshot(po))
	return po, nil
}

// Cancel is refused for cancelled, closed and fully received orders.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id uint, reason string) (po *models.PurchaseOrder, err error) {
	ctx, done := s.track(ctx, "cancel")
	defer func() { done(err) }()

	var before map[string]any
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		switch {
		case po.Status == models.POStatusCancelled:
			return apperr.InvalidState("purchase order %s is already cancelled", po.PONumber)
		case po.ReceivingStatus == models.ReceivingFullyReceived:
			return apperr.InvalidState("purchase order %s is fully received and cannot be cancelled", po.PONumber)
		case po.Status.Terminal():
			return apperr.InvalidState("purchase order %s is %s", po.PONumber, po.Status)
		}
		before = statusSnapshot(po)

		now := s.now()
		po.Status = models.POStatusCancelled
		po.CancelReason = reason
		po.CancelledAt = &now
		po.UpdatedBy = actor.ID
		notes := "Cancelled"
		if reason != "" {
			notes = "Cancelled: " + reason
		}
		po.AppendHistory(models.POStatusCancelled, actor.ID, notes, now)
		return tx.PurchaseOrders().Save(po)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, po, models.AuditActionCancel, "purchase order cancelled", before, statusSnapshot(po))
	return po, nil
}

// AddNote appends a corrective history entry. Allowed in every status.
func (s *Service) AddNote(ctx context.Context, actor models.Actor, id uint, note string) (po *models.PurchaseOrder, err error) {
	ctx, done := s.track(ctx, "add_note")
	defer func() { done(err) }()

	if note == "" {
		return nil, apperr.ValidationFields(map[string]string{"notes": "required"})
	}
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().GetForUpdate(id)
		if err != nil {
			return err
		}
		po.UpdatedBy = actor.ID
		po.AppendHistory(po.Status, actor.ID, note, s.now())
		return tx.PurchaseOrders().Save(po)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, po, models.AuditActionUpdate, "note added: "+note, nil, nil)
	return po, nil
}

func (s *Service) Get(ctx context.Context, id uint) (po *models.PurchaseOrder, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		po, err = tx.PurchaseOrders().Get(id)
		return err
	})
	return po, err
}

func (s *Service) List(ctx context.Context, opts store.ListOptions) (rows []models.PurchaseOrder, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		rows, total, err = tx.PurchaseOrders().List(opts)
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
		st.ByStatus, err = tx.PurchaseOrders().CountByStatus()
		return err
	})
	for _, n := range st.ByStatus {
		st.Total += n
	}
	return st, err
}
