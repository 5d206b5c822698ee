// Package shipping tracks the delivery of sale orders.
package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/metrics"
	"warehouse-backend/internal/models"
	"warehouse-backend/internal/numbering"
	"warehouse-backend/internal/observability"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/validation"

	"github.com/shopspring/decimal"
)

const entityType = "shipment"

type Service struct {
	uow     store.UnitOfWork
	numbers *numbering.Generator
	audit   *audit.Recorder
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(uow store.UnitOfWork, numbers *numbering.Generator, rec *audit.Recorder, m *metrics.Metrics) *Service {
	return &Service{uow: uow, numbers: numbers, audit: rec, metrics: m, now: time.Now}
}

type CreateInput struct {
	SalesOrderID      uint            `json:"sales_order_id" validate:"required"`
	ShippingAddress   models.Address  `json:"shipping_address"`
	Carrier           string          `json:"carrier" validate:"required,max=100"`
	Method            string          `json:"method" validate:"max=50"`
	TrackingNumber    string          `json:"tracking_number" validate:"max=100"`
	Cost              decimal.Decimal `json:"cost"`
	Weight            decimal.Decimal `json:"weight"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery"`
	Notes             string          `json:"notes"`
}

// Create opens the shipment of a Confirmed or Processing sale order and marks the order Shipped.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (sh *models.Shipment, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "create")
	defer func() { done(err) }()

	in.Carrier = strings.TrimSpace(in.Carrier)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Cost.IsNegative() || in.Weight.IsNegative() {
		return nil, apperr.Validation("cost and weight must not be negative")
	}
	number := s.numbers.Next(ctx, numbering.Shipment)

	err = s.uow.Do(ctx, func(tx store.Tx) error {
		so, err := tx.SaleOrders().GetForUpdate(in.SalesOrderID)
		if err != nil {
			return err
		}
		existing, err := tx.Shipments().FindBySalesOrder(so.ID)
		switch {
		case err == nil:
			return apperr.Conflict("sale order %s already has shipment %s", so.OrderNumber, existing.ShipmentNumber).
				With("shipment_id", existing.ID)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
		if !so.Status.Shippable() {
			return apperr.InvalidState("sale order %s is %s; only Confirmed or Processing orders can be shipped", so.OrderNumber, so.Status)
		}

		now := s.now()
		sh = &models.Shipment{
			ShipmentNumber:    number,
			SalesOrderID:      so.ID,
			OrderNumber:       so.OrderNumber,
			ShippingAddress:   in.ShippingAddress,
			Carrier:           in.Carrier,
			Method:            in.Method,
			TrackingNumber:    in.TrackingNumber,
			Cost:              in.Cost,
			Weight:            in.Weight,
			Status:            models.ShipmentPending,
			EstimatedDelivery: in.EstimatedDelivery,
			Notes:             in.Notes,
			CreatedBy:         actor.ID,
			UpdatedBy:         actor.ID,
		}
		if sh.ShippingAddress.Street == "" {
			sh.ShippingAddress.Street = so.CustomerAddress
		}
		for _, it := range so.Items {
			sh.Items = append(sh.Items, models.ShipmentItem{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				SKU:         it.SKU,
				Quantity:    it.Quantity,
			})
		}
		sh.AppendTracking(models.ShipmentPending, "", "Shipment created", actor.ID, now)
		if err := tx.Shipments().Create(sh); err != nil {
			return err
		}

		so.Status = models.SaleStatusShipped
		so.UpdatedBy = actor.ID
		return tx.SaleOrders().Save(so)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, sh, models.AuditActionCreate, "shipment created for "+sh.OrderNumber, nil, map[string]any{
		"carrier": sh.Carrier,
		"status":  sh.Status,
	})
	return sh, nil
}

type StatusInput struct {
	Status         models.ShipmentStatus `json:"status" validate:"required"`
	Location       string                `json:"location" validate:"max=150"`
	Notes          string                `json:"notes" validate:"max=500"`
	TrackingNumber string                `json:"tracking_number" validate:"max=100"`
}

// UpdateStatus appends a tracking event. Delivered also closes the sale order.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id uint, in StatusInput) (sh *models.Shipment, err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "update_status")
	defer func() { done(err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperr.ValidationFields(map[string]string{"status": "oneof"})
	}

	var before models.ShipmentStatus
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		sh, err = tx.Shipments().GetForUpdate(id)
		if err != nil {
			return err
		}
		before = sh.Status

		now := s.now()
		sh.Status = in.Status
		if in.TrackingNumber != "" {
			sh.TrackingNumber = in.TrackingNumber
		}
		sh.UpdatedBy = actor.ID
		sh.AppendTracking(in.Status, in.Location, in.Notes, actor.ID, now)

		if in.Status == models.ShipmentDelivered {
			sh.ActualDelivery = &now
			so, err := tx.SaleOrders().GetForUpdate(sh.SalesOrderID)
			if err != nil {
				return err
			}
			if so.Status != models.SaleStatusCancelled {
				so.Status = models.SaleStatusDelivered
				so.UpdatedBy = actor.ID
				if err := tx.SaleOrders().Save(so); err != nil {
					return err
				}
			}
		}
		return tx.Shipments().Save(sh)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, sh, models.AuditActionStatus, "shipment status changed to "+string(sh.Status),
		map[string]any{"status": before}, map[string]any{"status": sh.Status, "location": in.Location})
	return sh, nil
}

// Delete removes a shipment that has not left the warehouse and returns its order to Processing.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id uint) (err error) {
	ctx, done := observability.Track(ctx, s.metrics, entityType, "delete")
	defer func() { done(err) }()

	var sh *models.Shipment
	err = s.uow.Do(ctx, func(tx store.Tx) error {
		sh, err = tx.Shipments().GetForUpdate(id)
		if err != nil {
			return err
		}
		if sh.Status.Dispatched() {
			return apperr.InvalidState("shipment %s is %s and cannot be deleted", sh.ShipmentNumber, sh.Status)
		}
		if err := tx.Shipments().Delete(id); err != nil {
			return err
		}

		so, err := tx.SaleOrders().GetForUpdate(sh.SalesOrderID)
		if err != nil {
			return err
		}
		if so.Status == models.SaleStatusCancelled {
			return nil
		}
		so.Status = models.SaleStatusProcessing
		so.UpdatedBy = actor.ID
		return tx.SaleOrders().Save(so)
	})
	if err != nil {
		return err
	}

	s.record(ctx, actor, sh, models.AuditActionDelete, "shipment deleted", map[string]any{"status": sh.Status}, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id uint) (sh *models.Shipment, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		sh, err = tx.Shipments().Get(id)
		return err
	})
	return sh, err
}

func (s *Service) List(ctx context.Context, opts store.ListOptions) (rows []models.Shipment, total int64, err error) {
	err = s.uow.View(ctx, func(tx store.Tx) error {
		rows, total, err = tx.Shipments().List(opts)
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
		st.ByStatus, err = tx.Shipments().CountByStatus()
		return err
	})
	for _, n := range st.ByStatus {
		st.Total += n
	}
	return st, err
}

func (s *Service) record(ctx context.Context, actor models.Actor, sh *models.Shipment, action models.AuditAction, desc string, before, after any) {
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    sh.ID,
		EntityName:  sh.ShipmentNumber,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
}
