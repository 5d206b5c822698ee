// Package purchasing runs the purchase order workflow and receiving reconciliation.
package purchasing

import (
	"context"
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

const (
	orderEntity   = "purchase_order"
	receiptEntity = "receipt"
)

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

type LineInput struct {
	ProductID   *uint           `json:"product_id"`
	ProductName string          `json:"product_name" validate:"required_without=ProductID,max=200"`
	SKU         string          `json:"sku" validate:"required_without=ProductID,max=64"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderInput struct {
	VendorName       string          `json:"vendor_name" validate:"required,max=150"`
	VendorContact    string          `json:"vendor_contact" validate:"max=100"`
	VendorEmail      string          `json:"vendor_email" validate:"omitempty,email"`
	VendorPhone      string          `json:"vendor_phone" validate:"omitempty,phone"`
	VendorAddress    string          `json:"vendor_address" validate:"max=255"`
	OrderDate        *time.Time      `json:"order_date"`
	ExpectedDelivery *time.Time      `json:"expected_delivery"`
	Items            []LineInput     `json:"items" validate:"required,min=1,dive"`
	Tax              decimal.Decimal `json:"tax"`
	Discount         decimal.Decimal `json:"discount"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	Notes            string          `json:"notes"`
}

func (in *OrderInput) check() error {
	in.VendorName = strings.TrimSpace(in.VendorName)
	for i := range in.Items {
		in.Items[i].SKU = strings.TrimSpace(in.Items[i].SKU)
		in.Items[i].ProductName = strings.TrimSpace(in.Items[i].ProductName)
	}
	if err := validation.Struct(in); err != nil {
		return err
	}
	for i, it := range in.Items {
		if it.UnitPrice.IsNegative() {
			return apperr.ValidationFields(map[string]string{lineField(i, "unit_price"): "gte"})
		}
	}
	if in.Tax.IsNegative() || in.Discount.IsNegative() || in.ShippingCost.IsNegative() {
		return apperr.Validation("tax, discount and shipping_cost must not be negative")
	}
	return nil
}

func lineField(i int, name string) string {
	return "items[" + itoa(i) + "]." + name
}

// buildItems resolves product references against the ledger and fills name/sku from it.
func buildItems(tx store.Tx, lines []LineInput) ([]models.PurchaseOrderItem, error) {
	items := make([]models.PurchaseOrderItem, 0, len(lines))
	for _, l := range lines {
		it := models.PurchaseOrderItem{
			ProductName: l.ProductName,
			SKU:         l.SKU,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
		if l.ProductID != nil {
			inv, err := tx.Inventory().Get(*l.ProductID)
			if err != nil {
				return nil, err
			}
			pid := inv.ID
			it.ProductID = &pid
			it.SKU = inv.SKU
			if it.ProductName == "" {
				it.ProductName = inv.Name
			}
		}
		items = append(items, it)
	}
	return items, nil
}

func (s *Service) track(ctx context.Context, op string) (context.Context, func(error)) {
	return observability.Track(ctx, s.metrics, orderEntity, op)
}

func (s *Service) record(ctx context.Context, actor models.Actor, po *models.PurchaseOrder, action models.AuditAction, desc string, before, after any) {
	s.audit.Record(ctx, audit.Event{
		Actor:       actor,
		EntityType:  orderEntity,
		EntityID:    po.ID,
		EntityName:  po.PONumber,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
}

func statusSnapshot(po *models.PurchaseOrder) map[string]any {
	return map[string]any{
		"status":           po.Status,
		"approval_status":  po.ApprovalStatus,
		"receiving_status": po.ReceivingStatus,
	}
}
