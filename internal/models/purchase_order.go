package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	POStatusDraft             PurchaseOrderStatus = "Draft"
	POStatusSent              PurchaseOrderStatus = "Sent"
	POStatusAcknowledged      PurchaseOrderStatus = "Acknowledged"
	POStatusPartiallyReceived PurchaseOrderStatus = "Partially Received"
	POStatusReceived          PurchaseOrderStatus = "Received"
	POStatusClosed            PurchaseOrderStatus = "Closed"
	POStatusCancelled         PurchaseOrderStatus = "Cancelled"
)

var PurchaseOrderStatuses = []PurchaseOrderStatus{
	POStatusDraft, POStatusSent, POStatusAcknowledged,
	POStatusPartiallyReceived, POStatusReceived, POStatusClosed, POStatusCancelled,
}

func (s PurchaseOrderStatus) Valid() bool {
	for _, v := range PurchaseOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal: Closed and Cancelled orders only accept corrective notes.
func (s PurchaseOrderStatus) Terminal() bool {
	return s == POStatusClosed || s == POStatusCancelled
}

// Receivable: goods can only arrive against an order that has been sent out.
func (s PurchaseOrderStatus) Receivable() bool {
	switch s {
	case POStatusSent, POStatusAcknowledged, POStatusPartiallyReceived:
		return true
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

type ReceivingStatus string

const (
	ReceivingPending           ReceivingStatus = "Pending"
	ReceivingPartiallyReceived ReceivingStatus = "Partially Received"
	ReceivingFullyReceived     ReceivingStatus = "Fully Received"
)

// PurchaseOrder: procurement from a vendor
type PurchaseOrder struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PONumber string `gorm:"size:40;uniqueIndex;not null" json:"po_number"`

	VendorName    string `gorm:"size:150;not null;index" json:"vendor_name"`
	VendorContact string `gorm:"size:100" json:"vendor_contact"`
	VendorEmail   string `gorm:"size:100" json:"vendor_email"`
	VendorPhone   string `gorm:"size:30" json:"vendor_phone"`
	VendorAddress string `gorm:"size:255" json:"vendor_address"`

	OrderDate        time.Time  `gorm:"index;not null" json:"order_date"`
	ExpectedDelivery *time.Time `json:"expected_delivery"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"items"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	Tax          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax"`
	Discount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"shipping_cost"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`

	Status          PurchaseOrderStatus `gorm:"size:30;index;not null" json:"status"`
	ApprovalStatus  ApprovalStatus      `gorm:"size:20;not null" json:"approval_status"`
	ReceivingStatus ReceivingStatus     `gorm:"size:30;not null" json:"receiving_status"`
	ApprovedBy      *uint               `json:"approved_by"`
	ApprovedAt      *time.Time          `json:"approved_at"`
	CancelReason    string              `gorm:"size:255" json:"cancel_reason"`
	CancelledAt     *time.Time          `json:"cancelled_at"`
	Notes           string              `gorm:"type:text" json:"notes"`

	StatusHistory []POStatusHistory `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"status_history"`

	CreatedBy uint      `json:"created_by"`
	UpdatedBy uint      `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PurchaseOrderItem: one ordered line. ProductID stays nil until the SKU exists in the ledger.
type PurchaseOrderItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID  uint            `gorm:"index;not null" json:"purchase_order_id"`
	ProductID        *uint           `gorm:"index" json:"product_id"`
	ProductName      string          `gorm:"size:200;not null" json:"product_name"`
	SKU              string          `gorm:"size:64;index" json:"sku"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
	ReceivedQuantity int             `gorm:"not null;default:0" json:"received_quantity"`
	PendingQuantity  int             `gorm:"not null;default:0" json:"pending_quantity"`
}

// POStatusHistory: append-only; rows are inserted and never updated.
type POStatusHistory struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint                `gorm:"index;not null" json:"purchase_order_id"`
	Status          PurchaseOrderStatus `gorm:"size:30;not null" json:"status"`
	ChangedAt       time.Time           `gorm:"not null" json:"changed_at"`
	ChangedBy       uint                `json:"changed_by"`
	Notes           string              `gorm:"size:500" json:"notes"`
}

// RecomputeTotals: subtotal + tax - discount + shipping
func (po *PurchaseOrder) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range po.Items {
		it := &po.Items[i]
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(it.TotalPrice)
	}
	po.Subtotal = subtotal
	po.Total = po.Subtotal.Add(po.Tax).Sub(po.Discount).Add(po.ShippingCost)
}

// DeriveReceivingStatus is computed from item state only.
func DeriveReceivingStatus(items []PurchaseOrderItem) ReceivingStatus {
	ordered, received := 0, 0
	for _, it := range items {
		ordered += it.Quantity
		received += it.ReceivedQuantity
	}
	switch {
	case received == 0:
		return ReceivingPending
	case received < ordered:
		return ReceivingPartiallyReceived
	default:
		return ReceivingFullyReceived
	}
}

// Derive recomputes every derived field from the current items. Stores call it on each persist.
func (po *PurchaseOrder) Derive() {
	for i := range po.Items {
		po.Items[i].PendingQuantity = po.Items[i].Quantity - po.Items[i].ReceivedQuantity
	}
	po.ReceivingStatus = DeriveReceivingStatus(po.Items)
	if po.Status.Terminal() {
		return
	}
	switch po.ReceivingStatus {
	case ReceivingPartiallyReceived:
		po.Status = POStatusPartiallyReceived
	case ReceivingFullyReceived:
		po.Status = POStatusReceived
	}
}

func (po *PurchaseOrder) FindItem(id uint) *PurchaseOrderItem {
	for i := range po.Items {
		if po.Items[i].ID == id {
			return &po.Items[i]
		}
	}
	return nil
}

func (po *PurchaseOrder) TotalOrdered() int {
	n := 0
	for _, it := range po.Items {
		n += it.Quantity
	}
	return n
}

func (po *PurchaseOrder) TotalReceived() int {
	n := 0
	for _, it := range po.Items {
		n += it.ReceivedQuantity
	}
	return n
}

func (po *PurchaseOrder) AppendHistory(status PurchaseOrderStatus, by uint, notes string, at time.Time) {
	po.StatusHistory = append(po.StatusHistory, POStatusHistory{
		PurchaseOrderID: po.ID,
		Status:          status,
		ChangedAt:       at,
		ChangedBy:       by,
		Notes:           notes,
	})
}
