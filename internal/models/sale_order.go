package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleOrderStatus string

const (
	SaleStatusPending    SaleOrderStatus = "Pending"
	SaleStatusConfirmed  SaleOrderStatus = "Confirmed"
	SaleStatusProcessing SaleOrderStatus = "Processing"
	SaleStatusShipped    SaleOrderStatus = "Shipped"
	SaleStatusDelivered  SaleOrderStatus = "Delivered"
	SaleStatusCancelled  SaleOrderStatus = "Cancelled"
)

var SaleOrderStatuses = []SaleOrderStatus{
	SaleStatusPending, SaleStatusConfirmed, SaleStatusProcessing,
	SaleStatusShipped, SaleStatusDelivered, SaleStatusCancelled,
}

func (s SaleOrderStatus) Valid() bool {
	for _, v := range SaleOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Shippable: a shipment may only be opened for these.
func (s SaleOrderStatus) Shippable() bool {
	return s == SaleStatusConfirmed || s == SaleStatusProcessing
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "Pending"
	PaymentPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentPaid          PaymentStatus = "Paid"
	PaymentRefunded      PaymentStatus = "Refunded"
	PaymentFailed        PaymentStatus = "Failed"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPartiallyPaid, PaymentPaid, PaymentRefunded, PaymentFailed:
		return true
	}
	return false
}

// SaleOrder: customer order. Stock is decremented when the order is created.
type SaleOrder struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:40;uniqueIndex;not null" json:"order_number"`

	CustomerName    string `gorm:"size:150;not null;index" json:"customer_name"`
	CustomerEmail   string `gorm:"size:100" json:"customer_email"`
	CustomerPhone   string `gorm:"size:30" json:"customer_phone"`
	CustomerAddress string `gorm:"size:255" json:"customer_address"`

	Items []SaleOrderItem `gorm:"foreignKey:SaleOrderID;constraint:OnDelete:CASCADE" json:"items"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"subtotal"`
	Tax          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax"`
	Discount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"shipping_cost"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`

	Status        SaleOrderStatus `gorm:"size:20;index;not null" json:"status"`
	PaymentStatus PaymentStatus   `gorm:"size:20;not null" json:"payment_status"`
	PaymentMethod string          `gorm:"size:30" json:"payment_method"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CancelledAt   *time.Time      `json:"cancelled_at"`

	CreatedBy uint      `json:"created_by"`
	UpdatedBy uint      `json:"updated_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SaleOrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleOrderID uint            `gorm:"index;not null" json:"sale_order_id"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	ProductName string          `gorm:"size:200" json:"product_name"`
	SKU         string          `gorm:"size:64" json:"sku"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"` // ledger rate at order time
	TotalPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
}

// RecomputeTotals: subtotal + tax + shipping - discount. The discount is applied last,
// unlike PurchaseOrder.RecomputeTotals.
func (so *SaleOrder) RecomputeTotals() {
	subtotal := decimal.Zero
	for i := range so.Items {
		it := &so.Items[i]
		it.TotalPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(it.TotalPrice)
	}
	so.Subtotal = subtotal
	so.Total = so.Subtotal.Add(so.Tax).Add(so.ShippingCost).Sub(so.Discount)
}

func (so *SaleOrder) TotalQuantity() int {
	n := 0
	for _, it := range so.Items {
		n += it.Quantity
	}
	return n
}
