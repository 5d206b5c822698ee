package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptReceived  ReceiptStatus = "Received"
	ReceiptInspected ReceiptStatus = "Inspected"
	ReceiptApproved  ReceiptStatus = "Approved"
	ReceiptRejected  ReceiptStatus = "Rejected"
)

var receiptTransitions = map[ReceiptStatus][]ReceiptStatus{
	ReceiptReceived:  {ReceiptInspected, ReceiptRejected},
	ReceiptInspected: {ReceiptApproved, ReceiptRejected},
}

func (s ReceiptStatus) CanTransitionTo(next ReceiptStatus) bool {
	for _, allowed := range receiptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReceiptStatus) Final() bool {
	return s == ReceiptApproved || s == ReceiptRejected
}

type ItemCondition string

const (
	ConditionGood      ItemCondition = "Good"
	ConditionDamaged   ItemCondition = "Damaged"
	ConditionDefective ItemCondition = "Defective"
	ConditionPartial   ItemCondition = "Partial"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionDefective, ConditionPartial:
		return true
	}
	return false
}

// ReceivingReceipt: snapshot of one receiving event against a purchase order.
// Lines are never edited after creation; only the review status moves.
type ReceivingReceipt struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ReceiptNumber   string          `gorm:"size:40;uniqueIndex;not null" json:"receipt_number"`
	PurchaseOrderID uint            `gorm:"index;not null" json:"purchase_order_id"`
	PONumber        string          `gorm:"size:40" json:"po_number"`
	Lines           []ReceiptLine   `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE" json:"lines"`
	TotalValue      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_value"`
	Status          ReceiptStatus   `gorm:"size:20;index;not null" json:"status"`
	Carrier         string          `gorm:"size:100" json:"carrier"`
	TrackingNumber  string          `gorm:"size:100" json:"tracking_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	ReceivedBy      uint            `json:"received_by"`
	ReceivedAt      time.Time       `gorm:"index;not null" json:"received_at"`
	ReviewedBy      *uint           `json:"reviewed_by"`
	ReviewedAt      *time.Time      `json:"reviewed_at"`
	ReviewNotes     string          `gorm:"size:500" json:"review_notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ReceiptLine struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	ReceiptID           uint            `gorm:"index;not null" json:"receipt_id"`
	PurchaseOrderItemID uint            `gorm:"index;not null" json:"purchase_order_item_id"`
	ProductID           uint            `gorm:"index" json:"product_id"`
	ProductName         string          `gorm:"size:200" json:"product_name"`
	SKU                 string          `gorm:"size:64" json:"sku"`
	QuantityOrdered     int             `gorm:"not null" json:"quantity_ordered"`
	QuantityReceived    int             `gorm:"not null" json:"quantity_received"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalValue          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_value"`
	Condition           ItemCondition   `gorm:"size:20;not null" json:"condition"`
	Notes               string          `gorm:"size:255" json:"notes"`
}

// RecomputeTotal: line values and the receipt total are never set independently.
func (r *ReceivingReceipt) RecomputeTotal() {
	total := decimal.Zero
	for i := range r.Lines {
		l := &r.Lines[i]
		l.TotalValue = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.QuantityReceived)))
		total = total.Add(l.TotalValue)
	}
	r.TotalValue = total
}
