package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "Pending"
	ShipmentProcessing     ShipmentStatus = "Processing"
	ShipmentShipped        ShipmentStatus = "Shipped"
	ShipmentInTransit      ShipmentStatus = "In Transit"
	ShipmentOutForDelivery ShipmentStatus = "Out for Delivery"
	ShipmentDelivered      ShipmentStatus = "Delivered"
	ShipmentFailed         ShipmentStatus = "Failed"
	ShipmentReturned       ShipmentStatus = "Returned"
	ShipmentCancelled      ShipmentStatus = "Cancelled"
)

var ShipmentStatuses = []ShipmentStatus{
	ShipmentPending, ShipmentProcessing, ShipmentShipped, ShipmentInTransit,
	ShipmentOutForDelivery, ShipmentDelivered, ShipmentFailed, ShipmentReturned, ShipmentCancelled,
}

func (s ShipmentStatus) Valid() bool {
	for _, v := range ShipmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Dispatched: the parcel has left the warehouse, so the shipment can no longer be deleted.
func (s ShipmentStatus) Dispatched() bool {
	switch s {
	case ShipmentShipped, ShipmentInTransit, ShipmentOutForDelivery, ShipmentDelivered:
		return true
	}
	return false
}

type Address struct {
	Street     string `gorm:"size:255" json:"street"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
	Country    string `gorm:"size:100" json:"country"`
}

// Shipment: delivery of one sale order. At most one per sale order.
type Shipment struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ShipmentNumber string `gorm:"size:40;uniqueIndex;not null" json:"shipment_number"`
	SalesOrderID   uint   `gorm:"uniqueIndex;not null" json:"sales_order_id"`
	OrderNumber    string `gorm:"size:40" json:"order_number"`

	Items []ShipmentItem `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"items"`

	ShippingAddress   Address         `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	Carrier           string          `gorm:"size:100" json:"carrier"`
	Method            string          `gorm:"size:50" json:"method"`
	TrackingNumber    string          `gorm:"size:100;index" json:"tracking_number"`
	Cost              decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cost"`
	Weight            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"weight"`
	Status            ShipmentStatus  `gorm:"size:30;index;not null" json:"status"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery"`
	ActualDelivery    *time.Time      `json:"actual_delivery"`
	Notes             string          `gorm:"type:text" json:"notes"`

	TrackingHistory []TrackingEvent `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"tracking_history"`

	CreatedBy uint      `json:"created_by"`
	UpdatedBy uint      `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShipmentItem: copy of a sale order line at shipment creation
type ShipmentItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ShipmentID  uint   `gorm:"index;not null" json:"shipment_id"`
	ProductID   uint   `gorm:"index" json:"product_id"`
	ProductName string `gorm:"size:200" json:"product_name"`
	SKU         string `gorm:"size:64" json:"sku"`
	Quantity    int    `gorm:"not null" json:"quantity"`
}

// TrackingEvent: append-only, like POStatusHistory
type TrackingEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ShipmentID uint           `gorm:"index;not null" json:"shipment_id"`
	Status     ShipmentStatus `gorm:"size:30;not null" json:"status"`
	Location   string         `gorm:"size:150" json:"location"`
	Notes      string         `gorm:"size:500" json:"notes"`
	Timestamp  time.Time      `gorm:"not null" json:"timestamp"`
	UpdatedBy  uint           `json:"updated_by"`
}

func (s *Shipment) AppendTracking(status ShipmentStatus, location, notes string, by uint, at time.Time) {
	s.TrackingHistory = append(s.TrackingHistory, TrackingEvent{
		ShipmentID: s.ID,
		Status:     status,
		Location:   location,
		Notes:      notes,
		Timestamp:  at,
		UpdatedBy:  by,
	})
}
