package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// ValidOrderStatus reports whether s is one of the known statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID                    uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID            *uuid.UUID  `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Email                 string      `gorm:"size:140;index" json:"email"`
	Name                  string      `gorm:"size:140" json:"name"`
	Phone                 string      `gorm:"size:50" json:"phone"`
	Address               string      `gorm:"size:255" json:"address"`
	City                  string      `gorm:"size:100" json:"city"`
	Province              string      `gorm:"size:80" json:"province"`
	PostalCode            string      `gorm:"size:20" json:"postal_code"`
	Country               string      `gorm:"size:2" json:"country"`
	DeliveryOption        string      `gorm:"size:30" json:"delivery_option"`
	PromoCodeID           *uuid.UUID  `gorm:"type:uuid" json:"promo_code_id,omitempty"`
	PromoCode             string      `gorm:"size:60" json:"promo_code,omitempty"`
	DiscountAmount        int64       `gorm:"not null;default:0" json:"discount_amount"`
	Subtotal              int64       `gorm:"not null" json:"subtotal"`
	Shipping              int64       `gorm:"not null;default:0" json:"shipping"`
	Tax                   int64       `gorm:"not null;default:0" json:"tax"`
	Total                 int64       `gorm:"not null" json:"total"`
	Currency              string      `gorm:"size:3" json:"currency"`
	Status                OrderStatus `gorm:"type:varchar(20);index" json:"status"`
	PaidAt                *time.Time  `json:"paid_at,omitempty"`
	ShippedAt             *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt           *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time  `json:"cancelled_at,omitempty"`
	RefundedAt            *time.Time  `json:"refunded_at,omitempty"`
	TrackingNumber        string      `gorm:"size:100" json:"tracking_number,omitempty"`
	AdminNotes            string      `gorm:"type:text" json:"admin_notes,omitempty"`
	StripeSessionID       string      `gorm:"size:140;uniqueIndex" json:"stripe_session_id"`
	StripePaymentIntentID string      `gorm:"size:140" json:"stripe_payment_intent_id,omitempty"`
	Items                 []OrderItem `json:"items"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// StatusTimestamp returns the pointer to the first-write-wins timestamp
// backing the given status, or nil for statuses without one.
func (o *Order) StatusTimestamp(s OrderStatus) **time.Time {
	switch s {
	case OrderStatusPaid:
		return &o.PaidAt
	case OrderStatusShipped:
		return &o.ShippedAt
	case OrderStatusDelivered:
		return &o.DeliveredAt
	case OrderStatusCancelled:
		return &o.CancelledAt
	case OrderStatusRefunded:
		return &o.RefundedAt
	}
	return nil
}

// OrderItem snapshots product data so historical orders stay stable
// when the live product changes.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductSlug string    `gorm:"size:140" json:"product_slug"`
	Name        string    `gorm:"size:180" json:"name"`
	Image       string    `gorm:"size:255" json:"image,omitempty"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"`
	Variant     string    `gorm:"size:60" json:"variant,omitempty"`
	Size        *string   `gorm:"size:10" json:"size,omitempty"`
	Quantity    int       `gorm:"not null" json:"quantity"`
}

type OrderFilter struct {
	Status   OrderStatus
	Email    string
	Sort     string
	Page     int
	PageSize int
}
