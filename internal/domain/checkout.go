package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutItem is one line of the immutable quote snapshot. Unit price
// is always the server-computed effective price at quote time.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	Variant   string    `json:"variant,omitempty"`
	Size      *string   `json:"size,omitempty"`
}

// Quote is the server-computed price breakdown downstream components
// trust instead of the client cart.
type Quote struct {
	Items          []CheckoutItem   `json:"items"`
	DeliveryOption string           `json:"delivery_option"`
	Currency       string           `json:"currency"`
	Subtotal       int64            `json:"subtotal"`
	Discount       int64            `json:"discount"`
	Shipping       int64            `json:"shipping"`
	Tax            int64            `json:"tax"`
	Total          int64            `json:"total"`
	Promo          *PromoValidation `json:"promo,omitempty"`
}

// PendingCheckout snapshots a quote plus contact data between session
// creation and webhook delivery. Abandoned rows stay inert forever.
type PendingCheckout struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID      *uuid.UUID     `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Email           string         `gorm:"size:140" json:"email"`
	Name            string         `gorm:"size:140" json:"name"`
	Phone           string         `gorm:"size:50" json:"phone"`
	Address         string         `gorm:"size:255" json:"address"`
	City            string         `gorm:"size:100" json:"city"`
	Province        string         `gorm:"size:80" json:"province"`
	PostalCode      string         `gorm:"size:20" json:"postal_code"`
	Country         string         `gorm:"size:2" json:"country"`
	DeliveryOption  string         `gorm:"size:30" json:"delivery_option"`
	PromoCodeID     *uuid.UUID     `gorm:"type:uuid" json:"promo_code_id,omitempty"`
	PromoCode       string         `gorm:"size:60" json:"promo_code,omitempty"`
	StripeCouponID  string         `gorm:"size:140" json:"stripe_coupon_id,omitempty"`
	DiscountAmount  int64          `gorm:"not null;default:0" json:"discount_amount"`
	Subtotal        int64          `gorm:"not null" json:"subtotal"`
	Shipping        int64          `gorm:"not null;default:0" json:"shipping"`
	Tax             int64          `gorm:"not null;default:0" json:"tax"`
	Total           int64          `gorm:"not null" json:"total"`
	Currency        string         `gorm:"size:3" json:"currency"`
	Items           []CheckoutItem `gorm:"type:jsonb;serializer:json" json:"items"`
	StripeSessionID *string        `gorm:"size:140;uniqueIndex" json:"stripe_session_id,omitempty"`
	OrderID         *uuid.UUID     `gorm:"type:uuid" json:"order_id,omitempty"`
	MismatchNote    string         `gorm:"type:text" json:"mismatch_note,omitempty"`
	MismatchAt      *time.Time     `json:"mismatch_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}
