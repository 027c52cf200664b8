package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

type PromoCode struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string       `gorm:"size:60;uniqueIndex" json:"code"`
	Active         bool         `gorm:"default:true" json:"active"`
	DiscountType   DiscountType `gorm:"type:varchar(10);not null" json:"discount_type"`
	PercentOff     *int         `json:"percent_off,omitempty"`
	AmountOff      *int64       `json:"amount_off,omitempty"`
	Currency       string       `gorm:"size:3" json:"currency"`
	MinSubtotal    *int64       `json:"min_subtotal,omitempty"`
	MaxRedemptions *int         `json:"max_redemptions,omitempty"`
	Redemptions    int          `gorm:"not null;default:0" json:"redemptions"`
	StartsAt       *time.Time   `json:"starts_at,omitempty"`
	EndsAt         *time.Time   `json:"ends_at,omitempty"`
	StripeCouponID string       `gorm:"size:140" json:"stripe_coupon_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NormalizeCode trims and upper-cases a promo code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateConfig enforces that the discount type and its paired numeric
// field are mutually exclusive before persistence.
func (p *PromoCode) ValidateConfig() error {
	switch p.DiscountType {
	case DiscountPercent:
		if p.PercentOff == nil || *p.PercentOff < 1 || *p.PercentOff > 100 {
			return fmt.Errorf("percent_off must be between 1 and 100")
		}
		if p.AmountOff != nil {
			return fmt.Errorf("amount_off must be empty for percent discounts")
		}
	case DiscountAmount:
		if p.AmountOff == nil || *p.AmountOff <= 0 {
			return fmt.Errorf("amount_off must be positive")
		}
		if p.PercentOff != nil {
			return fmt.Errorf("percent_off must be empty for amount discounts")
		}
	default:
		return fmt.Errorf("unknown discount type %q", p.DiscountType)
	}
	if p.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}

// Promo validation failure codes, surfaced verbatim to clients.
const (
	PromoMissingCode      = "missing_code"
	PromoNotFound         = "not_found"
	PromoInactive         = "inactive"
	PromoCurrencyMismatch = "currency_mismatch"
	PromoNotStarted       = "not_started"
	PromoExpired          = "expired"
	PromoMinSubtotal      = "min_subtotal"
	PromoMaxRedemptions   = "max_redemptions"
	PromoInvalidDiscount  = "invalid_discount"
)

// PromoError is a structured, user-displayable validation failure.
type PromoError struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	MinSubtotal    *int64 `json:"min_subtotal,omitempty"`
	Redemptions    *int   `json:"redemptions,omitempty"`
	MaxRedemptions *int   `json:"max_redemptions,omitempty"`
}

func (e *PromoError) Error() string { return e.Message }

// PromoValidation is the successful result of validating a code against
// a subtotal. CouponID may be empty: the code is valid but cannot be
// applied at checkout until an external discount object is bound.
type PromoValidation struct {
	PromoID  uuid.UUID `json:"promo_id"`
	Code     string    `json:"code"`
	CouponID string    `json:"coupon_id,omitempty"`
	Discount int64     `json:"discount"`
}
