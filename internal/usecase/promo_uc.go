package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type PromoUC struct {
	Promos domain.PromoRepo
	Now    func() time.Time
}

func (uc *PromoUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

// Validate checks a promo code against a subtotal and computes the
// discount. It never mutates the redemption counter; counting happens
// only at order finalization.
func (uc *PromoUC) Validate(ctx context.Context, code string, subtotal int64, currency string) (*domain.PromoValidation, error) {
	normalized := domain.NormalizeCode(code)
	if normalized == "" {
		return nil, &domain.PromoError{Code: domain.PromoMissingCode, Message: "Enter a promo code"}
	}

	promo, err := uc.Promos.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.PromoError{Code: domain.PromoNotFound, Message: "Promo code not found"}
		}
		return nil, err
	}
	if !promo.Active {
		return nil, &domain.PromoError{Code: domain.PromoInactive, Message: "Promo code is no longer active"}
	}
	if !strings.EqualFold(promo.Currency, currency) {
		return nil, &domain.PromoError{Code: domain.PromoCurrencyMismatch, Message: "Promo code is not valid for this currency"}
	}

	now := uc.now()
	if promo.StartsAt != nil && now.Before(*promo.StartsAt) {
		return nil, &domain.PromoError{Code: domain.PromoNotStarted, Message: "Promo code is not active yet"}
	}
	if promo.EndsAt != nil && !now.Before(*promo.EndsAt) {
		return nil, &domain.PromoError{Code: domain.PromoExpired, Message: "Promo code has expired"}
	}
	if promo.MinSubtotal != nil && subtotal < *promo.MinSubtotal {
		min := *promo.MinSubtotal
		return nil, &domain.PromoError{
			Code:        domain.PromoMinSubtotal,
			Message:     "Order total is below the promo minimum",
			MinSubtotal: &min,
		}
	}
	if promo.MaxRedemptions != nil && promo.Redemptions >= *promo.MaxRedemptions {
		used, cap := promo.Redemptions, *promo.MaxRedemptions
		return nil, &domain.PromoError{
			Code:           domain.PromoMaxRedemptions,
			Message:        "Promo code has reached its redemption limit",
			Redemptions:    &used,
			MaxRedemptions: &cap,
		}
	}

	discount, err := computeDiscount(promo, subtotal)
	if err != nil {
		return nil, &domain.PromoError{Code: domain.PromoInvalidDiscount, Message: "Promo code is misconfigured"}
	}

	return &domain.PromoValidation{
		PromoID:  promo.ID,
		Code:     promo.Code,
		CouponID: promo.StripeCouponID,
		Discount: discount,
	}, nil
}

// computeDiscount applies the promo's configured discount to the
// subtotal and clamps the result to [0, subtotal].
func computeDiscount(promo *domain.PromoCode, subtotal int64) (int64, error) {
	var discount int64
	switch promo.DiscountType {
	case domain.DiscountPercent:
		if promo.PercentOff == nil || *promo.PercentOff <= 0 || *promo.PercentOff > 100 {
			return 0, fmt.Errorf("invalid percent_off")
		}
		// round half up on minor units
		discount = (subtotal*int64(*promo.PercentOff) + 50) / 100
	case domain.DiscountAmount:
		if promo.AmountOff == nil || *promo.AmountOff <= 0 {
			return 0, fmt.Errorf("invalid amount_off")
		}
		discount = *promo.AmountOff
	default:
		return 0, fmt.Errorf("unknown discount type %q", promo.DiscountType)
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount, nil
}
