package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

// DefaultCurrency is the only currency the quote engine accepts.
const DefaultCurrency = "USD"

// Flat delivery price list; anything not listed ships free.
var shippingCosts = map[string]int64{
	"standard": 0,
	"express":  1200,
}

func shippingCostFor(option string) int64 {
	if v, ok := shippingCosts[strings.ToLower(strings.TrimSpace(option))]; ok {
		return v
	}
	return 0
}

type QuoteItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Variant   string `json:"variant,omitempty"`
}

type QuoteRequest struct {
	Items          []QuoteItem `json:"items"`
	DeliveryOption string      `json:"delivery_option"`
	PromoCode      string      `json:"promo_code,omitempty"`
	Currency       string      `json:"currency"`
}

// QuoteError is a user-displayable quote failure. Promo carries the
// validator's structured reason when the failure came from the promo.
type QuoteError struct {
	Message string
	Promo   *domain.PromoError
}

func (e *QuoteError) Error() string { return e.Message }

type QuoteUC struct {
	Products domain.ProductRepo
	Promos   *PromoUC
}

// Compute re-reads authoritative product data and produces an
// immutable, server-computed price breakdown. Prices are never taken
// from client input. Read-only and side-effect-free.
func (uc *QuoteUC) Compute(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if currency != DefaultCurrency {
		return nil, &QuoteError{Message: "Unsupported currency"}
	}
	if len(req.Items) == 0 {
		return nil, &QuoteError{Message: "Cart is empty"}
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		id, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil || it.Quantity <= 0 {
			return nil, &QuoteError{Message: "Invalid cart item"}
		}
		ids = append(ids, id)
	}

	products, err := uc.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]domain.CheckoutItem, 0, len(req.Items))
	var subtotal int64
	for i, it := range req.Items {
		p, ok := byID[ids[i]]
		if !ok || !p.Active {
			return nil, &QuoteError{Message: "Product not available"}
		}

		var size *string
		if len(p.Sizes) > 0 {
			normalized, ok := p.NormalizeSize(it.Size)
			if !ok {
				return nil, &QuoteError{Message: fmt.Sprintf("Size required for %s", p.Name)}
			}
			size = &normalized
		}
		if p.Stock < it.Quantity {
			return nil, &QuoteError{Message: fmt.Sprintf("Insufficient stock for %s", p.Name)}
		}

		unit := p.EffectivePrice()
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, domain.CheckoutItem{
			ProductID: p.ID,
			Slug:      p.Slug,
			Name:      p.Name,
			Image:     image,
			UnitPrice: unit,
			Quantity:  it.Quantity,
			Variant:   strings.TrimSpace(it.Variant),
			Size:      size,
		})
		subtotal += unit * int64(it.Quantity)
	}

	shipping := shippingCostFor(req.DeliveryOption)
	// Tax stays zero to keep parity with the payment processor.
	var tax int64

	var discount int64
	var promo *domain.PromoValidation
	if strings.TrimSpace(req.PromoCode) != "" {
		promo, err = uc.Promos.Validate(ctx, req.PromoCode, subtotal+shipping, currency)
		if err != nil {
			var perr *domain.PromoError
			if errors.As(err, &perr) {
				return nil, &QuoteError{Message: perr.Message, Promo: perr}
			}
			return nil, err
		}
		if promo.CouponID == "" {
			return nil, &QuoteError{Message: "Promo code not available"}
		}
		discount = promo.Discount
	}

	total := subtotal - discount + shipping + tax
	if total < 0 {
		total = 0
	}

	return &domain.Quote{
		Items:          items,
		DeliveryOption: strings.ToLower(strings.TrimSpace(req.DeliveryOption)),
		Currency:       currency,
		Subtotal:       subtotal,
		Discount:       discount,
		Shipping:       shipping,
		Tax:            tax,
		Total:          total,
		Promo:          promo,
	}, nil
}
