package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type ContactInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type ShippingInput struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CheckoutRequest struct {
	Contact        ContactInfo   `json:"contact"`
	Shipping       ShippingInput `json:"shipping_address"`
	DeliveryOption string        `json:"delivery_option"`
	PromoCode      string        `json:"promo_code,omitempty"`
	Items          []QuoteItem   `json:"items"`
	Currency       string        `json:"currency"`
}

type CheckoutUC struct {
	Checkouts domain.CheckoutRepo
	Orders    domain.OrderRepo
	Quotes    *QuoteUC
	Gateway   domain.PaymentGateway
	Now       func() time.Time
}

func (uc *CheckoutUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func validateCheckoutRequest(req CheckoutRequest) error {
	if !emailRe.MatchString(strings.TrimSpace(req.Contact.Email)) {
		return &QuoteError{Message: "A valid email is required"}
	}
	if strings.TrimSpace(req.Contact.Name) == "" {
		return &QuoteError{Message: "Name is required"}
	}
	for field, v := range map[string]string{
		"address":     req.Shipping.Address,
		"city":        req.Shipping.City,
		"postal code": req.Shipping.PostalCode,
		"country":     req.Shipping.Country,
	} {
		if strings.TrimSpace(v) == "" {
			return &QuoteError{Message: fmt.Sprintf("Shipping %s is required", field)}
		}
	}
	if len(req.Items) == 0 {
		return &QuoteError{Message: "Cart is empty"}
	}
	return nil
}

// Initiate computes an authoritative quote, persists the pending
// checkout snapshot and creates the processor-hosted session. Returns
// the redirect URL. Validation failures leave no persisted state; a
// failed processor call leaves an unlinked, inert pending row.
func (uc *CheckoutUC) Initiate(ctx context.Context, req CheckoutRequest, customerID *uuid.UUID) (string, error) {
	if err := validateCheckoutRequest(req); err != nil {
		return "", err
	}

	quote, err := uc.Quotes.Compute(ctx, QuoteRequest{
		Items:          req.Items,
		DeliveryOption: req.DeliveryOption,
		PromoCode:      req.PromoCode,
		Currency:       req.Currency,
	})
	if err != nil {
		return "", err
	}

	pc := &domain.PendingCheckout{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Email:          strings.ToLower(strings.TrimSpace(req.Contact.Email)),
		Name:           strings.TrimSpace(req.Contact.Name),
		Phone:          strings.TrimSpace(req.Contact.Phone),
		Address:        strings.TrimSpace(req.Shipping.Address),
		City:           strings.TrimSpace(req.Shipping.City),
		Province:       strings.TrimSpace(req.Shipping.Province),
		PostalCode:     strings.TrimSpace(req.Shipping.PostalCode),
		Country:        strings.ToUpper(strings.TrimSpace(req.Shipping.Country)),
		DeliveryOption: quote.DeliveryOption,
		Subtotal:       quote.Subtotal,
		Shipping:       quote.Shipping,
		Tax:            quote.Tax,
		DiscountAmount: quote.Discount,
		Total:          quote.Total,
		Currency:       quote.Currency,
		Items:          quote.Items,
		CreatedAt:      uc.now(),
	}
	if quote.Promo != nil {
		promoID := quote.Promo.PromoID
		pc.PromoCodeID = &promoID
		pc.PromoCode = quote.Promo.Code
		pc.StripeCouponID = quote.Promo.CouponID
	}

	if err := uc.Checkouts.Create(ctx, pc); err != nil {
		return "", err
	}

	session, err := uc.Gateway.CreateCheckoutSession(ctx, pc)
	if err != nil {
		log.Error().Err(err).Str("checkout_id", pc.ID.String()).Msg("create payment session")
		return "", &QuoteError{Message: "Payment session could not be created"}
	}
	if session.URL == "" {
		return "", &QuoteError{Message: "Payment session could not be created"}
	}

	if err := uc.Checkouts.LinkSession(ctx, pc.ID, session.ID); err != nil {
		return "", err
	}
	return session.URL, nil
}

// Finalize converts a completed processor session into a durable order
// exactly once. Safe to invoke repeatedly for the same session id.
func (uc *CheckoutUC) Finalize(ctx context.Context, sessionID, paymentIntentID string) (uuid.UUID, error) {
	if strings.TrimSpace(sessionID) == "" {
		return uuid.Nil, errors.New("session id is required")
	}

	if existing, err := uc.Orders.FindBySessionID(ctx, sessionID); err == nil {
		return existing.ID, uc.backfillPaymentInfo(ctx, existing, paymentIntentID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return uuid.Nil, err
	}

	pc, err := uc.Checkouts.FindBySessionID(ctx, sessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("pending checkout for session %s: %w", sessionID, err)
	}
	if pc.OrderID != nil {
		return *pc.OrderID, nil
	}

	now := uc.now()
	order := orderFromCheckout(pc, paymentIntentID, now)
	decs := aggregateDecrements(pc.Items)

	if err := uc.Orders.CreateFromCheckout(ctx, order, pc.PromoCodeID, decs, pc.ID, now); err != nil {
		// A concurrent duplicate may have won the race; prefer its order
		// over propagating the failure.
		if existing, err2 := uc.Orders.FindBySessionID(ctx, sessionID); err2 == nil {
			return existing.ID, nil
		}
		return uuid.Nil, err
	}
	return order.ID, nil
}

// backfillPaymentInfo fills the payment-intent id and paid timestamp on
// an already-finalized order, first write wins.
func (uc *CheckoutUC) backfillPaymentInfo(ctx context.Context, o *domain.Order, paymentIntentID string) error {
	changed := false
	if o.StripePaymentIntentID == "" && paymentIntentID != "" {
		o.StripePaymentIntentID = paymentIntentID
		changed = true
	}
	if o.PaidAt == nil {
		now := uc.now()
		o.PaidAt = &now
		if o.Status == domain.OrderStatusCreated {
			o.Status = domain.OrderStatusPaid
		}
		changed = true
	}
	if !changed {
		return nil
	}
	return uc.Orders.Save(ctx, o)
}

func orderFromCheckout(pc *domain.PendingCheckout, paymentIntentID string, now time.Time) *domain.Order {
	sessionID := ""
	if pc.StripeSessionID != nil {
		sessionID = *pc.StripeSessionID
	}
	o := &domain.Order{
		ID:                    uuid.New(),
		CustomerID:            pc.CustomerID,
		Email:                 pc.Email,
		Name:                  pc.Name,
		Phone:                 pc.Phone,
		Address:               pc.Address,
		City:                  pc.City,
		Province:              pc.Province,
		PostalCode:            pc.PostalCode,
		Country:               pc.Country,
		DeliveryOption:        pc.DeliveryOption,
		PromoCodeID:           pc.PromoCodeID,
		PromoCode:             pc.PromoCode,
		DiscountAmount:        pc.DiscountAmount,
		Subtotal:              pc.Subtotal,
		Shipping:              pc.Shipping,
		Tax:                   pc.Tax,
		Total:                 pc.Total,
		Currency:              pc.Currency,
		Status:                domain.OrderStatusPaid,
		PaidAt:                &now,
		StripeSessionID:       sessionID,
		StripePaymentIntentID: paymentIntentID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for _, it := range pc.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductSlug: it.Slug,
			Name:        it.Name,
			Image:       it.Image,
			UnitPrice:   it.UnitPrice,
			Variant:     it.Variant,
			Size:        it.Size,
			Quantity:    it.Quantity,
		})
	}
	return o
}

// aggregateDecrements collapses items referencing the same product into
// one decrement before it is applied.
func aggregateDecrements(items []domain.CheckoutItem) []domain.StockDecrement {
	totals := map[uuid.UUID]int{}
	order := []uuid.UUID{}
	for _, it := range items {
		if _, seen := totals[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		totals[it.ProductID] += it.Quantity
	}
	decs := make([]domain.StockDecrement, 0, len(order))
	for _, id := range order {
		decs = append(decs, domain.StockDecrement{ProductID: id, Quantity: totals[id]})
	}
	return decs
}

// Reconcile compares the processor-reported charge against the
// snapshot total. Mismatches are recorded once and never block order
// creation.
func (uc *CheckoutUC) Reconcile(ctx context.Context, sessionID string, amountTotal int64, currency string) (bool, error) {
	pc, err := uc.Checkouts.FindBySessionID(ctx, sessionID)
	if err != nil {
		return false, err
	}

	if amountTotal == pc.Total && strings.EqualFold(currency, pc.Currency) {
		return false, nil
	}

	note, _ := json.Marshal(map[string]any{
		"expected":          pc.Total,
		"reported":          amountTotal,
		"expected_currency": pc.Currency,
		"reported_currency": strings.ToUpper(currency),
	})
	if err := uc.Checkouts.RecordMismatch(ctx, pc.ID, string(note), uc.now()); err != nil {
		return true, err
	}
	return true, nil
}

// LookupOrderBySession backs the completion polling endpoint.
func (uc *CheckoutUC) LookupOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	return uc.Orders.FindBySessionID(ctx, sessionID)
}
