package stripecheckout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

// Gateway creates hosted checkout sessions from server-side quote
// snapshots and verifies completion events. Amounts are always the
// persisted snapshot values, never client input.
type Gateway struct {
	api           *client.API
	webhookSecret string
	baseURL       string
}

func New(apiKey, webhookSecret, baseURL string) *Gateway {
	return &Gateway{
		api:           client.New(apiKey, nil),
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, pc *domain.PendingCheckout) (*domain.PaymentSession, error) {
	currency := strings.ToLower(pc.Currency)

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(pc.Items)+1)
	for _, it := range pc.Items {
		meta := map[string]string{"slug": it.Slug}
		if it.Variant != "" {
			meta["variant"] = it.Variant
		}
		if it.Size != nil {
			meta["size"] = *it.Size
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(lineItemName(it)),
			Metadata: meta,
		}
		if it.Image != "" {
			product.Images = []*string{stripe.String(it.Image)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(it.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(it.UnitPrice),
				ProductData: product,
			},
		})
	}
	if pc.Shipping > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(pc.Shipping),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping (" + pc.DeliveryOption + ")"),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.baseURL + "/checkout/complete?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(g.baseURL + "/checkout/cancelled"),
		CustomerEmail: stripe.String(pc.Email),
		LineItems:     lineItems,
		Metadata: map[string]string{
			"checkout_id":    pc.ID.String(),
			"expected_total": strconv.FormatInt(pc.Total, 10),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + pc.ID.String())
	if pc.StripeCouponID != "" {
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(pc.StripeCouponID)},
		}
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &domain.PaymentSession{ID: session.ID, URL: session.URL}, nil
}

func (g *Gateway) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.PaymentSessionInfo, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return sessionInfo(session), nil
}

// ParseCompletedEvent verifies a webhook payload signature and, when the
// event is a completed checkout session, returns its synchronous view.
// Other event types return (nil, nil) so the caller can ack them.
func (g *Gateway) ParseCompletedEvent(payload []byte, sigHeader string) (*domain.PaymentSessionInfo, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: verify webhook: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return nil, nil
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: decode session event: %w", err)
	}
	return sessionInfo(&session), nil
}

func sessionInfo(s *stripe.CheckoutSession) *domain.PaymentSessionInfo {
	intentID := ""
	if s.PaymentIntent != nil {
		intentID = s.PaymentIntent.ID
	}
	return &domain.PaymentSessionInfo{
		ID:              s.ID,
		Status:          string(s.Status),
		PaymentStatus:   string(s.PaymentStatus),
		PaymentIntentID: intentID,
		AmountTotal:     s.AmountTotal,
		Currency:        strings.ToUpper(string(s.Currency)),
	}
}

func lineItemName(it domain.CheckoutItem) string {
	name := it.Name
	if it.Size != nil && *it.Size != "" {
		name += " (" + *it.Size + ")"
	}
	return name
}
