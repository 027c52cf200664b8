package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

func capProduct(slug string, price int64, stock int) *domain.Product {
	return &domain.Product{
		ID:     uuid.New(),
		Slug:   slug,
		Name:   slug,
		Price:  price,
		Stock:  stock,
		Active: true,
	}
}

func quoteSetup(t *testing.T) (*QuoteUC, *fakeProductRepo, *fakePromoRepo) {
	t.Helper()
	products := newFakeProductRepo()
	promos := newFakePromoRepo()
	uc := &QuoteUC{
		Products: products,
		Promos:   &PromoUC{Promos: promos, Now: fixedNow},
	}
	return uc, products, promos
}

func TestQuoteStandardDelivery(t *testing.T) {
	uc, products, _ := quoteSetup(t)
	ctx := context.Background()
	p := capProduct("navy-snapback", 200, 10)
	require.NoError(t, products.Save(ctx, p))

	q, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 2}},
		DeliveryOption: "standard",
		Currency:       "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(400), q.Subtotal)
	assert.Equal(t, int64(0), q.Shipping)
	assert.Equal(t, int64(0), q.Discount)
	assert.Equal(t, int64(0), q.Tax)
	assert.Equal(t, int64(400), q.Total)
	require.Len(t, q.Items, 1)
	assert.Equal(t, int64(200), q.Items[0].UnitPrice)
	assert.Equal(t, 2, q.Items[0].Quantity)
}

func TestQuoteExpressWithPercentPromo(t *testing.T) {
	uc, products, promos := quoteSetup(t)
	ctx := context.Background()
	p := capProduct("black-beanie", 400, 10)
	require.NoError(t, products.Save(ctx, p))
	require.NoError(t, promos.Save(ctx, percentPromo("SAVE10", 10)))

	q, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1}},
		DeliveryOption: "express",
		PromoCode:      "SAVE10",
		Currency:       "USD",
	})
	require.NoError(t, err)
	// promo applies to subtotal plus shipping: 10% of 1600
	assert.Equal(t, int64(400), q.Subtotal)
	assert.Equal(t, int64(1200), q.Shipping)
	assert.Equal(t, int64(160), q.Discount)
	assert.Equal(t, int64(1440), q.Total)
	require.NotNil(t, q.Promo)
	assert.Equal(t, "SAVE10", q.Promo.Code)
	assert.Equal(t, "coupon_SAVE10", q.Promo.CouponID)
}

func TestQuoteSalePrice(t *testing.T) {
	uc, products, _ := quoteSetup(t)
	ctx := context.Background()
	sale := int64(1500)
	p := capProduct("sale-cap", 2000, 5)
	p.OnSale = true
	p.SalePrice = &sale
	require.NoError(t, products.Save(ctx, p))

	q, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1}},
		DeliveryOption: "standard",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), q.Subtotal)
}

func TestQuoteSizeVocabulary(t *testing.T) {
	uc, products, _ := quoteSetup(t)
	ctx := context.Background()
	p := capProduct("fitted-cap", 2500, 5)
	p.Sizes = []string{"S", "M", "L"}
	require.NoError(t, products.Save(ctx, p))

	_, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1}},
		DeliveryOption: "standard",
	})
	var qerr *QuoteError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Message, "Size required")

	_, err = uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1, Size: "XXL"}},
		DeliveryOption: "standard",
	})
	require.ErrorAs(t, err, &qerr)

	q, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1, Size: " m "}},
		DeliveryOption: "standard",
	})
	require.NoError(t, err)
	require.NotNil(t, q.Items[0].Size)
	assert.Equal(t, "M", *q.Items[0].Size)
}

func TestQuoteRejections(t *testing.T) {
	uc, products, promos := quoteSetup(t)
	ctx := context.Background()

	active := capProduct("in-stock", 1000, 1)
	inactive := capProduct("retired", 1000, 10)
	inactive.Active = false
	uncovered := percentPromo("NOCOUPON", 10)
	uncovered.StripeCouponID = ""
	require.NoError(t, products.Save(ctx, active))
	require.NoError(t, products.Save(ctx, inactive))
	require.NoError(t, promos.Save(ctx, uncovered))

	cases := []struct {
		name string
		req  QuoteRequest
		msg  string
	}{
		{"empty cart", QuoteRequest{DeliveryOption: "standard"}, "Cart is empty"},
		{"bad product id", QuoteRequest{Items: []QuoteItem{{ProductID: "nope", Quantity: 1}}}, "Invalid cart item"},
		{"zero quantity", QuoteRequest{Items: []QuoteItem{{ProductID: active.ID.String(), Quantity: 0}}}, "Invalid cart item"},
		{"unknown product", QuoteRequest{Items: []QuoteItem{{ProductID: uuid.NewString(), Quantity: 1}}}, "Product not available"},
		{"inactive product", QuoteRequest{Items: []QuoteItem{{ProductID: inactive.ID.String(), Quantity: 1}}}, "Product not available"},
		{"insufficient stock", QuoteRequest{Items: []QuoteItem{{ProductID: active.ID.String(), Quantity: 2}}}, "Insufficient stock"},
		{"foreign currency", QuoteRequest{Items: []QuoteItem{{ProductID: active.ID.String(), Quantity: 1}}, Currency: "EUR"}, "Unsupported currency"},
		{"coupon not provisioned", QuoteRequest{Items: []QuoteItem{{ProductID: active.ID.String(), Quantity: 1}}, PromoCode: "NOCOUPON"}, "Promo code not available"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Compute(ctx, tc.req)
			var qerr *QuoteError
			require.ErrorAs(t, err, &qerr)
			assert.Contains(t, qerr.Message, tc.msg)
		})
	}
}

func TestQuotePromoFailureCarriesDetail(t *testing.T) {
	uc, products, promos := quoteSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 1000, 5)
	min := int64(9000)
	gated := percentPromo("BIGONLY", 10)
	gated.MinSubtotal = &min
	require.NoError(t, products.Save(ctx, p))
	require.NoError(t, promos.Save(ctx, gated))

	_, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 1}},
		DeliveryOption: "standard",
		PromoCode:      "BIGONLY",
	})
	var qerr *QuoteError
	require.ErrorAs(t, err, &qerr)
	require.NotNil(t, qerr.Promo)
	assert.Equal(t, domain.PromoMinSubtotal, qerr.Promo.Code)
}

func TestQuoteIsReadOnly(t *testing.T) {
	uc, products, promos := quoteSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 1000, 5)
	promo := percentPromo("SAVE10", 10)
	require.NoError(t, products.Save(ctx, p))
	require.NoError(t, promos.Save(ctx, promo))

	_, err := uc.Compute(ctx, QuoteRequest{
		Items:          []QuoteItem{{ProductID: p.ID.String(), Quantity: 3}},
		DeliveryOption: "standard",
		PromoCode:      "SAVE10",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, products.store[p.ID].Stock)
	assert.Equal(t, 0, promos.store[promo.ID].Redemptions)
}
