package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type checkoutFixture struct {
	uc        *CheckoutUC
	products  *fakeProductRepo
	promos    *fakePromoRepo
	checkouts *fakeCheckoutRepo
	orders    *fakeOrderRepo
	gateway   *fakeGateway
}

func checkoutSetup(t *testing.T) *checkoutFixture {
	t.Helper()
	products := newFakeProductRepo()
	promos := newFakePromoRepo()
	checkouts := newFakeCheckoutRepo()
	orders := newFakeOrderRepo(products, promos, checkouts)
	gateway := newFakeGateway()
	uc := &CheckoutUC{
		Checkouts: checkouts,
		Orders:    orders,
		Quotes:    &QuoteUC{Products: products, Promos: &PromoUC{Promos: promos, Now: fixedNow}},
		Gateway:   gateway,
		Now:       fixedNow,
	}
	return &checkoutFixture{uc: uc, products: products, promos: promos, checkouts: checkouts, orders: orders, gateway: gateway}
}

func validCheckoutRequest(productID uuid.UUID) CheckoutRequest {
	return CheckoutRequest{
		Contact: ContactInfo{Email: "Buyer@Example.com", Name: "Alex Buyer", Phone: "555-0100"},
		Shipping: ShippingInput{
			Address:    "1 Chapel St",
			City:       "New Haven",
			Province:   "CT",
			PostalCode: "06510",
			Country:    "us",
		},
		DeliveryOption: "express",
		Items:          []QuoteItem{{ProductID: productID.String(), Quantity: 2}},
		Currency:       "USD",
	}
}

func TestInitiatePersistsSnapshotAndLinksSession(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("navy-snapback", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))
	require.NoError(t, f.promos.Save(ctx, percentPromo("SAVE10", 10)))

	req := validCheckoutRequest(p.ID)
	req.PromoCode = "save10"

	url, err := f.uc.Initiate(ctx, req, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://checkout.example/"))

	require.Len(t, f.checkouts.store, 1)
	var pc *domain.PendingCheckout
	for _, v := range f.checkouts.store {
		pc = v
	}
	assert.Equal(t, "buyer@example.com", pc.Email)
	assert.Equal(t, "US", pc.Country)
	assert.Equal(t, int64(800), pc.Subtotal)
	assert.Equal(t, int64(1200), pc.Shipping)
	assert.Equal(t, int64(200), pc.DiscountAmount)
	assert.Equal(t, int64(1800), pc.Total)
	assert.Equal(t, "SAVE10", pc.PromoCode)
	assert.Equal(t, "coupon_SAVE10", pc.StripeCouponID)
	require.NotNil(t, pc.PromoCodeID)
	require.NotNil(t, pc.StripeSessionID)
	assert.True(t, strings.HasPrefix(*pc.StripeSessionID, "cs_"))

	// the gateway saw the snapshot before the session link
	require.NotNil(t, f.gateway.lastPC)
	assert.Equal(t, pc.ID, f.gateway.lastPC.ID)

	// stock is untouched until finalization
	assert.Equal(t, 10, f.products.store[p.ID].Stock)
}

func TestInitiateValidationLeavesNoState(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))

	bad := validCheckoutRequest(p.ID)
	bad.Contact.Email = "not-an-email"
	_, err := f.uc.Initiate(ctx, bad, nil)
	var qerr *QuoteError
	require.ErrorAs(t, err, &qerr)
	assert.Empty(t, f.checkouts.store)

	empty := validCheckoutRequest(p.ID)
	empty.Items = nil
	_, err = f.uc.Initiate(ctx, empty, nil)
	require.ErrorAs(t, err, &qerr)
	assert.Empty(t, f.checkouts.store)

	short := validCheckoutRequest(p.ID)
	short.Items[0].Quantity = 99
	_, err = f.uc.Initiate(ctx, short, nil)
	require.ErrorAs(t, err, &qerr)
	assert.Empty(t, f.checkouts.store)
}

func TestInitiateGatewayFailureLeavesUnlinkedRow(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))
	f.gateway.createErr = assert.AnError

	_, err := f.uc.Initiate(ctx, validCheckoutRequest(p.ID), nil)
	var qerr *QuoteError
	require.ErrorAs(t, err, &qerr)

	require.Len(t, f.checkouts.store, 1)
	for _, pc := range f.checkouts.store {
		assert.Nil(t, pc.StripeSessionID)
	}
}

// initiateAndGetSession drives a full Initiate and returns the linked
// session id plus the snapshot id.
func initiateAndGetSession(t *testing.T, f *checkoutFixture, req CheckoutRequest) (string, uuid.UUID) {
	t.Helper()
	_, err := f.uc.Initiate(context.Background(), req, nil)
	require.NoError(t, err)
	for _, pc := range f.checkouts.store {
		require.NotNil(t, pc.StripeSessionID)
		return *pc.StripeSessionID, pc.ID
	}
	t.Fatal("no pending checkout persisted")
	return "", uuid.Nil
}

func TestFinalizeCreatesOrderExactlyOnce(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("navy-snapback", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))
	promo := percentPromo("SAVE10", 10)
	require.NoError(t, f.promos.Save(ctx, promo))

	req := validCheckoutRequest(p.ID)
	req.PromoCode = "SAVE10"
	sessionID, checkoutID := initiateAndGetSession(t, f, req)

	orderID, err := f.uc.Finalize(ctx, sessionID, "pi_123")
	require.NoError(t, err)

	order, err := f.orders.FindByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, sessionID, order.StripeSessionID)
	assert.Equal(t, "pi_123", order.StripePaymentIntentID)
	assert.Equal(t, int64(1800), order.Total)
	require.NotNil(t, order.PaidAt)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, 8, f.products.store[p.ID].Stock)
	assert.Equal(t, 1, f.promos.store[promo.ID].Redemptions)
	require.NotNil(t, f.checkouts.store[checkoutID].OrderID)
	assert.Equal(t, orderID, *f.checkouts.store[checkoutID].OrderID)
	require.NotNil(t, f.checkouts.store[checkoutID].CompletedAt)

	// replay: same order, no double side effects
	again, err := f.uc.Finalize(ctx, sessionID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, orderID, again)
	assert.Equal(t, 8, f.products.store[p.ID].Stock)
	assert.Equal(t, 1, f.promos.store[promo.ID].Redemptions)
}

func TestFinalizeBackfillsPaymentIntent(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))

	sessionID, _ := initiateAndGetSession(t, f, validCheckoutRequest(p.ID))

	orderID, err := f.uc.Finalize(ctx, sessionID, "")
	require.NoError(t, err)

	_, err = f.uc.Finalize(ctx, sessionID, "pi_late")
	require.NoError(t, err)
	order, err := f.orders.FindByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "pi_late", order.StripePaymentIntentID)

	// first write wins
	_, err = f.uc.Finalize(ctx, sessionID, "pi_other")
	require.NoError(t, err)
	order, err = f.orders.FindByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, "pi_late", order.StripePaymentIntentID)
}

func TestFinalizeUnknownSession(t *testing.T) {
	f := checkoutSetup(t)
	_, err := f.uc.Finalize(context.Background(), "cs_missing", "pi_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.uc.Finalize(context.Background(), "  ", "pi_1")
	require.Error(t, err)
}

func TestFinalizeConcurrentDuplicatePrefersWinner(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))

	sessionID, _ := initiateAndGetSession(t, f, validCheckoutRequest(p.ID))

	// another worker commits between the fast path check and our insert
	winner := &domain.Order{ID: uuid.New(), StripeSessionID: sessionID, Status: domain.OrderStatusPaid}
	f.orders.failNext = assert.AnError
	f.orders.raceWinner = winner

	orderID, err := f.uc.Finalize(ctx, sessionID, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, orderID)
	assert.Len(t, f.orders.store, 1)
}

func TestFinalizeInsufficientStock(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 2)
	require.NoError(t, f.products.Save(ctx, p))

	sessionID, _ := initiateAndGetSession(t, f, validCheckoutRequest(p.ID))

	// stock drained after the session was created
	f.products.store[p.ID].Stock = 1

	_, err := f.uc.Finalize(ctx, sessionID, "pi_1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, f.products.store[p.ID].Stock)
}

func TestReconcile(t *testing.T) {
	f := checkoutSetup(t)
	ctx := context.Background()
	p := capProduct("cap", 400, 10)
	require.NoError(t, f.products.Save(ctx, p))

	sessionID, checkoutID := initiateAndGetSession(t, f, validCheckoutRequest(p.ID))

	mismatch, err := f.uc.Reconcile(ctx, sessionID, 2000, "USD")
	require.NoError(t, err)
	assert.False(t, mismatch)
	assert.Nil(t, f.checkouts.store[checkoutID].MismatchAt)

	mismatch, err = f.uc.Reconcile(ctx, sessionID, 1500, "USD")
	require.NoError(t, err)
	assert.True(t, mismatch)
	require.NotNil(t, f.checkouts.store[checkoutID].MismatchAt)
	assert.Contains(t, f.checkouts.store[checkoutID].MismatchNote, `"expected":2000`)
	assert.Contains(t, f.checkouts.store[checkoutID].MismatchNote, `"reported":1500`)

	// second mismatch keeps the first note
	firstAt := *f.checkouts.store[checkoutID].MismatchAt
	mismatch, err = f.uc.Reconcile(ctx, sessionID, 1400, "USD")
	require.NoError(t, err)
	assert.True(t, mismatch)
	assert.Equal(t, firstAt, *f.checkouts.store[checkoutID].MismatchAt)
	assert.Contains(t, f.checkouts.store[checkoutID].MismatchNote, `"reported":1500`)

	mismatch, err = f.uc.Reconcile(ctx, sessionID, 2000, "EUR")
	require.NoError(t, err)
	assert.True(t, mismatch)
}

func TestAggregateDecrements(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	decs := aggregateDecrements([]domain.CheckoutItem{
		{ProductID: a, Quantity: 1},
		{ProductID: b, Quantity: 2},
		{ProductID: a, Quantity: 3},
	})
	require.Len(t, decs, 2)
	assert.Equal(t, domain.StockDecrement{ProductID: a, Quantity: 4}, decs[0])
	assert.Equal(t, domain.StockDecrement{ProductID: b, Quantity: 2}, decs[1])
}
