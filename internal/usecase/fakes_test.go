package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type fakeProductRepo struct {
	store map[uuid.UUID]*domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{store: map[uuid.UUID]*domain.Product{}}
}

func (r *fakeProductRepo) Save(_ context.Context, p *domain.Product) error {
	cp := *p
	r.store[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	for _, p := range r.store {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, id := range ids {
		if p, ok := r.store[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	out := []domain.Product{}
	for _, p := range r.store {
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) DeleteBySlug(_ context.Context, slug string) error {
	for id, p := range r.store {
		if p.Slug == slug {
			delete(r.store, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakePromoRepo struct {
	store map[uuid.UUID]*domain.PromoCode
}

func newFakePromoRepo() *fakePromoRepo {
	return &fakePromoRepo{store: map[uuid.UUID]*domain.PromoCode{}}
}

func (r *fakePromoRepo) Save(_ context.Context, p *domain.PromoCode) error {
	cp := *p
	r.store[p.ID] = &cp
	return nil
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	for _, p := range r.store {
		if strings.EqualFold(p.Code, code) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	if p, ok := r.store[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakePromoRepo) List(_ context.Context) ([]domain.PromoCode, error) {
	out := []domain.PromoCode{}
	for _, p := range r.store {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePromoRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

type fakeCheckoutRepo struct {
	store map[uuid.UUID]*domain.PendingCheckout
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{store: map[uuid.UUID]*domain.PendingCheckout{}}
}

func (r *fakeCheckoutRepo) Create(_ context.Context, pc *domain.PendingCheckout) error {
	cp := *pc
	r.store[pc.ID] = &cp
	return nil
}

func (r *fakeCheckoutRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.PendingCheckout, error) {
	if pc, ok := r.store[id]; ok {
		cp := *pc
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCheckoutRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.PendingCheckout, error) {
	for _, pc := range r.store {
		if pc.StripeSessionID != nil && *pc.StripeSessionID == sessionID {
			cp := *pc
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCheckoutRepo) LinkSession(_ context.Context, id uuid.UUID, sessionID string) error {
	pc, ok := r.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pc.StripeSessionID != nil {
		return domain.ErrConflict
	}
	pc.StripeSessionID = &sessionID
	return nil
}

func (r *fakeCheckoutRepo) RecordMismatch(_ context.Context, id uuid.UUID, note string, at time.Time) error {
	pc, ok := r.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if pc.MismatchAt != nil {
		return nil
	}
	pc.MismatchNote = note
	pc.MismatchAt = &at
	return nil
}

// fakeOrderRepo emulates the finalize transaction against the other
// fakes so its side effects are observable in tests.
type fakeOrderRepo struct {
	store     map[uuid.UUID]*domain.Order
	products  *fakeProductRepo
	promos    *fakePromoRepo
	checkouts *fakeCheckoutRepo
	// failNext fails the next CreateFromCheckout; raceWinner, if set,
	// is stored alongside the failure as if a concurrent finalizer
	// committed first.
	failNext   error
	raceWinner *domain.Order
}

func newFakeOrderRepo(products *fakeProductRepo, promos *fakePromoRepo, checkouts *fakeCheckoutRepo) *fakeOrderRepo {
	return &fakeOrderRepo{store: map[uuid.UUID]*domain.Order{}, products: products, promos: promos, checkouts: checkouts}
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	if o, ok := r.store[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	for _, o := range r.store {
		if o.StripeSessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeOrderRepo) List(_ context.Context, _ domain.OrderFilter) ([]domain.Order, int64, error) {
	out := []domain.Order{}
	for _, o := range r.store {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) Save(_ context.Context, o *domain.Order) error {
	cp := *o
	r.store[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) CreateFromCheckout(_ context.Context, o *domain.Order, promoID *uuid.UUID, decs []domain.StockDecrement, checkoutID uuid.UUID, completedAt time.Time) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		if r.raceWinner != nil {
			cp := *r.raceWinner
			r.store[cp.ID] = &cp
		}
		return err
	}
	for _, d := range decs {
		p, ok := r.products.store[d.ProductID]
		if !ok || p.Stock < d.Quantity {
			return fmt.Errorf("product %s: %w", d.ProductID, domain.ErrInsufficientStock)
		}
	}
	for _, d := range decs {
		r.products.store[d.ProductID].Stock -= d.Quantity
	}
	if promoID != nil {
		if p, ok := r.promos.store[*promoID]; ok {
			p.Redemptions++
		}
	}
	if pc, ok := r.checkouts.store[checkoutID]; ok {
		id := o.ID
		pc.OrderID = &id
		pc.CompletedAt = &completedAt
	}
	cp := *o
	r.store[o.ID] = &cp
	return nil
}

type fakeShipmentRepo struct {
	store map[uuid.UUID]*domain.Shipment
}

func newFakeShipmentRepo() *fakeShipmentRepo {
	return &fakeShipmentRepo{store: map[uuid.UUID]*domain.Shipment{}}
}

func (r *fakeShipmentRepo) Save(_ context.Context, s *domain.Shipment) error {
	cp := *s
	r.store[s.OrderID] = &cp
	return nil
}

func (r *fakeShipmentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	if s, ok := r.store[orderID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type fakeGateway struct {
	sessions  map[string]*domain.PaymentSessionInfo
	lastPC    *domain.PendingCheckout
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*domain.PaymentSessionInfo{}}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, pc *domain.PendingCheckout) (*domain.PaymentSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	cp := *pc
	g.lastPC = &cp
	id := "cs_" + pc.ID.String()[:8]
	return &domain.PaymentSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*domain.PaymentSessionInfo, error) {
	if info, ok := g.sessions[sessionID]; ok {
		cp := *info
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type fakeCarrier struct {
	shipmentID  string
	rates       []domain.Rate
	purchase    *domain.LabelPurchase
	transaction *domain.LabelPurchase
	purchaseErr error
	rateErr     error
}

func (c *fakeCarrier) CreateShipment(_ context.Context, _, _ domain.ShippingAddress, _ domain.Parcel) (string, []domain.Rate, error) {
	if c.rateErr != nil {
		return "", nil, c.rateErr
	}
	return c.shipmentID, c.rates, nil
}

func (c *fakeCarrier) PurchaseLabel(_ context.Context, rateID, labelFormat string) (*domain.LabelPurchase, error) {
	if c.purchaseErr != nil {
		return nil, c.purchaseErr
	}
	cp := *c.purchase
	cp.RateID = rateID
	cp.LabelFormat = labelFormat
	return &cp, nil
}

func (c *fakeCarrier) GetTransaction(_ context.Context, _ string) (*domain.LabelPurchase, error) {
	if c.transaction == nil {
		return nil, domain.ErrNotFound
	}
	cp := *c.transaction
	return &cp, nil
}

type fakeAssetStore struct {
	uploads []string
	err     error
}

func (a *fakeAssetStore) UploadURL(_ context.Context, remoteURL, folder string) (*domain.Asset, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.uploads = append(a.uploads, remoteURL)
	return &domain.Asset{URL: "https://cdn.example/" + folder + "/archived.pdf", PublicID: folder + "/archived", Provider: "cloudinary"}, nil
}

func (a *fakeAssetStore) UploadBytes(_ context.Context, _ []byte, folder, name string) (*domain.Asset, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.uploads = append(a.uploads, name)
	return &domain.Asset{URL: "https://cdn.example/" + folder + "/" + name, PublicID: folder + "/" + name, Provider: "cloudinary"}, nil
}
