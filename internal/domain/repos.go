package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type PromoRepo interface {
	Save(ctx context.Context, p *PromoCode) error
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	List(ctx context.Context) ([]PromoCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CheckoutRepo interface {
	Create(ctx context.Context, pc *PendingCheckout) error
	FindByID(ctx context.Context, id uuid.UUID) (*PendingCheckout, error)
	FindBySessionID(ctx context.Context, sessionID string) (*PendingCheckout, error)
	// LinkSession sets the processor session id exactly once.
	LinkSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// RecordMismatch stores a one-time audit note; later calls for the
	// same checkout are no-ops.
	RecordMismatch(ctx context.Context, id uuid.UUID, note string, at time.Time) error
}

// StockDecrement is one aggregated per-product decrement applied inside
// the finalize transaction.
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}

type OrderRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Order, error)
	List(ctx context.Context, f OrderFilter) ([]Order, int64, error)
	Save(ctx context.Context, o *Order) error
	// CreateFromCheckout runs the finalize unit of work: order + items,
	// promo redemption increment, guarded stock decrements, and the
	// pending-checkout completion stamp, all in one transaction.
	CreateFromCheckout(ctx context.Context, o *Order, promoID *uuid.UUID, decs []StockDecrement, checkoutID uuid.UUID, completedAt time.Time) error
}

type ShipmentRepo interface {
	Save(ctx context.Context, s *Shipment) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Shipment, error)
}

type CustomerRepo interface {
	Save(ctx context.Context, c *Customer) error
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}

// PaymentSession is the processor-hosted session the customer is
// redirected to.
type PaymentSession struct {
	ID  string
	URL string
}

// PaymentSessionInfo is a synchronous view of a processor session,
// used by the completion polling endpoint.
type PaymentSessionInfo struct {
	ID              string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, pc *PendingCheckout) (*PaymentSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*PaymentSessionInfo, error)
}

// LabelPurchase is the carrier's view of a purchased (or pending)
// label transaction.
type LabelPurchase struct {
	TransactionID  string
	Status         string
	RateID         string
	LabelURL       string
	TrackingNumber string
	TrackingURL    string
	Amount         string
	Currency       string
	LabelFormat    string
}

type CarrierGateway interface {
	CreateShipment(ctx context.Context, from, to ShippingAddress, parcel Parcel) (string, []Rate, error)
	PurchaseLabel(ctx context.Context, rateID, labelFormat string) (*LabelPurchase, error)
	GetTransaction(ctx context.Context, transactionID string) (*LabelPurchase, error)
}

// Asset is a durably stored copy of an uploaded file.
type Asset struct {
	URL      string
	PublicID string
	Provider string
}

type AssetStore interface {
	UploadURL(ctx context.Context, remoteURL, folder string) (*Asset, error)
	UploadBytes(ctx context.Context, data []byte, folder, name string) (*Asset, error)
}
