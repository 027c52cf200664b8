package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

// Named parcel templates plus the store-wide default. An explicit
// payload beats a template name, which beats the default.
var parcelTemplates = map[string]domain.Parcel{
	"cap-single": {Length: 10, Width: 8, Height: 5, DistanceUnit: "in", Weight: 0.6, MassUnit: "lb"},
	"cap-box":    {Length: 14, Width: 12, Height: 8, DistanceUnit: "in", Weight: 2.5, MassUnit: "lb"},
}

const defaultParcelTemplate = "cap-single"

type DraftShipmentRequest struct {
	Parcel   *domain.Parcel `json:"parcel,omitempty"`
	Template string         `json:"template,omitempty"`
}

// LabelResult reports a purchase outcome. ArchiveError is a soft
// failure: the label was bought but the durable copy is missing.
type LabelResult struct {
	Shipment     *domain.Shipment `json:"shipment"`
	ArchiveError string           `json:"archive_error,omitempty"`
}

type ShipmentUC struct {
	Orders    domain.OrderRepo
	Shipments domain.ShipmentRepo
	Carrier   domain.CarrierGateway
	Assets    domain.AssetStore
	Origin    domain.ShippingAddress
	Now       func() time.Time
}

func (uc *ShipmentUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func resolveParcel(req DraftShipmentRequest) (domain.Parcel, error) {
	if req.Parcel != nil {
		p := *req.Parcel
		if p.Length <= 0 || p.Width <= 0 || p.Height <= 0 || p.Weight <= 0 {
			return domain.Parcel{}, errors.New("parcel dimensions must be positive")
		}
		if p.DistanceUnit == "" {
			p.DistanceUnit = "in"
		}
		if p.MassUnit == "" {
			p.MassUnit = "lb"
		}
		return p, nil
	}
	name := strings.TrimSpace(req.Template)
	if name == "" {
		name = defaultParcelTemplate
	}
	p, ok := parcelTemplates[name]
	if !ok {
		return domain.Parcel{}, fmt.Errorf("unknown parcel template %q", name)
	}
	return p, nil
}

func destinationFor(o *domain.Order) domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:    o.Name,
		Street1: o.Address,
		City:    o.City,
		State:   o.Province,
		Zip:     o.PostalCode,
		Country: o.Country,
		Phone:   o.Phone,
		Email:   o.Email,
	}
}

// CreateDraft normalizes addresses, resolves the parcel and fetches
// rate quotes from the carrier. The quoted rates are persisted as an
// ephemeral snapshot on the shipment row.
func (uc *ShipmentUC) CreateDraft(ctx context.Context, orderID uuid.UUID, req DraftShipmentRequest) (*domain.Shipment, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case domain.OrderStatusPaid, domain.OrderStatusShipped, domain.OrderStatusDelivered:
	default:
		return nil, fmt.Errorf("order status %q does not allow shipment creation", o.Status)
	}

	parcel, err := resolveParcel(req)
	if err != nil {
		return nil, err
	}

	s, err := uc.Shipments.FindByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		s = &domain.Shipment{
			ID:        uuid.New(),
			OrderID:   orderID,
			Provider:  "shippo",
			Status:    domain.ShipmentStatusDraft,
			CreatedAt: uc.now(),
		}
	} else if err != nil {
		return nil, err
	}

	shipmentID, rates, err := uc.Carrier.CreateShipment(ctx, uc.Origin, destinationFor(o), parcel)
	if err != nil {
		// Retryable: the shipment row keeps its previous state.
		return nil, fmt.Errorf("carrier rate quote: %w", err)
	}

	s.Parcel = &parcel
	s.ProviderShipmentID = shipmentID
	s.Rates = rates
	s.Status = domain.ShipmentStatusRated
	s.UpdatedAt = uc.now()
	if err := uc.Shipments.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// PurchaseLabel buys a label for a rate that must come from the stored
// snapshot, then archives the label to durable storage. Purchase and
// archive succeed or fail independently.
func (uc *ShipmentUC) PurchaseLabel(ctx context.Context, orderID uuid.UUID, rateID string) (*LabelResult, error) {
	s, err := uc.Shipments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rate, ok := s.HasRate(strings.TrimSpace(rateID))
	if !ok {
		return nil, errors.New("rate id is not part of the quoted rates")
	}

	purchase, err := uc.Carrier.PurchaseLabel(ctx, rate.ObjectID, "PDF")
	if err != nil {
		return nil, fmt.Errorf("carrier label purchase: %w", err)
	}

	now := uc.now()
	s.Status = domain.ShipmentStatusPurchased
	s.ProviderRateID = rate.ObjectID
	s.ProviderTransactionID = purchase.TransactionID
	s.ChosenRate = &rate
	s.LabelURL = purchase.LabelURL
	s.TrackingNumber = purchase.TrackingNumber
	s.TrackingURL = purchase.TrackingURL
	s.PostageAmount = purchase.Amount
	s.PostageCurrency = purchase.Currency
	s.LabelFormat = purchase.LabelFormat
	s.PurchasedAt = &now
	s.UpdatedAt = now

	archiveErr := uc.archiveLabel(ctx, s, purchase)

	if err := uc.Shipments.Save(ctx, s); err != nil {
		return nil, err
	}

	res := &LabelResult{Shipment: s}
	if archiveErr != nil {
		log.Error().Err(archiveErr).Str("order_id", orderID.String()).Msg("label archive")
		res.ArchiveError = archiveErr.Error()
	}
	return res, nil
}

// archiveLabel uploads the carrier label to durable storage. When the
// initial URL is unusable it re-fetches the transaction for a fresh
// one before giving up.
func (uc *ShipmentUC) archiveLabel(ctx context.Context, s *domain.Shipment, purchase *domain.LabelPurchase) error {
	if uc.Assets == nil {
		return errors.New("asset store not configured")
	}

	labelURL := purchase.LabelURL
	if labelURL != "" {
		if asset, err := uc.Assets.UploadURL(ctx, labelURL, "labels"); err == nil {
			uc.applyArchive(s, asset)
			return nil
		}
	}

	fresh, err := uc.Carrier.GetTransaction(ctx, purchase.TransactionID)
	if err != nil {
		return fmt.Errorf("label re-fetch: %w", err)
	}
	if fresh.LabelURL == "" {
		return errors.New("carrier returned no label url")
	}
	if fresh.LabelURL != s.LabelURL {
		s.LabelURL = fresh.LabelURL
	}
	asset, err := uc.Assets.UploadURL(ctx, fresh.LabelURL, "labels")
	if err != nil {
		return fmt.Errorf("label upload: %w", err)
	}
	uc.applyArchive(s, asset)
	return nil
}

func (uc *ShipmentUC) applyArchive(s *domain.Shipment, asset *domain.Asset) {
	s.ArchivedLabelURL = asset.URL
	s.ArchiveProvider = asset.Provider
	s.ArchivePublicID = asset.PublicID
}

// Get returns the shipment for an order.
func (uc *ShipmentUC) Get(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	return uc.Shipments.FindByOrderID(ctx, orderID)
}

// LabelURLFor prefers the archived durable copy, falling back to the
// carrier URL and finally a live transaction lookup.
func (uc *ShipmentUC) LabelURLFor(ctx context.Context, orderID uuid.UUID) (string, error) {
	s, err := uc.Shipments.FindByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if s.Status != domain.ShipmentStatusPurchased {
		return "", errors.New("label has not been purchased")
	}
	if s.ArchivedLabelURL != "" {
		return s.ArchivedLabelURL, nil
	}
	if s.LabelURL != "" {
		return s.LabelURL, nil
	}
	if s.ProviderTransactionID == "" {
		return "", errors.New("label url unavailable")
	}
	fresh, err := uc.Carrier.GetTransaction(ctx, s.ProviderTransactionID)
	if err != nil || fresh.LabelURL == "" {
		return "", errors.New("label url unavailable")
	}
	return fresh.LabelURL, nil
}
