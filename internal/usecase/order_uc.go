package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type OrderUC struct {
	Orders    domain.OrderRepo
	Shipments domain.ShipmentRepo
	Now       func() time.Time
}

func (uc *OrderUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc *OrderUC) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return uc.Orders.FindByID(ctx, id)
}

func (uc *OrderUC) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 50
	}
	return uc.Orders.List(ctx, f)
}

// UpdateStatus sets any allowed status directly; transitions are
// operator-driven and not validated against a predecessor set. The
// per-status timestamp is set at most once, first write wins. Marking
// an order paid auto-creates a draft shipment if none exists.
func (uc *OrderUC) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, errors.New("unknown order status")
	}
	o, err := uc.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	o.Status = status
	if ts := o.StatusTimestamp(status); ts != nil && *ts == nil {
		now := uc.now()
		*ts = &now
	}
	if err := uc.Orders.Save(ctx, o); err != nil {
		return nil, err
	}

	if status == domain.OrderStatusPaid {
		uc.ensureDraftShipment(ctx, o)
	}
	return o, nil
}

func (uc *OrderUC) ensureDraftShipment(ctx context.Context, o *domain.Order) {
	if uc.Shipments == nil {
		return
	}
	if _, err := uc.Shipments.FindByOrderID(ctx, o.ID); err == nil {
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Error().Err(err).Str("order_id", o.ID.String()).Msg("shipment lookup")
		return
	}
	s := &domain.Shipment{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Provider:  "shippo",
		Status:    domain.ShipmentStatusDraft,
		CreatedAt: uc.now(),
		UpdatedAt: uc.now(),
	}
	if err := uc.Shipments.Save(ctx, s); err != nil {
		log.Error().Err(err).Str("order_id", o.ID.String()).Msg("create draft shipment")
	}
}

// UpdateTracking sets tracking number and/or admin notes. Empty values
// leave the stored field untouched.
func (uc *OrderUC) UpdateTracking(ctx context.Context, id uuid.UUID, tracking, notes string) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t := strings.TrimSpace(tracking); t != "" {
		o.TrackingNumber = t
	}
	if n := strings.TrimSpace(notes); n != "" {
		o.AdminNotes = n
	}
	return o, uc.Orders.Save(ctx, o)
}
