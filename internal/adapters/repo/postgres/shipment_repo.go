package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type ShipmentRepo struct{ db *gorm.DB }

func NewShipmentRepo(db *gorm.DB) *ShipmentRepo { return &ShipmentRepo{db: db} }

func (r *ShipmentRepo) Save(ctx context.Context, s *domain.Shipment) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *ShipmentRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := r.db.WithContext(ctx).First(&s, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
