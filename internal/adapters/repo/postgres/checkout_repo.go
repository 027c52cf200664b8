package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type CheckoutRepo struct{ db *gorm.DB }

func NewCheckoutRepo(db *gorm.DB) *CheckoutRepo { return &CheckoutRepo{db: db} }

func (r *CheckoutRepo) Create(ctx context.Context, pc *domain.PendingCheckout) error {
	return r.db.WithContext(ctx).Create(pc).Error
}

func (r *CheckoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.PendingCheckout, error) {
	var pc domain.PendingCheckout
	if err := r.db.WithContext(ctx).First(&pc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &pc, nil
}

func (r *CheckoutRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.PendingCheckout, error) {
	var pc domain.PendingCheckout
	if err := r.db.WithContext(ctx).First(&pc, "stripe_session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &pc, nil
}

// LinkSession writes the processor session id onto a row that does not
// have one yet.
func (r *CheckoutRepo) LinkSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	res := r.db.WithContext(ctx).Model(&domain.PendingCheckout{}).
		Where("id = ? AND stripe_session_id IS NULL", id).
		Update("stripe_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// RecordMismatch stores the audit note once; a row that already has a
// mismatch keeps the original.
func (r *CheckoutRepo) RecordMismatch(ctx context.Context, id uuid.UUID, note string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.PendingCheckout{}).
		Where("id = ? AND mismatch_at IS NULL", id).
		Updates(map[string]any{"mismatch_note": note, "mismatch_at": at}).Error
}
