package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

// PromoAdminUC owns promo-code CRUD. The redemption counter is never
// writable through here; only the finalizer increments it.
type PromoAdminUC struct {
	Promos domain.PromoRepo
}

func (uc *PromoAdminUC) Save(ctx context.Context, p *domain.PromoCode) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Code = domain.NormalizeCode(p.Code)
	if p.Code == "" {
		return errors.New("code is required")
	}
	if err := p.ValidateConfig(); err != nil {
		return err
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.StartsAt.Before(*p.EndsAt) {
		return errors.New("starts_at must be before ends_at")
	}
	return uc.Promos.Save(ctx, p)
}

func (uc *PromoAdminUC) List(ctx context.Context) ([]domain.PromoCode, error) {
	return uc.Promos.List(ctx)
}

func (uc *PromoAdminUC) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("promo id is required")
	}
	return uc.Promos.Delete(ctx, id)
}
