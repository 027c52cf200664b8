package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type PromoRepo struct{ db *gorm.DB }

func NewPromoRepo(db *gorm.DB) *PromoRepo { return &PromoRepo{db: db} }

func (r *PromoRepo) Save(ctx context.Context, p *domain.PromoCode) error {
	p.Code = domain.NormalizeCode(p.Code)
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PromoRepo) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	if err := r.db.WithContext(ctx).First(&p, "UPPER(code) = ?", domain.NormalizeCode(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PromoRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.PromoCode, error) {
	var p domain.PromoCode
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PromoRepo) List(ctx context.Context) ([]domain.PromoCode, error) {
	var list []domain.PromoCode
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PromoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.PromoCode{}, "id = ?", id).Error
}
