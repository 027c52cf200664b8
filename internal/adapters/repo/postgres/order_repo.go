package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, "stripe_session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	var list []domain.Order
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", f.Email)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "oldest":
		q = q.Order("created_at asc")
	default:
		q = q.Order("created_at desc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	offset := (f.Page - 1) * f.PageSize
	if err := q.Offset(offset).Limit(f.PageSize).Preload("Items").Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Save(o).Error
}

// CreateFromCheckout executes the finalize unit of work in a single
// transaction: order + items insert, promo redemption increment,
// guarded per-product stock decrements, and the pending-checkout
// completion stamp. A reader never sees an order without its items.
func (r *OrderRepo) CreateFromCheckout(ctx context.Context, o *domain.Order, promoID *uuid.UUID, decs []domain.StockDecrement, checkoutID uuid.UUID, completedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(o).Error; err != nil {
			return err
		}
		if len(o.Items) > 0 {
			if err := tx.Create(&o.Items).Error; err != nil {
				return err
			}
		}
		if promoID != nil {
			if err := tx.Model(&domain.PromoCode{}).
				Where("id = ?", *promoID).
				UpdateColumn("redemptions", gorm.Expr("redemptions + 1")).Error; err != nil {
				return err
			}
		}
		for _, d := range decs {
			res := tx.Model(&domain.Product{}).
				Where("id = ? AND stock >= ?", d.ProductID, d.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", d.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("product %s: %w", d.ProductID, domain.ErrInsufficientStock)
			}
		}
		return tx.Model(&domain.PendingCheckout{}).
			Where("id = ?", checkoutID).
			Updates(map[string]any{"order_id": o.ID, "completed_at": completedAt}).Error
	})
}
