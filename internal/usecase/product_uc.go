package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

type ProductUC struct {
	Products domain.ProductRepo
	Assets   domain.AssetStore
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 24
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, errors.New("empty slug")
	}
	return uc.Products.FindBySlug(ctx, slug)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	return s
}

func (uc *ProductUC) Save(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if p.Slug == "" {
		return errors.New("product needs a name or slug")
	}
	if p.Price < 0 || p.Stock < 0 {
		return errors.New("price and stock must be non-negative")
	}
	for _, size := range p.Sizes {
		known := false
		for _, c := range domain.CanonicalSizes {
			if strings.EqualFold(strings.TrimSpace(size), c) {
				known = true
				break
			}
		}
		if !known {
			return errors.New("size " + size + " is not in the size vocabulary")
		}
	}
	return uc.Products.Save(ctx, p)
}

func (uc *ProductUC) DeleteBySlug(ctx context.Context, slug string) error {
	if slug == "" {
		return errors.New("empty slug")
	}
	return uc.Products.DeleteBySlug(ctx, slug)
}

// AttachImage uploads image bytes to durable storage and appends the
// resulting URL to the product's gallery.
func (uc *ProductUC) AttachImage(ctx context.Context, slug string, data []byte, filename string) (*domain.Product, error) {
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if uc.Assets == nil {
		return nil, errors.New("asset store not configured")
	}
	asset, err := uc.Assets.UploadBytes(ctx, data, "products", filename)
	if err != nil {
		return nil, err
	}
	p.Images = append(p.Images, asset.URL)
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
