package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorianoB28/luckycaps-sub000/internal/domain"
)

func productSetup() (*ProductUC, *fakeProductRepo, *fakeAssetStore) {
	products := newFakeProductRepo()
	assets := &fakeAssetStore{}
	return &ProductUC{Products: products, Assets: assets}, products, assets
}

func TestProductSaveSlugifies(t *testing.T) {
	uc, products, _ := productSetup()
	ctx := context.Background()

	p := &domain.Product{Name: "  Navy  Snapback  ", Price: 2500}
	require.NoError(t, uc.Save(ctx, p))
	assert.Equal(t, "navy-snapback", p.Slug)
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := products.FindBySlug(ctx, "navy-snapback")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestProductSaveValidation(t *testing.T) {
	uc, _, _ := productSetup()
	ctx := context.Background()

	assert.Error(t, uc.Save(ctx, &domain.Product{}))
	assert.Error(t, uc.Save(ctx, &domain.Product{Name: "cap", Price: -1}))
	assert.Error(t, uc.Save(ctx, &domain.Product{Name: "cap", Stock: -1}))
	assert.Error(t, uc.Save(ctx, &domain.Product{Name: "cap", Sizes: []string{"XXL"}}))
	assert.NoError(t, uc.Save(ctx, &domain.Product{Name: "cap", Sizes: []string{"s/m", "L/XL"}}))
}

func TestProductAttachImage(t *testing.T) {
	uc, products, assets := productSetup()
	ctx := context.Background()

	p := capProduct("navy-snapback", 2500, 5)
	require.NoError(t, products.Save(ctx, p))

	got, err := uc.AttachImage(ctx, "navy-snapback", []byte("png-bytes"), "front.png")
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "https://cdn.example/products/front.png", got.Images[0])
	assert.Equal(t, []string{"front.png"}, assets.uploads)

	stored, err := products.FindBySlug(ctx, "navy-snapback")
	require.NoError(t, err)
	assert.Len(t, stored.Images, 1)

	_, err = uc.AttachImage(ctx, "missing", nil, "x.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assets.err = assert.AnError
	_, err = uc.AttachImage(ctx, "navy-snapback", nil, "y.png")
	require.Error(t, err)
	stored, _ = products.FindBySlug(ctx, "navy-snapback")
	assert.Len(t, stored.Images, 1)
}

func TestProductListDefaultsPageSize(t *testing.T) {
	uc, products, _ := productSetup()
	ctx := context.Background()
	require.NoError(t, products.Save(ctx, capProduct("a-cap", 1000, 1)))
	require.NoError(t, products.Save(ctx, capProduct("b-cap", 1000, 1)))

	got, total, err := uc.List(ctx, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	assert.Equal(t, "a-cap", got[0].Slug)
}
