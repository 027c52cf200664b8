package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CanonicalSizes is the fixed size vocabulary for sized products.
// Requested sizes must normalize into this set.
var CanonicalSizes = []string{"S/M", "M/L", "L/XL"}

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug          string    `gorm:"uniqueIndex;size:140" json:"slug"`
	Name          string    `gorm:"size:180" json:"name"`
	Category      string    `gorm:"size:100;index" json:"category"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         int64     `gorm:"not null" json:"price"`
	SalePrice     *int64    `json:"sale_price,omitempty"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	OnSale        bool      `gorm:"default:false" json:"on_sale"`
	NewDrop       bool      `gorm:"default:false" json:"new_drop"`
	Stock         int       `gorm:"not null;default:0" json:"stock"`
	Active        bool      `gorm:"default:true;index" json:"active"`
	Sizes         []string  `gorm:"type:jsonb;serializer:json" json:"sizes"`
	Images        []string  `gorm:"type:jsonb;serializer:json" json:"images"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EffectivePrice is the sale price when the product is flagged on sale
// and a sale price is present, the base price otherwise.
func (p *Product) EffectivePrice() int64 {
	if p.OnSale && p.SalePrice != nil && *p.SalePrice > 0 {
		return *p.SalePrice
	}
	return p.Price
}

// NormalizeSize maps a requested size onto the product's size
// vocabulary. Returns false when the size does not resolve.
func (p *Product) NormalizeSize(size string) (string, bool) {
	want := strings.ToUpper(strings.TrimSpace(size))
	if want == "" {
		return "", false
	}
	for _, s := range p.Sizes {
		if strings.ToUpper(strings.TrimSpace(s)) == want {
			return s, true
		}
	}
	return "", false
}

type ProductFilter struct {
	Category string
	Query    string
	OnSale   *bool
	NewDrop  *bool
	Active   *bool
	Sort     string
	Page     int
	PageSize int
}
