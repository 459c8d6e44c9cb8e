package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is an item in the storefront catalog. Pricing and availability of
// a concrete purchase always go through one of its variants.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	SKU             string          `json:"sku"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	IsActive        bool            `json:"is_active"`
	Variants        []*Variant      `json:"variants,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CurrentPrice is the base price minus the discount percentage.
func (p *Product) CurrentPrice() decimal.Decimal {
	if p.DiscountPercent.IsZero() {
		return p.BasePrice
	}
	discount := p.BasePrice.Mul(p.DiscountPercent).Div(decimal.NewFromInt(100))
	return p.BasePrice.Sub(discount).Round(2)
}

// Variant is a specific size/color combination of a product with its own
// stock count and optional price override.
type Variant struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"product_id"`
	Size      string           `json:"size,omitempty"`
	Color     string           `json:"color,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"` // nil means the product's current price
	Stock     int              `json:"stock"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EffectivePrice resolves the variant's unit price against its product.
func (v *Variant) EffectivePrice(p *Product) decimal.Decimal {
	if v.Price != nil {
		return *v.Price
	}
	return p.CurrentPrice()
}

// CreateProductRequest is the payload for adding a catalog product.
type CreateProductRequest struct {
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	SKU             string          `json:"sku"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// UpdateProductRequest is the payload for editing a catalog product.
type UpdateProductRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	IsActive        bool            `json:"is_active"`
}

// AddVariantRequest is the payload for adding a product variant.
type AddVariantRequest struct {
	Size  string           `json:"size"`
	Color string           `json:"color"`
	Price *decimal.Decimal `json:"price"`
	Stock int              `json:"stock"`
}
