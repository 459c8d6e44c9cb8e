package catalog

import "context"

// Repository defines catalog data storage.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id string) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, category string) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error

	AddVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, id string) (*Variant, error)
	SetVariantStock(ctx context.Context, id string, stock int) error
}
