package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/versostore/verso-backend/internal/modules/account"
)

// Service defines catalog business logic. Reads are public; every mutating
// operation is authorized through the role authority before it touches the
// repository.
type Service interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, category string) ([]*Product, error)

	CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, actorID, id string, req UpdateProductRequest) (*Product, error)
	DeleteProduct(ctx context.Context, actorID, id string) error

	AddVariant(ctx context.Context, actorID, productID string, req AddVariantRequest) (*Variant, error)
	SetVariantStock(ctx context.Context, actorID, variantID string, stock int) error
}

type service struct {
	repo      Repository
	accounts  account.Repository
	authority *account.Authority
}

// NewService creates a new catalog service.
func NewService(repo Repository, accounts account.Repository, authority *account.Authority) Service {
	return &service{repo: repo, accounts: accounts, authority: authority}
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

func (s *service) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	return s.repo.ListProducts(ctx, category)
}

func (s *service) CreateProduct(ctx context.Context, actorID string, req CreateProductRequest) (*Product, error) {
	if err := s.authorize(ctx, actorID, account.ActionCreateProduct); err != nil {
		return nil, err
	}
	if req.Name == "" || req.SKU == "" {
		return nil, fmt.Errorf("name and sku are required")
	}

	slug := req.Slug
	if slug == "" {
		slug = slugify(req.Name)
	}
	p := &Product{
		ID:              uuid.New(),
		Name:            req.Name,
		Slug:            slug,
		SKU:             req.SKU,
		Description:     req.Description,
		Category:        req.Category,
		BasePrice:       req.BasePrice,
		DiscountPercent: req.DiscountPercent,
		IsActive:        true,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, actorID, id string, req UpdateProductRequest) (*Product, error) {
	if err := s.authorize(ctx, actorID, account.ActionEditProduct); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product not found: %w", err)
	}

	p.Name = req.Name
	p.Description = req.Description
	p.Category = req.Category
	p.BasePrice = req.BasePrice
	p.DiscountPercent = req.DiscountPercent
	p.IsActive = req.IsActive

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeleteProduct(ctx context.Context, actorID, id string) error {
	if err := s.authorize(ctx, actorID, account.ActionDeleteProduct); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *service) AddVariant(ctx context.Context, actorID, productID string, req AddVariantRequest) (*Variant, error) {
	if err := s.authorize(ctx, actorID, account.ActionEditProduct); err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id: %w", err)
	}
	if req.Stock < 0 {
		return nil, fmt.Errorf("stock must not be negative")
	}

	v := &Variant{
		ID:        uuid.New(),
		ProductID: pid,
		Size:      req.Size,
		Color:     req.Color,
		Price:     req.Price,
		Stock:     req.Stock,
	}
	if err := s.repo.AddVariant(ctx, v); err != nil {
		return nil, fmt.Errorf("add variant: %w", err)
	}
	return v, nil
}

func (s *service) SetVariantStock(ctx context.Context, actorID, variantID string, stock int) error {
	if err := s.authorize(ctx, actorID, account.ActionEditProduct); err != nil {
		return err
	}
	if stock < 0 {
		return fmt.Errorf("stock must not be negative")
	}
	return s.repo.SetVariantStock(ctx, variantID, stock)
}

func (s *service) authorize(ctx context.Context, actorID string, action account.Action) error {
	actor, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("actor not found: %w", err)
	}
	return s.authority.Check(ctx, actor, action, nil)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	return strings.Trim(slug, "-")
}
