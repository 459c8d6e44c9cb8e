package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL catalog repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productColumns = `id, name, slug, sku, description, category,
	base_price, discount_percent, is_active, created_at, updated_at`

func (r *postgresRepo) CreateProduct(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, name, slug, sku, description, category, base_price, discount_percent, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Slug, p.SKU, p.Description, p.Category,
		p.BasePrice, p.DiscountPercent, p.IsActive)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetProductByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	p, err := r.scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, uid))
	if err != nil {
		return nil, err
	}
	p.Variants, err = r.listVariants(ctx, p.ID)
	return p, err
}

func (r *postgresRepo) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	p, err := r.scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug=$1`, slug))
	if err != nil {
		return nil, err
	}
	p.Variants, err = r.listVariants(ctx, p.ID)
	return p, err
}

func (r *postgresRepo) ListProducts(ctx context.Context, category string) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active=true`
	args := []interface{}{}
	if category != "" {
		query += ` AND category=$1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresRepo) UpdateProduct(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products SET
		  name=$1, description=$2, category=$3, base_price=$4,
		  discount_percent=$5, is_active=$6, updated_at=$7
		WHERE id=$8`,
		p.Name, p.Description, p.Category, p.BasePrice,
		p.DiscountPercent, p.IsActive, time.Now(), p.ID)
	return err
}

func (r *postgresRepo) DeleteProduct(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, uid)
	return err
}

func (r *postgresRepo) AddVariant(ctx context.Context, v *Variant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_variants (id, product_id, size, color, price, stock)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		v.ID, v.ProductID, v.Size, v.Color, v.Price, v.Stock)
	if err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, id string) (*Variant, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	v := &Variant{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, product_id, size, color, price, stock, created_at, updated_at
		FROM product_variants WHERE id=$1`, uid).Scan(
		&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Price, &v.Stock,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *postgresRepo) SetVariantStock(ctx context.Context, id string, stock int) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE product_variants SET stock=$1, updated_at=$2 WHERE id=$3`,
		stock, time.Now(), uid)
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepo) scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Category,
		&p.BasePrice, &p.DiscountPercent, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) listVariants(ctx context.Context, productID uuid.UUID) ([]*Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, size, color, price, stock, created_at, updated_at
		FROM product_variants WHERE product_id=$1 ORDER BY created_at ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v := &Variant{}
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Price,
			&v.Stock, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}
