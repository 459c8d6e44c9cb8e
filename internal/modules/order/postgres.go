package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL order repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, order_number, identity_id, customer_name, customer_email, customer_phone,
	shipping_address, shipping_city, shipping_state, shipping_country, shipping_postal_code,
	latitude, longitude, status, payment_method, subtotal, tax, shipping, total,
	created_at, updated_at`

// CreateOrder inserts the order and its items and decrements variant stock
// inside a single transaction. The conditional UPDATE serializes concurrent
// checkouts on the variant row: whichever transaction commits first wins the
// remaining stock, the loser sees zero rows affected and rolls back.
func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range o.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_variants SET stock = stock - $2, updated_at = $3
			WHERE id = $1 AND stock >= $2`,
			item.VariantID, item.Quantity, time.Now())
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return &InsufficientStockError{VariantID: item.VariantID, Requested: item.Quantity}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, order_number, identity_id, customer_name, customer_email, customer_phone,
		   shipping_address, shipping_city, shipping_state, shipping_country, shipping_postal_code,
		   latitude, longitude, status, payment_method, subtotal, tax, shipping, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		o.ID, o.OrderNumber, o.IdentityID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.ShippingCity, o.ShippingState, o.ShippingCountry, o.ShippingPostalCode,
		o.Latitude, o.Longitude, o.Status, o.PaymentMethod, o.Subtotal, o.Tax, o.Shipping, o.Total)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, variant_id, product_name, product_sku, size, color,
			   unit_price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			item.ID, o.ID, item.VariantID, item.ProductName, item.ProductSKU,
			item.Size, item.Color, item.UnitPrice, item.Quantity, item.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	o, err := r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, uid))
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.listItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.History, err = r.listHistory(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByIdentity(ctx context.Context, identityID string) ([]*Order, error) {
	uid, err := uuid.Parse(identityID)
	if err != nil {
		return nil, err
	}
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE identity_id=$1 ORDER BY created_at DESC`, uid)
}

func (r *postgresRepo) List(ctx context.Context, status string) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	return r.queryOrders(ctx, query, args...)
}

// UpdateStatus commits the status change and its history record together.
func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status Status, change *StatusChange) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), uid); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, actor_id, note, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		change.ID, change.OrderID, change.FromStatus, change.ToStatus,
		change.ActorID, change.Note, change.At); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return tx.Commit()
}

func (r *postgresRepo) RestoreStock(ctx context.Context, variantID uuid.UUID, qty int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE product_variants SET stock = stock + $2, updated_at = $3
		WHERE id = $1`,
		variantID, qty, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("variant %s no longer exists", variantID)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepo) scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var identityID sql.NullString
	err := row.Scan(
		&o.ID, &o.OrderNumber, &identityID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.ShippingCity, &o.ShippingState, &o.ShippingCountry, &o.ShippingPostalCode,
		&o.Latitude, &o.Longitude, &o.Status, &o.PaymentMethod,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Total,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if identityID.Valid {
		uid, err := uuid.Parse(identityID.String)
		if err == nil {
			o.IdentityID = &uid
		}
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, variant_id, product_name, product_sku, size, color,
		       unit_price, quantity, line_total
		FROM order_items WHERE order_id=$1 ORDER BY product_name ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID,
			&item.ProductName, &item.ProductSKU, &item.Size, &item.Color,
			&item.UnitPrice, &item.Quantity, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) listHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, from_status, to_status, actor_id, note, at
		FROM order_status_history WHERE order_id=$1 ORDER BY at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*StatusChange
	for rows.Next() {
		change := &StatusChange{}
		var actorID sql.NullString
		if err := rows.Scan(&change.ID, &change.OrderID, &change.FromStatus,
			&change.ToStatus, &actorID, &change.Note, &change.At); err != nil {
			return nil, err
		}
		if actorID.Valid {
			uid, err := uuid.Parse(actorID.String)
			if err == nil {
				change.ActorID = &uid
			}
		}
		history = append(history, change)
	}
	return history, rows.Err()
}
