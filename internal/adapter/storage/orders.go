package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.OrderStorage = OrderRepository{}
var _ port.OrderTx = orderTx{}

const orderColumns = `
	id, order_number, status, subtotal, tax_amount, shipping_amount, total,
	email, user_id,
	contact_first_name, contact_last_name, contact_email, contact_phone,
	ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
	notes, created_at, updated_at`

const orderItemColumns = `
	id, order_id, product_id, product_slug, product_name,
	price, quantity, line_total`

type OrderRepository struct {
	sqldb sqldb
}

func NewOrderRepository(sqldb sqldb) OrderRepository {
	return OrderRepository{sqldb}
}

// WithinTx runs fn against a transaction-scoped view of the storage.
// The transaction commits when fn returns nil.
func (r OrderRepository) WithinTx(
	ctx context.Context, fn func(context.Context, port.OrderTx) error,
) error {
	const op = "OrderRepository.WithinTx"

	return withinTx(ctx, r.sqldb, op, func(tx *sql.Tx) error {
		return fn(ctx, orderTx{tx})
	})
}

func (r OrderRepository) OrderByID(
	ctx context.Context, id uuid.UUID,
) (domain.Order, error) {
	const op = "OrderRepository.OrderByID"

	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1;`

	o, err := loadOrder(ctx, r.sqldb, query, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (r OrderRepository) OrderByNumber(
	ctx context.Context, number string,
) (domain.Order, error) {
	const op = "OrderRepository.OrderByNumber"

	query := `SELECT` + orderColumns + ` FROM orders WHERE order_number = $1;`

	o, err := loadOrder(ctx, r.sqldb, query, number)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (r OrderRepository) ListOrders(
	ctx context.Context, f domain.OrderFilter,
) ([]domain.Order, error) {
	const op = "OrderRepository.ListOrders"

	query := `
		SELECT` + orderColumns + `
		FROM orders
		WHERE ($1::text = '' OR status = $1)
			AND ($2::uuid IS NULL OR user_id = $2)
		ORDER BY created_at DESC, id ASC
		LIMIT $3 OFFSET $4;`

	rows, err := r.sqldb.QueryContext(ctx, query,
		f.Status, f.UserID, f.Page.Limit, f.Page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	for i := range orders {
		items, err := loadItems(ctx, r.sqldb, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders[i].Items = items
	}
	return orders, nil
}

// orderTx takes row locks: products read through it and locked orders
// stay locked until the transaction ends.
type orderTx struct {
	tx *sql.Tx
}

// LockProducts locks rows in id order, the same order RestoreStock callers
// use, so transactions touching the same products cannot deadlock.
func (t orderTx) LockProducts(
	ctx context.Context, slugs []string,
) (map[string]domain.Product, error) {
	const op = "orderTx.LockProducts"

	query := `SELECT` + productColumns + `
		FROM products p WHERE p.slug = ANY($1)
		ORDER BY p.id
		FOR UPDATE;`

	rows, err := t.tx.QueryContext(ctx, query, slices.Clone(slugs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(slugs))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		products[p.Slug] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (t orderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	const op = "orderTx.InsertOrder"
	log := slog.With("op", op)

	query := `
		INSERT INTO orders (
			id, order_number, status, subtotal, tax_amount, shipping_amount,
			total, email, user_id,
			contact_first_name, contact_last_name, contact_email, contact_phone,
			ship_line1, ship_line2, ship_city, ship_state, ship_postal_code,
			ship_country, notes, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		);`

	_, err := t.tx.ExecContext(ctx, query,
		o.ID, o.Number, o.Status,
		o.Totals.Subtotal, o.Totals.Tax, o.Totals.Shipping, o.Totals.Total,
		o.Email, o.UserID,
		o.Contact.FirstName, o.Contact.LastName, o.Contact.Email, o.Contact.Phone,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.PostalCode,
		o.ShippingAddress.Country, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, domain.ErrOrderNumberTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	itemQuery := `
		INSERT INTO order_items (` + orderItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	stmt, err := t.tx.PrepareContext(ctx, itemQuery)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, it := range o.Items {
		_, err := stmt.ExecContext(ctx,
			it.ID, o.ID, it.ProductID, it.ProductSlug, it.ProductName,
			it.Price, it.Quantity, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}
	return nil
}

func (t orderTx) DecrementStock(
	ctx context.Context, productID uuid.UUID, quantity int,
) error {
	const op = "orderTx.DecrementStock"

	query := `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2;`

	res, err := t.tx.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrOutOfStock); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RestoreStock is a no-op for products deleted since the order was placed.
func (t orderTx) RestoreStock(
	ctx context.Context, productID uuid.UUID, quantity int,
) error {
	const op = "orderTx.RestoreStock"

	query := `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1;`

	if _, err := t.tx.ExecContext(ctx, query, productID, quantity); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t orderTx) LockOrder(
	ctx context.Context, id uuid.UUID,
) (domain.Order, error) {
	const op = "orderTx.LockOrder"

	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE;`

	o, err := loadOrder(ctx, t.tx, query, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (t orderTx) SetOrderStatus(
	ctx context.Context, id uuid.UUID, status domain.OrderStatus,
) error {
	const op = "orderTx.SetOrderStatus"

	query := `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1;`

	res, err := t.tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkAffected(res, domain.ErrOrderNotFound); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func loadOrder(
	ctx context.Context, q querier, query string, arg any,
) (domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		return domain.Order{}, err
	}

	o.Items, err = loadItems(ctx, q, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func loadItems(
	ctx context.Context, q querier, orderID uuid.UUID,
) ([]domain.OrderItem, error) {
	query := `SELECT` + orderItemColumns + `
		FROM order_items WHERE order_id = $1 ORDER BY product_slug ASC;`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductSlug,
			&it.ProductName, &it.Price, &it.Quantity, &it.LineTotal,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.Status,
		&o.Totals.Subtotal, &o.Totals.Tax, &o.Totals.Shipping, &o.Totals.Total,
		&o.Email, &o.UserID,
		&o.Contact.FirstName, &o.Contact.LastName, &o.Contact.Email, &o.Contact.Phone,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return o, nil
}
