package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopbot/internal/domain"
)

// SQLiteStore relational storage; every method joins the transaction carried
// by ctx, if any.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// querier is implemented by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlTxKey struct{}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// single writer; also keeps a ":memory:" database alive on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *SQLiteStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageErr("begin tx", err)
	}

	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageErr("commit", err)
	}
	return nil
}

// fixed width so that ORDER BY on the text column is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Categories

func (s *SQLiteStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO categories (name, active) VALUES (?, ?)`, c.Name, c.Active)
	if err != nil {
		return domain.StorageErr("create category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.StorageErr("create category", err)
	}
	c.ID = id
	return nil
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, active FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("category %d", id)
	}
	if err != nil {
		return nil, domain.StorageErr("get category", err)
	}
	return &c, nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c *domain.Category) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE categories SET name = ?, active = ? WHERE id = ?`, c.Name, c.Active, c.ID)
	if err != nil {
		return domain.StorageErr("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("category %d", c.ID)
	}
	return nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	query := `SELECT id, name, active FROM categories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := s.q(ctx).QueryContext(ctx, query+` ORDER BY id`)
	if err != nil {
		return nil, domain.StorageErr("list categories", err)
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, domain.StorageErr("scan category", err)
		}
		out = append(out, c)
	}
	return out, domain.StorageErr("list categories", rows.Err())
}

// Products

func (s *SQLiteStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO products (name, description, photo_ref, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.PhotoRef, p.Active, formatTime(p.CreatedAt))
	if err != nil {
		return domain.StorageErr("create product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.StorageErr("create product", err)
	}
	p.ID = id
	return nil
}

const productColumns = `p.id, p.name, p.description, p.photo_ref, p.active, p.created_at`

func scanProduct(sc interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var created string
	if err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.PhotoRef, &p.Active, &created); err != nil {
		return p, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("product %d", id)
	}
	if err != nil {
		return nil, domain.StorageErr("get product", err)
	}
	return &p, nil
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, photo_ref = ?, active = ? WHERE id = ?`,
		p.Name, p.Description, p.PhotoRef, p.Active, p.ID)
	if err != nil {
		return domain.StorageErr("update product", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("product %d", p.ID)
	}
	return nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
		query = `SELECT ` + productColumns + ` FROM products p`
	)
	if f.CategoryID != 0 {
		query += ` JOIN product_categories pc ON pc.product_id = p.id`
		where = append(where, `pc.category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.ActiveOnly {
		where = append(where, `p.active = 1`)
	}
	if f.NameSubstring != "" {
		where = append(where, `lower(p.name) LIKE ?`)
		args = append(args, "%"+strings.ToLower(f.NameSubstring)+"%")
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	rows, err := s.q(ctx).QueryContext(ctx, query+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, domain.StorageErr("list products", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, domain.StorageErr("scan product", err)
		}
		out = append(out, p)
	}
	return out, domain.StorageErr("list products", rows.Err())
}

func (s *SQLiteStore) AttachProduct(ctx context.Context, productID, categoryID int64) error {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return err
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO product_categories (product_id, category_id) VALUES (?, ?)`,
		productID, categoryID)
	return domain.StorageErr("attach product", err)
}

// Variants

func (s *SQLiteStore) UpsertVariant(ctx context.Context, v *domain.Variant) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, err := s.GetProduct(ctx, v.ProductID); err != nil {
		return err
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO variants (product_id, unit, price, step, min_qty, max_qty)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (product_id, unit) DO UPDATE SET
			price = excluded.price,
			step = excluded.step,
			min_qty = excluded.min_qty,
			max_qty = excluded.max_qty`,
		v.ProductID, string(v.Unit), v.Price.String(), v.Step.String(), v.Min.String(), v.Max.String())
	return domain.StorageErr("upsert variant", err)
}

const variantColumns = `product_id, unit, price, step, min_qty, max_qty`

func scanVariant(sc interface{ Scan(...any) error }) (domain.Variant, error) {
	var v domain.Variant
	var unit string
	if err := sc.Scan(&v.ProductID, &unit, &v.Price, &v.Step, &v.Min, &v.Max); err != nil {
		return v, err
	}
	v.Unit = domain.Unit(unit)
	return v, nil
}

func (s *SQLiteStore) GetVariant(ctx context.Context, productID int64, unit domain.Unit) (*domain.Variant, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE product_id = ? AND unit = ?`, productID, string(unit))
	v, err := scanVariant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("variant %d/%s", productID, unit)
	}
	if err != nil {
		return nil, domain.StorageErr("get variant", err)
	}
	return &v, nil
}

func (s *SQLiteStore) ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE product_id = ? ORDER BY unit`, productID)
	if err != nil {
		return nil, domain.StorageErr("list variants", err)
	}
	defer rows.Close()

	out := make([]domain.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, domain.StorageErr("scan variant", err)
		}
		out = append(out, v)
	}
	return out, domain.StorageErr("list variants", rows.Err())
}

// Cart

func (s *SQLiteStore) GetCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) (*domain.CartLine, error) {
	l := domain.CartLine{BuyerID: buyerID, ProductID: productID, Unit: unit}
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT quantity FROM cart_lines WHERE buyer_id = ? AND product_id = ? AND unit = ?`,
		buyerID, productID, string(unit)).Scan(&l.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("cart line %d/%s", productID, unit)
	}
	if err != nil {
		return nil, domain.StorageErr("get cart line", err)
	}
	return &l, nil
}

func (s *SQLiteStore) UpsertCartLine(ctx context.Context, l domain.CartLine) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO cart_lines (buyer_id, product_id, unit, quantity) VALUES (?, ?, ?, ?)
		ON CONFLICT (buyer_id, product_id, unit) DO UPDATE SET quantity = excluded.quantity`,
		l.BuyerID, l.ProductID, string(l.Unit), l.Quantity.String())
	return domain.StorageErr("upsert cart line", err)
}

func (s *SQLiteStore) DeleteCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM cart_lines WHERE buyer_id = ? AND product_id = ? AND unit = ?`,
		buyerID, productID, string(unit))
	return domain.StorageErr("delete cart line", err)
}

func (s *SQLiteStore) ListCartLines(ctx context.Context, buyerID int64) ([]domain.CartLine, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT product_id, unit, quantity FROM cart_lines WHERE buyer_id = ? ORDER BY product_id, unit`, buyerID)
	if err != nil {
		return nil, domain.StorageErr("list cart", err)
	}
	defer rows.Close()

	out := make([]domain.CartLine, 0)
	for rows.Next() {
		l := domain.CartLine{BuyerID: buyerID}
		var unit string
		if err := rows.Scan(&l.ProductID, &unit, &l.Quantity); err != nil {
			return nil, domain.StorageErr("scan cart line", err)
		}
		l.Unit = domain.Unit(unit)
		out = append(out, l)
	}
	return out, domain.StorageErr("list cart", rows.Err())
}

func (s *SQLiteStore) ClearCart(ctx context.Context, buyerID int64) error {
	_, err := s.q(ctx).ExecContext(ctx, `DELETE FROM cart_lines WHERE buyer_id = ?`, buyerID)
	return domain.StorageErr("clear cart", err)
}

// Orders

func (s *SQLiteStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	// the header and its lines must land together
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now().UTC()
		}
		o.UpdatedAt = o.CreatedAt

		var lat, lon sql.NullFloat64
		if o.Location != nil {
			lat = sql.NullFloat64{Float64: o.Location.Lat, Valid: true}
			lon = sql.NullFloat64{Float64: o.Location.Lon, Valid: true}
		}
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO orders (id, buyer_id, phone, address, lat, lon, note, total, delivery_fee, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.BuyerID, o.Phone, o.Address, lat, lon, o.Note,
			o.Total.String(), o.DeliveryFee.String(), string(o.Status),
			formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
		if err != nil {
			return domain.StorageErr("insert order", err)
		}

		for i, l := range o.Lines {
			_, err := s.q(ctx).ExecContext(ctx, `
				INSERT INTO order_lines (order_id, product_id, product_name, unit, unit_price, quantity, line_total)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				o.ID, l.ProductID, l.ProductName, string(l.Unit),
				l.UnitPrice.String(), l.Quantity.String(), l.LineTotal.String())
			if err != nil {
				return domain.StorageErr(fmt.Sprintf("insert order line %d", i), err)
			}
		}
		return nil
	})
}

const orderColumns = `id, buyer_id, phone, address, lat, lon, note, total, delivery_fee, status, created_at, updated_at`

func scanOrder(sc interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		o                domain.Order
		lat, lon         sql.NullFloat64
		status           string
		created, updated string
	)
	err := sc.Scan(&o.ID, &o.BuyerID, &o.Phone, &o.Address, &lat, &lon, &o.Note,
		&o.Total, &o.DeliveryFee, &status, &created, &updated)
	if err != nil {
		return o, err
	}
	if lat.Valid && lon.Valid {
		o.Location = &domain.GeoPoint{Lat: lat.Float64, Lon: lon.Float64}
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)
	return o, nil
}

func (s *SQLiteStore) loadLines(ctx context.Context, o *domain.Order) error {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT product_id, product_name, unit, unit_price, quantity, line_total
		FROM order_lines WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return domain.StorageErr("list order lines", err)
	}
	defer rows.Close()

	o.Lines = make([]domain.OrderLine, 0)
	for rows.Next() {
		var l domain.OrderLine
		var unit string
		if err := rows.Scan(&l.ProductID, &l.ProductName, &unit, &l.UnitPrice, &l.Quantity, &l.LineTotal); err != nil {
			return domain.StorageErr("scan order line", err)
		}
		l.Unit = domain.Unit(unit)
		o.Lines = append(o.Lines, l)
	}
	return domain.StorageErr("list order lines", rows.Err())
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("order %s", id)
	}
	if err != nil {
		return nil, domain.StorageErr("get order", err)
	}
	if err := s.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return domain.StorageErr("update order status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("order %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.BuyerID != 0 {
		where = append(where, `buyer_id = ?`)
		args = append(args, f.BuyerID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, `status IN (`+strings.Join(marks, ", ")+`)`)
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageErr("list orders", err)
	}
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, domain.StorageErr("scan order", err)
		}
		out = append(out, o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, domain.StorageErr("list orders", err)
	}

	// lines are loaded after the cursor is closed: the pool has one connection
	for i := range out {
		if err := s.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
