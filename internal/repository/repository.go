package repository

import (
	"context"
	"strings"

	"shopbot/internal/domain"
)

// ErrNotFound is returned when an entity does not exist
var ErrNotFound = domain.ErrNotFound

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID    int64
	ActiveOnly    bool
	NameSubstring string
}

// OrderFilter narrows order listings; zero values match everything
type OrderFilter struct {
	BuyerID  int64
	Statuses []domain.OrderStatus
	Limit    int
}

// CatalogRepository categories, products and variants
type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error)

	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product) error
	ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	AttachProduct(ctx context.Context, productID, categoryID int64) error

	// UpsertVariant validates bounds and overwrites any variant with the
	// same (product, unit).
	UpsertVariant(ctx context.Context, v *domain.Variant) error
	GetVariant(ctx context.Context, productID int64, unit domain.Unit) (*domain.Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error)
}

// CartRepository per-buyer cart lines
type CartRepository interface {
	GetCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) (*domain.CartLine, error)
	UpsertCartLine(ctx context.Context, l domain.CartLine) error
	DeleteCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) error
	ListCartLines(ctx context.Context, buyerID int64) ([]domain.CartLine, error)
	ClearCart(ctx context.Context, buyerID int64) error
}

// OrderRepository orders with their line snapshots
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
	ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// TxManager runs fn atomically; repositories called with the ctx passed to fn
// join the transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository backed by the same storage.
type Store interface {
	CatalogRepository
	CartRepository
	OrderRepository
	TxManager
	Close() error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func statusIn(s domain.OrderStatus, set []domain.OrderStatus) bool {
	if len(set) == 0 {
		return true
	}
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}
