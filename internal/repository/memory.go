package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopbot/internal/domain"
)

type variantKey struct {
	productID int64
	unit      domain.Unit
}

type cartKey struct {
	buyerID   int64
	productID int64
	unit      domain.Unit
}

type linkKey struct {
	productID  int64
	categoryID int64
}

type memoryData struct {
	nextCategoryID int64
	nextProductID  int64
	categories     map[int64]domain.Category
	products       map[int64]domain.Product
	variants       map[variantKey]domain.Variant
	links          map[linkKey]struct{}
	cart           map[cartKey]domain.CartLine
	orders         map[string]domain.Order
}

func (d *memoryData) clone() memoryData {
	cp := memoryData{
		nextCategoryID: d.nextCategoryID,
		nextProductID:  d.nextProductID,
		categories:     make(map[int64]domain.Category, len(d.categories)),
		products:       make(map[int64]domain.Product, len(d.products)),
		variants:       make(map[variantKey]domain.Variant, len(d.variants)),
		links:          make(map[linkKey]struct{}, len(d.links)),
		cart:           make(map[cartKey]domain.CartLine, len(d.cart)),
		orders:         make(map[string]domain.Order, len(d.orders)),
	}
	for k, v := range d.categories {
		cp.categories[k] = v
	}
	for k, v := range d.products {
		cp.products[k] = v
	}
	for k, v := range d.variants {
		cp.variants[k] = v
	}
	for k := range d.links {
		cp.links[k] = struct{}{}
	}
	for k, v := range d.cart {
		cp.cart[k] = v
	}
	for k, v := range d.orders {
		cp.orders[k] = v
	}
	return cp
}

// MemoryStore in-memory storage for tests and the STORE=memory mode
type MemoryStore struct {
	mu   sync.RWMutex
	data memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: memoryData{
		nextCategoryID: 1,
		nextProductID:  1,
		categories:     make(map[int64]domain.Category),
		products:       make(map[int64]domain.Product),
		variants:       make(map[variantKey]domain.Variant),
		links:          make(map[linkKey]struct{}),
		cart:           make(map[cartKey]domain.CartLine),
		orders:         make(map[string]domain.Order),
	}}
}

var _ Store = (*MemoryStore)(nil)

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// WithTransaction holds the write lock for the whole of fn and restores the
// previous state if fn fails.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Categories

func (m *MemoryStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	c.ID = m.data.nextCategoryID
	m.data.nextCategoryID++
	m.data.categories[c.ID] = *c
	return nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	c, ok := m.data.categories[id]
	if !ok {
		return nil, domain.NotFoundf("category %d", id)
	}
	return &c, nil
}

func (m *MemoryStore) UpdateCategory(ctx context.Context, c *domain.Category) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.data.categories[c.ID]; !ok {
		return domain.NotFoundf("category %d", c.ID)
	}
	m.data.categories[c.ID] = *c
	return nil
}

func (m *MemoryStore) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Category, 0, len(m.data.categories))
	for _, c := range m.data.categories {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Products

func (m *MemoryStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.data.nextProductID
	m.data.nextProductID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.data.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.data.products[id]
	if !ok {
		return nil, domain.NotFoundf("product %d", id)
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.data.products[p.ID]; !ok {
		return domain.NotFoundf("product %d", p.ID)
	}
	m.data.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.data.products {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.CategoryID != 0 {
			if _, ok := m.data.links[linkKey{p.ID, f.CategoryID}]; !ok {
				continue
			}
		}
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AttachProduct(ctx context.Context, productID, categoryID int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.data.products[productID]; !ok {
		return domain.NotFoundf("product %d", productID)
	}
	if _, ok := m.data.categories[categoryID]; !ok {
		return domain.NotFoundf("category %d", categoryID)
	}
	m.data.links[linkKey{productID, categoryID}] = struct{}{}
	return nil
}

// Variants

func (m *MemoryStore) UpsertVariant(ctx context.Context, v *domain.Variant) error {
	if err := v.Validate(); err != nil {
		return err
	}
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.data.products[v.ProductID]; !ok {
		return domain.NotFoundf("product %d", v.ProductID)
	}
	m.data.variants[variantKey{v.ProductID, v.Unit}] = *v
	return nil
}

func (m *MemoryStore) GetVariant(ctx context.Context, productID int64, unit domain.Unit) (*domain.Variant, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	v, ok := m.data.variants[variantKey{productID, unit}]
	if !ok {
		return nil, domain.NotFoundf("variant %d/%s", productID, unit)
	}
	return &v, nil
}

func (m *MemoryStore) ListVariants(ctx context.Context, productID int64) ([]domain.Variant, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Variant, 0)
	for k, v := range m.data.variants {
		if k.productID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out, nil
}

// Cart

func (m *MemoryStore) GetCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) (*domain.CartLine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	l, ok := m.data.cart[cartKey{buyerID, productID, unit}]
	if !ok {
		return nil, domain.NotFoundf("cart line %d/%s", productID, unit)
	}
	return &l, nil
}

func (m *MemoryStore) UpsertCartLine(ctx context.Context, l domain.CartLine) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	m.data.cart[cartKey{l.BuyerID, l.ProductID, l.Unit}] = l
	return nil
}

func (m *MemoryStore) DeleteCartLine(ctx context.Context, buyerID, productID int64, unit domain.Unit) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	delete(m.data.cart, cartKey{buyerID, productID, unit})
	return nil
}

func (m *MemoryStore) ListCartLines(ctx context.Context, buyerID int64) ([]domain.CartLine, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.CartLine, 0)
	for k, l := range m.data.cart {
		if k.buyerID == buyerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Unit < out[j].Unit
	})
	return out, nil
}

func (m *MemoryStore) ClearCart(ctx context.Context, buyerID int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	for k := range m.data.cart {
		if k.buyerID == buyerID {
			delete(m.data.cart, k)
		}
	}
	return nil
}

// Orders

func (m *MemoryStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	m.data.orders[o.ID] = cp
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	o, ok := m.data.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %s", id)
	}
	cp := o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &cp, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o, ok := m.data.orders[id]
	if !ok {
		return domain.NotFoundf("order %s", id)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	m.data.orders[id] = o
	return nil
}

func (m *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range m.data.orders {
		if f.BuyerID != 0 && o.BuyerID != f.BuyerID {
			continue
		}
		if !statusIn(o.Status, f.Statuses) {
			continue
		}
		cp := o
		cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
		out = append(out, cp)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
