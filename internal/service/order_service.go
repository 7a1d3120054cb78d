package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shopbot/internal/domain"
	"shopbot/internal/repository"
)

// OrderService places orders from carts and is the only writer of order status
type OrderService struct {
	catalog repository.CatalogRepository
	carts   repository.CartRepository
	orders  repository.OrderRepository
	tx      repository.TxManager
	now     func() time.Time
}

func NewOrderService(catalog repository.CatalogRepository, carts repository.CartRepository, orders repository.OrderRepository, tx repository.TxManager) *OrderService {
	return &OrderService{catalog: catalog, carts: carts, orders: orders, tx: tx, now: time.Now}
}

// CreateFromCart snapshots the buyer's cart into a NEW order and clears the
// cart in the same transaction. An empty cart yields ErrEmptyCart and a
// subtotal below minOrder yields ErrBelowMinimum; in both cases nothing is
// written. Quantities outside the current variant bounds are clamped first.
func (s *OrderService) CreateFromCart(ctx context.Context, d domain.CheckoutDetails, deliveryFee, minOrder decimal.Decimal) (*domain.Order, error) {
	if d.BuyerID == 0 {
		return nil, domain.Validationf("buyer is required")
	}
	if deliveryFee.IsNegative() {
		return nil, domain.Validationf("delivery fee must not be negative")
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		lines, err := s.carts.ListCartLines(ctx, d.BuyerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		now := s.now().UTC()
		o := domain.Order{
			ID:          uuid.NewString(),
			BuyerID:     d.BuyerID,
			Phone:       strings.TrimSpace(d.Phone),
			Address:     strings.TrimSpace(d.Address),
			Location:    d.Location,
			Note:        strings.TrimSpace(d.Note),
			Total:       decimal.Zero,
			DeliveryFee: deliveryFee,
			Status:      domain.OrderStatusNew,
			Lines:       make([]domain.OrderLine, 0, len(lines)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, l := range lines {
			p, err := s.catalog.GetProduct(ctx, l.ProductID)
			if err != nil {
				return err
			}
			v, err := s.catalog.GetVariant(ctx, l.ProductID, l.Unit)
			if err != nil {
				return err
			}
			qty := v.Clamp(l.Quantity)
			ol := domain.OrderLine{
				ProductID:   p.ID,
				ProductName: p.Name,
				Unit:        l.Unit,
				UnitPrice:   v.Price,
				Quantity:    qty,
				LineTotal:   v.Price.Mul(qty),
			}
			o.Lines = append(o.Lines, ol)
			o.Total = o.Total.Add(ol.LineTotal)
		}
		if o.Total.LessThan(minOrder) {
			return fmt.Errorf("%w: %s < %s", domain.ErrBelowMinimum, o.Total, minOrder)
		}

		if err := s.orders.CreateOrder(ctx, &o); err != nil {
			return err
		}
		if err := s.carts.ClearCart(ctx, d.BuyerID); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Validationf("order id is empty")
	}
	return s.orders.GetOrder(ctx, id)
}

// ListActive orders that are neither delivered nor rejected, newest first.
func (s *OrderService) ListActive(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.orders.ListOrders(ctx, repository.OrderFilter{
		Statuses: []domain.OrderStatus{
			domain.OrderStatusNew,
			domain.OrderStatusAccepted,
			domain.OrderStatusCollecting,
			domain.OrderStatusOnWay,
		},
		Limit: limit,
	})
}

func (s *OrderService) ListByBuyer(ctx context.Context, buyerID int64, limit int) ([]domain.Order, error) {
	return s.orders.ListOrders(ctx, repository.OrderFilter{BuyerID: buyerID, Limit: limit})
}

// Buyers lists everyone who has placed at least one order.
func (s *OrderService) Buyers(ctx context.Context) ([]int64, error) {
	all, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(all))
	out := make([]int64, 0, len(all))
	for _, o := range all {
		if _, ok := seen[o.BuyerID]; ok {
			continue
		}
		seen[o.BuyerID] = struct{}{}
		out = append(out, o.BuyerID)
	}
	return out, nil
}

// Transition applies an operator action. Actions outside the lifecycle graph
// leave the order untouched and report changed == false.
func (s *OrderService) Transition(ctx context.Context, id string, action domain.OrderAction) (*domain.Order, bool, error) {
	var (
		out     *domain.Order
		changed bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		out = o
		next, ok := o.Status.Next(action)
		if !ok {
			return nil
		}
		if err := s.orders.UpdateOrderStatus(ctx, o.ID, next); err != nil {
			return err
		}
		o.Status = next
		o.UpdatedAt = s.now().UTC()
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

// Stats counts orders and sums delivered revenue, fees included.
func (s *OrderService) Stats(ctx context.Context) (domain.Stats, error) {
	all, err := s.orders.ListOrders(ctx, repository.OrderFilter{})
	if err != nil {
		return domain.Stats{}, err
	}
	st := domain.Stats{Orders: len(all), Revenue: decimal.Zero}
	for _, o := range all {
		switch {
		case o.Status == domain.OrderStatusDelivered:
			st.Delivered++
			st.Revenue = st.Revenue.Add(o.GrandTotal())
		case !o.Status.Terminal():
			st.Active++
		}
	}
	return st, nil
}
