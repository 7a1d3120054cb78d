package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"shopbot/internal/domain"
	"shopbot/internal/repository"
)

// Direction of a single-step cart adjustment
type Direction int

const (
	Up Direction = iota
	Down
)

// CartService keeps cart quantities inside the bounds of their variant.
type CartService struct {
	catalog repository.CatalogRepository
	carts   repository.CartRepository
}

func NewCartService(catalog repository.CatalogRepository, carts repository.CartRepository) *CartService {
	return &CartService{catalog: catalog, carts: carts}
}

// SetLine replaces the quantity of a line. qty <= 0 removes the line; any
// other value is clamped into the variant bounds on its step grid. The
// returned line is nil when the line was removed.
func (s *CartService) SetLine(ctx context.Context, buyerID, productID int64, unit domain.Unit, qty decimal.Decimal) (*domain.CartLine, error) {
	if !qty.IsPositive() {
		return nil, s.carts.DeleteCartLine(ctx, buyerID, productID, unit)
	}
	v, err := s.catalog.GetVariant(ctx, productID, unit)
	if err != nil {
		return nil, err
	}
	line := domain.CartLine{
		BuyerID:   buyerID,
		ProductID: productID,
		Unit:      unit,
		Quantity:  v.Clamp(qty),
	}
	if err := s.carts.UpsertCartLine(ctx, line); err != nil {
		return nil, err
	}
	return &line, nil
}

// Add puts the variant's minimum quantity in the cart when the line is
// absent and leaves an existing line alone.
func (s *CartService) Add(ctx context.Context, buyerID, productID int64, unit domain.Unit) (*domain.CartLine, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.NotFoundf("product %d is not available", productID)
	}
	cur, err := s.carts.GetCartLine(ctx, buyerID, productID, unit)
	switch {
	case err == nil:
		return cur, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	v, err := s.catalog.GetVariant(ctx, productID, unit)
	if err != nil {
		return nil, err
	}
	return s.SetLine(ctx, buyerID, productID, unit, v.Min)
}

// Adjust moves a line one step up or down from its current quantity, or from
// the minimum when the line is absent. Going below the minimum removes the
// line.
func (s *CartService) Adjust(ctx context.Context, buyerID, productID int64, unit domain.Unit, dir Direction) (*domain.CartLine, error) {
	v, err := s.catalog.GetVariant(ctx, productID, unit)
	if err != nil {
		return nil, err
	}
	cur := v.Min
	line, err := s.carts.GetCartLine(ctx, buyerID, productID, unit)
	switch {
	case err == nil:
		cur = line.Quantity
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	next := cur.Add(v.Step)
	if dir == Down {
		next = cur.Sub(v.Step)
		if next.LessThan(v.Min) {
			return nil, s.carts.DeleteCartLine(ctx, buyerID, productID, unit)
		}
	}
	return s.SetLine(ctx, buyerID, productID, unit, next)
}

func (s *CartService) Remove(ctx context.Context, buyerID, productID int64, unit domain.Unit) error {
	return s.carts.DeleteCartLine(ctx, buyerID, productID, unit)
}

func (s *CartService) Clear(ctx context.Context, buyerID int64) error {
	return s.carts.ClearCart(ctx, buyerID)
}

// View prices every line against the current catalog. Totals are never
// cached, so a price edit shows up on the next call. Lines left outside the
// bounds of a re-priced variant are clamped and written back.
func (s *CartService) View(ctx context.Context, buyerID int64) (domain.CartView, error) {
	lines, err := s.carts.ListCartLines(ctx, buyerID)
	if err != nil {
		return domain.CartView{}, err
	}
	view := domain.CartView{BuyerID: buyerID, Lines: make([]domain.PricedLine, 0, len(lines)), Total: decimal.Zero}
	for _, l := range lines {
		p, err := s.catalog.GetProduct(ctx, l.ProductID)
		if err != nil {
			return domain.CartView{}, err
		}
		v, err := s.catalog.GetVariant(ctx, l.ProductID, l.Unit)
		if err != nil {
			return domain.CartView{}, err
		}
		if !v.Aligned(l.Quantity) {
			l.Quantity = v.Clamp(l.Quantity)
			if err := s.carts.UpsertCartLine(ctx, l); err != nil {
				return domain.CartView{}, err
			}
		}
		pl := domain.PricedLine{
			CartLine:    l,
			ProductName: p.Name,
			Price:       v.Price,
			Step:        v.Step,
			LineTotal:   v.Price.Mul(l.Quantity),
		}
		view.Lines = append(view.Lines, pl)
		view.Total = view.Total.Add(pl.LineTotal)
	}
	return view, nil
}

func (s *CartService) Total(ctx context.Context, buyerID int64) (decimal.Decimal, error) {
	view, err := s.View(ctx, buyerID)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Total, nil
}
