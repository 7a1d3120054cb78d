package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/domain"
)

var kgVariant = domain.Variant{Unit: domain.UnitKG, Price: d("8.5"), Step: d("0.5"), Min: d("0.5"), Max: d("50")}

func TestCart_SetLine_ClampsToMinimum(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)

	l, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("0.4"))
	require.NoError(t, err)
	assert.Equal(t, "0.5", l.Quantity.String())
}

func TestCart_SetLine_NonPositiveRemoves(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)

	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("2"))
	require.NoError(t, err)
	l, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("0"))
	require.NoError(t, err)
	assert.Nil(t, l)

	view, err := s.carts.View(ctx, 1)
	require.NoError(t, err)
	assert.True(t, view.Empty())
}

func TestCart_SetLine_ReplacesQuantity(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)

	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("2"))
	require.NoError(t, err)
	l, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("3.2"))
	require.NoError(t, err)
	assert.Equal(t, "3", l.Quantity.String())
}

func TestCart_SetLine_UnknownVariant(t *testing.T) {
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)
	_, err := s.carts.SetLine(context.Background(), 1, p.ID, domain.UnitPC, d("1"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCart_Add_KeepsExistingLine(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)

	l, err := s.carts.Add(ctx, 1, p.ID, domain.UnitKG)
	require.NoError(t, err)
	assert.Equal(t, "0.5", l.Quantity.String())

	_, err = s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("4"))
	require.NoError(t, err)
	l, err = s.carts.Add(ctx, 1, p.ID, domain.UnitKG)
	require.NoError(t, err)
	assert.Equal(t, "4", l.Quantity.String())
}

func TestCart_Add_InactiveProduct(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)
	_, err := s.catalog.ToggleProduct(ctx, p.ID)
	require.NoError(t, err)

	_, err = s.carts.Add(ctx, 1, p.ID, domain.UnitKG)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCart_Adjust(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)

	// down on an absent line leaves the cart empty
	l, err := s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Down)
	require.NoError(t, err)
	assert.Nil(t, l)
	_, err = s.store.GetCartLine(ctx, 1, p.ID, domain.UnitKG)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// an absent line counts as the minimum, so up lands one step above it
	l, err = s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Up)
	require.NoError(t, err)
	assert.Equal(t, "1", l.Quantity.String())

	l, err = s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Up)
	require.NoError(t, err)
	assert.Equal(t, "1.5", l.Quantity.String())

	l, err = s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Down)
	require.NoError(t, err)
	assert.Equal(t, "1", l.Quantity.String())

	l, err = s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Down)
	require.NoError(t, err)
	assert.Equal(t, "0.5", l.Quantity.String())

	// below the minimum the line goes away
	l, err = s.carts.Adjust(ctx, 1, p.ID, domain.UnitKG, Down)
	require.NoError(t, err)
	assert.Nil(t, l)
	_, err = s.store.GetCartLine(ctx, 1, p.ID, domain.UnitKG)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCart_Adjust_AbsentLineStartsFromMinimum(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Eggs", domain.Variant{Unit: domain.UnitPC, Price: d("2"), Step: d("1"), Min: d("1"), Max: d("200")})

	l, err := s.carts.Adjust(ctx, 1, p.ID, domain.UnitPC, Up)
	require.NoError(t, err)
	assert.Equal(t, "2", l.Quantity.String())

	total, err := s.carts.Total(ctx, 1)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("4")), total.String())
}

func TestCart_Adjust_StopsAtMaximum(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Eggs", domain.Variant{Unit: domain.UnitPC, Price: d("0.3"), Step: d("10"), Min: d("10"), Max: d("30")})

	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitPC, d("30"))
	require.NoError(t, err)
	l, err := s.carts.Adjust(ctx, 1, p.ID, domain.UnitPC, Up)
	require.NoError(t, err)
	assert.Equal(t, "30", l.Quantity.String())
}

func TestCart_TotalMatchesLines(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	apples := priced(t, s, "Apples", kgVariant)
	milk := priced(t, s, "Milk", domain.Variant{Unit: domain.UnitL, Price: d("1.25"), Step: d("1"), Min: d("1"), Max: d("10")})

	_, err := s.carts.SetLine(ctx, 1, apples.ID, domain.UnitKG, d("2"))
	require.NoError(t, err)
	_, err = s.carts.Adjust(ctx, 1, apples.ID, domain.UnitKG, Up)
	require.NoError(t, err)
	_, err = s.carts.SetLine(ctx, 1, milk.ID, domain.UnitL, d("3"))
	require.NoError(t, err)
	_, err = s.carts.Adjust(ctx, 1, milk.ID, domain.UnitL, Down)
	require.NoError(t, err)
	// other buyers do not leak in
	_, err = s.carts.SetLine(ctx, 2, milk.ID, domain.UnitL, d("5"))
	require.NoError(t, err)

	view, err := s.carts.View(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	sum := d("0")
	for _, l := range view.Lines {
		assert.True(t, l.LineTotal.Equal(l.Price.Mul(l.Quantity)))
		sum = sum.Add(l.LineTotal)
	}
	assert.True(t, view.Total.Equal(sum))
	// 2.5 kg * 8.5 + 2 l * 1.25
	assert.True(t, view.Total.Equal(d("23.75")), view.Total.String())
}

func TestCart_TotalFollowsPriceEdits(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)
	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("2"))
	require.NoError(t, err)

	v := kgVariant
	v.ProductID = p.ID
	v.Price = d("10")
	_, err = s.catalog.UpsertVariant(ctx, v)
	require.NoError(t, err)

	total, err := s.carts.Total(ctx, 1)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("20")))
}

func TestCart_View_ClampsLinesAfterRepricing(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Eggs", domain.Variant{Unit: domain.UnitPC, Price: d("2"), Step: d("1"), Min: d("1"), Max: d("200")})
	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitPC, d("7"))
	require.NoError(t, err)

	_, err = s.catalog.UpsertVariant(ctx, domain.Variant{ProductID: p.ID, Unit: domain.UnitPC, Price: d("2"), Step: d("5"), Min: d("10"), Max: d("20")})
	require.NoError(t, err)

	view, err := s.carts.View(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "10", view.Lines[0].Quantity.String())
	assert.True(t, view.Total.Equal(d("20")), view.Total.String())

	stored, err := s.store.GetCartLine(ctx, 1, p.ID, domain.UnitPC)
	require.NoError(t, err)
	assert.Equal(t, "10", stored.Quantity.String())
}

func TestCart_Clear(t *testing.T) {
	ctx := context.Background()
	s := setup(t)
	p := priced(t, s, "Apples", kgVariant)
	_, err := s.carts.SetLine(ctx, 1, p.ID, domain.UnitKG, d("2"))
	require.NoError(t, err)

	require.NoError(t, s.carts.Clear(ctx, 1))
	total, err := s.carts.Total(ctx, 1)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
