package bot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/domain"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

func TestCheckout_EmptyCart(t *testing.T) {
	h := newHarness(t, nil)
	out := h.press(buyerID, BeginCheckout{})
	assert.Contains(t, out.Text, "empty")
	_, ok := h.session(buyerID)
	assert.False(t, ok)
}

func TestCheckout_FullFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)

	h.press(buyerID, BeginCheckout{})

	out := h.text(buyerID, "12-34")
	assert.Contains(t, out.Text, "at least 7 digits")
	sess, _ := h.session(buyerID)
	assert.Equal(t, StepContact, sess.Step)

	h.handle(transport.Inbound{SenderID: buyerID, Kind: transport.KindContact, Phone: "+966 50 123 4567"})
	sess, _ = h.session(buyerID)
	assert.Equal(t, StepLocation, sess.Step)
	assert.Equal(t, "+966501234567", sess.Phone)

	h.handle(transport.Inbound{SenderID: buyerID, Kind: transport.KindLocation, Location: &domain.GeoPoint{Lat: 24.47, Lon: 39.61}})
	h.text(buyerID, "Quba street 5")
	out = h.press(buyerID, Skip{})

	require.True(t, hasButton(out, Confirm{}))
	assert.Contains(t, out.Text, "Subtotal: 60.00 SAR")
	assert.Contains(t, out.Text, "Delivery: 20.00 SAR")
	assert.Contains(t, out.Text, "Total: 80.00 SAR")

	out = h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "is placed")

	_, ok := h.session(buyerID)
	assert.False(t, ok)
	view, err := h.carts.View(ctx, buyerID)
	require.NoError(t, err)
	assert.True(t, view.Empty())

	orders, err := h.orders.ListByBuyer(ctx, buyerID, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, domain.OrderStatusNew, o.Status)
	assert.Equal(t, "Quba street 5", o.Address)
	assert.Empty(t, o.Note)
	require.NotNil(t, o.Location)
	assert.Equal(t, "60", o.Total.String())

	alerts := h.sender.to(operatorID)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Text, o.ShortID())
	assert.True(t, hasButton(alerts[0], ChangeStatus{OrderID: o.ID, Action: domain.ActionAccept}))
	assert.True(t, hasButton(alerts[0], ChangeStatus{OrderID: o.ID, Action: domain.ActionReject}))
}

func TestCheckout_BelowMinimumAbortsAndKeepsCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 15)

	h.press(buyerID, BeginCheckout{})
	h.text(buyerID, "0501234567")
	h.text(buyerID, "skip")
	h.text(buyerID, "skip")
	out := h.text(buyerID, "none")

	assert.Contains(t, out.Text, "minimum order is 50.00 SAR")
	assert.Contains(t, out.Text, "30.00 SAR")
	assert.False(t, hasButton(out, Confirm{}))
	_, ok := h.session(buyerID)
	assert.False(t, ok)

	total, err := h.carts.Total(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, "30", total.String())
}

func TestCheckout_ReentryResetsFields(t *testing.T) {
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)

	h.press(buyerID, BeginCheckout{})
	h.text(buyerID, "0501234567")
	h.press(buyerID, Skip{})
	sess, _ := h.session(buyerID)
	require.Equal(t, StepAddress, sess.Step)

	h.press(buyerID, BeginCheckout{})
	sess, ok := h.session(buyerID)
	require.True(t, ok)
	assert.Equal(t, StepContact, sess.Step)
	assert.Empty(t, sess.Phone)
}

func TestCheckout_CancelKeepsCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)

	h.press(buyerID, BeginCheckout{})
	h.text(buyerID, "0501234567")
	h.press(buyerID, Cancel{})

	_, ok := h.session(buyerID)
	assert.False(t, ok)
	total, err := h.carts.Total(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, "60", total.String())
}

func TestCheckout_ConfirmOutOfSequence(t *testing.T) {
	h := newHarness(t, nil)
	out := h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "nothing to confirm")
}

func TestCheckout_TextAtConfirmRePrompts(t *testing.T) {
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)

	h.press(buyerID, BeginCheckout{})
	h.text(buyerID, "0501234567")
	h.text(buyerID, "skip")
	h.text(buyerID, "Main st")
	h.text(buyerID, "ring twice")

	out := h.text(buyerID, "yes")
	assert.True(t, hasButton(out, Confirm{}))
	sess, _ := h.session(buyerID)
	assert.Equal(t, StepConfirm, sess.Step)
	assert.Equal(t, "ring twice", sess.Note)
}

// reachConfirm walks a buyer with a filled cart up to the summary.
func reachConfirm(t *testing.T, h *harness) transport.Outbound {
	t.Helper()
	h.press(buyerID, BeginCheckout{})
	h.text(buyerID, "0501234567")
	h.text(buyerID, "skip")
	h.text(buyerID, "skip")
	out := h.text(buyerID, "none")
	require.True(t, hasButton(out, Confirm{}))
	return out
}

func TestCheckout_CartShrunkAtConfirmFallsBelowMinimum(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)
	reachConfirm(t, h)

	h.fillCart(buyerID, bread, 5)
	out := h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "minimum order is 50.00 SAR")
	assert.NotContains(t, out.Text, "is placed")
	assert.False(t, hasButton(out, Confirm{}))

	_, ok := h.session(buyerID)
	assert.False(t, ok)
	orders, err := h.orders.ListByBuyer(ctx, buyerID, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
	total, err := h.carts.Total(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, "10", total.String())
	assert.Empty(t, h.sender.to(operatorID))
}

func TestCheckout_CartEditedAtConfirmIsSummarizedAgain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)
	reachConfirm(t, h)

	h.press(buyerID, StepItem{ProductID: bread.ID, Unit: domain.UnitPC, Dir: service.Down})
	out := h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "has changed")
	assert.Contains(t, out.Text, "Subtotal: 58.00 SAR")
	require.True(t, hasButton(out, Confirm{}))
	orders, err := h.orders.ListByBuyer(ctx, buyerID, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	out = h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "is placed")
	orders, err = h.orders.ListByBuyer(ctx, buyerID, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "58", orders[0].Total.String())
}

func TestCheckout_RepricedVariantIsClampedBeforeOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)
	reachConfirm(t, h)

	h.text(operatorID, fmt.Sprintf("%d | PC | 3 | 7 | 10 | 200", bread.ID))

	out := h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "has changed")
	assert.Contains(t, out.Text, "Subtotal: 72.00 SAR")

	out = h.press(buyerID, Confirm{})
	assert.Contains(t, out.Text, "is placed")
	orders, err := h.orders.ListByBuyer(ctx, buyerID, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, "24", orders[0].Lines[0].Quantity.String())
	assert.Equal(t, "72", orders[0].Total.String())
}

func TestNormalizePhone(t *testing.T) {
	p, ok := normalizePhone(" +966 (50) 123-45-67 ")
	assert.True(t, ok)
	assert.Equal(t, "+966501234567", p)

	_, ok = normalizePhone("123456")
	assert.False(t, ok)
}
