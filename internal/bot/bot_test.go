package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopbot/internal/domain"
	"shopbot/internal/repository"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

const (
	operatorID = int64(100)
	buyerID    = int64(1)
)

type recordingSender struct {
	mu   sync.Mutex
	sent []transport.Outbound
	fail map[int64]bool
	// gate, when set, holds every send until it is closed.
	gate chan struct{}
}

func (s *recordingSender) Send(_ context.Context, m transport.Outbound) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[m.RecipientID] {
		return errors.New("unreachable")
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) to(id int64) []transport.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transport.Outbound
	for _, m := range s.sent {
		if m.RecipientID == id {
			out = append(out, m)
		}
	}
	return out
}

type stubImages struct{ urls []string }

func (s stubImages) Search(context.Context, string, int) []string { return s.urls }

type imagesFunc func(ctx context.Context, query string, limit int) []string

func (f imagesFunc) Search(ctx context.Context, query string, limit int) []string {
	return f(ctx, query, limit)
}

type harness struct {
	t        *testing.T
	bot      *Bot
	store    *repository.MemoryStore
	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	sessions *LRUSessions
	sender   *recordingSender
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, images ImageSearcher) *harness {
	t.Helper()
	store := repository.NewMemoryStore()
	h := &harness{
		t:        t,
		store:    store,
		catalog:  service.NewCatalogService(store),
		carts:    service.NewCartService(store, store),
		orders:   service.NewOrderService(store, store, store, store),
		sessions: NewLRUSessions(100, time.Hour),
		sender:   &recordingSender{fail: map[int64]bool{}},
	}
	h.bot = New(Deps{
		Catalog:  h.catalog,
		Carts:    h.carts,
		Orders:   h.orders,
		Sessions: h.sessions,
		Sender:   h.sender,
		Images:   images,
		Log:      quietLogger(),
	}, Options{
		StoreName:   "Test Shop",
		Currency:    "SAR",
		Operators:   []int64{operatorID},
		MinOrder:    decimal.RequireFromString("50"),
		DeliveryFee: decimal.RequireFromString("20"),
	})
	return h
}

func (h *harness) handle(in transport.Inbound) transport.Outbound {
	h.t.Helper()
	out := h.bot.Handle(context.Background(), in)
	h.bot.Wait()
	require.Len(h.t, out, 1)
	assert.Equal(h.t, in.SenderID, out[0].RecipientID)
	return out[0]
}

func (h *harness) text(uid int64, text string) transport.Outbound {
	return h.handle(transport.Inbound{SenderID: uid, Kind: transport.KindText, Text: text})
}

func (h *harness) press(uid int64, a Action) transport.Outbound {
	return h.handle(transport.Inbound{SenderID: uid, Kind: transport.KindAction, Action: a.Encode()})
}

// product creates an active product priced per piece.
func (h *harness) product(name, price string) *domain.Product {
	h.t.Helper()
	ctx := context.Background()
	p, err := h.catalog.CreateProduct(ctx, name, "", "")
	require.NoError(h.t, err)
	_, err = h.catalog.UpsertVariant(ctx, domain.Variant{
		ProductID: p.ID,
		Unit:      domain.UnitPC,
		Price:     decimal.RequireFromString(price),
		Step:      decimal.NewFromInt(1),
		Min:       decimal.NewFromInt(1),
		Max:       decimal.NewFromInt(200),
	})
	require.NoError(h.t, err)
	return p
}

func (h *harness) fillCart(uid int64, p *domain.Product, qty int64) {
	h.t.Helper()
	_, err := h.carts.SetLine(context.Background(), uid, p.ID, domain.UnitPC, decimal.NewFromInt(qty))
	require.NoError(h.t, err)
}

func (h *harness) session(uid int64) (Session, bool) {
	return h.sessions.Get(uid)
}

func hasButton(out transport.Outbound, a Action) bool {
	for _, r := range out.Actions {
		for _, b := range r {
			if b.Data == a.Encode() {
				return true
			}
		}
	}
	return false
}

func TestHandle_StartShowsMenu(t *testing.T) {
	h := newHarness(t, nil)
	out := h.text(buyerID, "/start")
	assert.Contains(t, out.Text, "Test Shop")
	assert.True(t, hasButton(out, OpenCatalog{}))
	assert.False(t, hasButton(out, OpenAdmin{}))

	out = h.text(operatorID, "/start")
	assert.True(t, hasButton(out, OpenAdmin{}))
}

func TestHandle_UnknownActionFallsBackToMenu(t *testing.T) {
	h := newHarness(t, nil)
	out := h.handle(transport.Inbound{SenderID: buyerID, Kind: transport.KindAction, Action: "U:7"})
	assert.True(t, hasButton(out, OpenCatalog{}))
}

func TestHandle_BrowseAndAdd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	cat, err := h.catalog.CreateCategory(ctx, "Bakery")
	require.NoError(t, err)
	bread := h.product("Bread", "2")
	require.NoError(t, h.catalog.AttachProduct(ctx, bread.ID, cat.ID))

	out := h.press(buyerID, OpenCatalog{})
	require.True(t, hasButton(out, OpenCategory{ID: cat.ID}))

	out = h.press(buyerID, OpenCategory{ID: cat.ID})
	require.True(t, hasButton(out, OpenProduct{ID: bread.ID}))

	out = h.press(buyerID, OpenProduct{ID: bread.ID})
	require.True(t, hasButton(out, AddItem{ProductID: bread.ID, Unit: domain.UnitPC}))

	out = h.press(buyerID, AddItem{ProductID: bread.ID, Unit: domain.UnitPC})
	assert.Contains(t, out.Text, "Total: 2.00 SAR")

	out = h.press(buyerID, StepItem{ProductID: bread.ID, Unit: domain.UnitPC, Dir: service.Up})
	assert.Contains(t, out.Text, "Total: 4.00 SAR")
}

func TestHandle_PricingThenQuantityEntry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	p, err := h.catalog.CreateProduct(ctx, "Eggs", "", "")
	require.NoError(t, err)

	out := h.text(operatorID, fmt.Sprintf("%d | PC | 2 | 1 | 1 | 200", p.ID))
	assert.Contains(t, out.Text, "Eggs")

	h.press(buyerID, AddItem{ProductID: p.ID, Unit: domain.UnitPC})
	out = h.press(buyerID, EnterQuantity{ProductID: p.ID, Unit: domain.UnitPC})
	assert.Contains(t, out.Text, "quantity")

	out = h.text(buyerID, "abc")
	assert.Contains(t, out.Text, "number")

	out = h.text(buyerID, "3")
	assert.Contains(t, out.Text, "= 6.00 SAR")
	_, ok := h.session(buyerID)
	assert.False(t, ok)
}

func TestHandle_PricingIgnoredForBuyers(t *testing.T) {
	h := newHarness(t, nil)
	p := h.product("Eggs", "2")

	h.text(buyerID, fmt.Sprintf("%d | PC | 0 | 1 | 1 | 200", p.ID))
	v, err := h.catalog.GetVariant(context.Background(), p.ID, domain.UnitPC)
	require.NoError(t, err)
	assert.Equal(t, "2", v.Price.String())
}

func TestHandle_MalformedPricingKeepsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.press(operatorID, BeginNewCategory{})

	out := h.text(operatorID, "7 | BOX | 2 | 1 | 1 | 200")
	assert.Contains(t, out.Text, PricingFormat)

	sess, ok := h.session(operatorID)
	require.True(t, ok)
	assert.Equal(t, FlowNewCategory, sess.Flow)

	out = h.text(operatorID, "99 | PC | 2 | 1 | 1 | 200")
	assert.Contains(t, out.Text, "not found")
}

func TestHandle_AdminActionsNeedOperator(t *testing.T) {
	h := newHarness(t, nil)
	out := h.press(buyerID, OpenAdmin{})
	assert.Contains(t, out.Text, "operators only")
	out = h.press(buyerID, ChangeStatus{OrderID: "x", Action: domain.ActionAccept})
	assert.Contains(t, out.Text, "operators only")
}

func TestHandle_SlowGatewayDoesNotBlockOtherSenders(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	bread := h.product("Bread", "2")
	h.fillCart(buyerID, bread, 30)
	reachConfirm(t, h)

	gate := make(chan struct{})
	h.sender.gate = gate

	done := make(chan []transport.Outbound, 1)
	go func() {
		done <- h.bot.Handle(ctx, transport.Inbound{SenderID: buyerID, Kind: transport.KindAction, Action: Confirm{}.Encode()})
	}()
	select {
	case out := <-done:
		require.Len(t, out, 1)
		assert.Contains(t, out[0].Text, "is placed")
	case <-time.After(2 * time.Second):
		t.Fatal("confirm waited for the operator gateway")
	}

	// another sender is served while the operator alert is still held
	out := h.bot.Handle(ctx, transport.Inbound{SenderID: buyerID + 1, Kind: transport.KindText, Text: "/start"})
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "Test Shop")
	assert.Empty(t, h.sender.to(operatorID))

	close(gate)
	h.bot.Wait()
	assert.Len(t, h.sender.to(operatorID), 1)
}

func TestHandle_ImageLookupRunsOutsideLock(t *testing.T) {
	var (
		h        *harness
		searched bool
		unlocked bool
	)
	h = newHarness(t, imagesFunc(func(context.Context, string, int) []string {
		searched = true
		if h.bot.mu.TryLock() {
			unlocked = true
			h.bot.mu.Unlock()
		}
		return []string{"https://img/1.jpg"}
	}))

	h.press(operatorID, BeginNewProduct{})
	h.press(operatorID, Skip{})
	out := h.text(operatorID, "Honey | Mountain honey")
	assert.True(t, hasButton(out, PickImage{Index: 0}))
	assert.True(t, searched)
	assert.True(t, unlocked)
}
