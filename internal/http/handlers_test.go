package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shopbot/internal/bot"
	"shopbot/internal/domain"
	"shopbot/internal/repository"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

type fixture struct {
	srv     *Server
	catalog *service.CatalogService
	carts   *service.CartService
	orders  *service.OrderService
}

func setupServer(t *testing.T) fixture {
	t.Helper()
	return setupServerWithSecret(t, "")
}

func setupServerWithSecret(t *testing.T, secret string) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	catalog := service.NewCatalogService(store)
	carts := service.NewCartService(store, store)
	orders := service.NewOrderService(store, store, store, store)
	b := bot.New(bot.Deps{
		Catalog:  catalog,
		Carts:    carts,
		Orders:   orders,
		Sessions: bot.NewLRUSessions(100, time.Hour),
		Sender:   transport.NewLogSender(log),
		Log:      log,
	}, bot.Options{StoreName: "Test", Currency: "SAR", Operators: []int64{100}, MinOrder: decimal.NewFromInt(10)})
	return fixture{srv: NewServer(b, catalog, orders, log, secret), catalog: catalog, carts: carts, orders: orders}
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func sendEvent(t *testing.T, s *Server, in transport.Inbound) transport.Outbound {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/v1/events", in)
	if w.Code != http.StatusOK {
		t.Fatalf("event code %v: %s", w.Code, w.Body.String())
	}
	var resp eventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Replies) != 1 {
		t.Fatalf("expected one reply, got %d", len(resp.Replies))
	}
	return resp.Replies[0]
}

func seed(t *testing.T, f fixture) (*domain.Category, *domain.Product) {
	t.Helper()
	ctx := context.Background()
	c, err := f.catalog.CreateCategory(ctx, "Bakery")
	if err != nil {
		t.Fatal(err)
	}
	p, err := f.catalog.CreateProduct(ctx, "Bread", "fresh", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.AttachProduct(ctx, p.ID, c.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.catalog.UpsertVariant(ctx, domain.Variant{
		ProductID: p.ID, Unit: domain.UnitPC,
		Price: decimal.NewFromInt(2), Step: decimal.NewFromInt(1),
		Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, p
}

func TestHealthz(t *testing.T) {
	f := setupServer(t)
	w := doJSON(t, f.srv, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz code %v", w.Code)
	}
}

func TestEvent_Start(t *testing.T) {
	f := setupServer(t)
	out := sendEvent(t, f.srv, transport.Inbound{SenderID: 5, Kind: transport.KindText, Text: "/start"})
	if out.RecipientID != 5 {
		t.Fatalf("reply to %d", out.RecipientID)
	}
	if len(out.Actions) == 0 {
		t.Fatalf("expected menu buttons")
	}
}

func TestEvent_CheckoutFlow(t *testing.T) {
	f := setupServer(t)
	_, p := seed(t, f)
	const buyer = 5

	add := bot.AddItem{ProductID: p.ID, Unit: domain.UnitPC}.Encode()
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindAction, Action: add})
	qty := bot.EnterQuantity{ProductID: p.ID, Unit: domain.UnitPC}.Encode()
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindAction, Action: qty})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindText, Text: "6"})

	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindAction, Action: bot.BeginCheckout{}.Encode()})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindContact, Phone: "0501234567"})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindLocation, Location: &domain.GeoPoint{Lat: 1, Lon: 2}})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindText, Text: "Main st 1"})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindText, Text: "none"})
	sendEvent(t, f.srv, transport.Inbound{SenderID: buyer, Kind: transport.KindAction, Action: bot.Confirm{}.Encode()})

	orders, err := f.orders.ListByBuyer(context.Background(), buyer, 1)
	if err != nil || len(orders) != 1 {
		t.Fatalf("expected one order, got %d (%v)", len(orders), err)
	}

	w := doJSON(t, f.srv, http.MethodGet, "/api/v1/orders/"+orders[0].ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order %v", w.Code)
	}
	var got domain.Order
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusNew || !got.Total.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestCatalogRoutes(t *testing.T) {
	f := setupServer(t)
	c, p := seed(t, f)

	w := doJSON(t, f.srv, http.MethodGet, "/api/v1/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("categories code %v", w.Code)
	}
	w = doJSON(t, f.srv, http.MethodGet, fmt.Sprintf("/api/v1/categories/%d/products", c.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("category products code %v", w.Code)
	}
	var list []domain.Product
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one product, got %s", w.Body.String())
	}

	w = doJSON(t, f.srv, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", p.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("product code %v", w.Code)
	}
	var prod productResponse
	if err := json.Unmarshal(w.Body.Bytes(), &prod); err != nil {
		t.Fatal(err)
	}
	if prod.Name != "Bread" || len(prod.Variants) != 1 {
		t.Fatalf("unexpected product %+v", prod)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	f := setupServer(t)
	w := doJSON(t, f.srv, http.MethodPost, "/api/v1/events", map[string]any{"sender_id": 1, "kind": "sticker"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	w = doJSON(t, f.srv, http.MethodPost, "/api/v1/events", map[string]any{"kind": "text"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	w = doJSON(t, f.srv, http.MethodGet, "/api/v1/products/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
}

func TestHTTP_NotFound(t *testing.T) {
	f := setupServer(t)
	w := doJSON(t, f.srv, http.MethodGet, "/api/v1/products/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
	w = doJSON(t, f.srv, http.MethodGet, "/api/v1/orders/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
	w = doJSON(t, f.srv, http.MethodGet, "/api/v1/categories/42/products", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
}

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.Validationf("bad"), http.StatusBadRequest},
		{domain.NotFoundf("gone"), http.StatusNotFound},
		{domain.Sequencef("order"), http.StatusConflict},
		{domain.ErrEmptyCart, http.StatusConflict},
		{fmt.Errorf("%w: 10 < 50", domain.ErrBelowMinimum), http.StatusConflict},
		{domain.StorageErr("x", io.EOF), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := mapErrorToStatus(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestHTTP_WebhookSecret(t *testing.T) {
	f := setupServerWithSecret(t, "s3cret")
	body := `{"sender_id": 100, "kind": "text", "text": "/admin"}`

	send := func(method, path, body, secret string) int {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if secret != "" {
			req.Header.Set(SecretHeader, secret)
		}
		w := httptest.NewRecorder()
		f.srv.Engine().ServeHTTP(w, req)
		return w.Code
	}

	if code := send(http.MethodPost, "/api/v1/events", body, ""); code != http.StatusUnauthorized {
		t.Fatalf("event without secret: expected 401, got %v", code)
	}
	if code := send(http.MethodPost, "/api/v1/events", body, "wrong"); code != http.StatusUnauthorized {
		t.Fatalf("event with wrong secret: expected 401, got %v", code)
	}
	if code := send(http.MethodPost, "/api/v1/events", body, "s3cret"); code != http.StatusOK {
		t.Fatalf("event with secret: expected 200, got %v", code)
	}
	if code := send(http.MethodGet, "/api/v1/orders/missing", "", ""); code != http.StatusUnauthorized {
		t.Fatalf("order without secret: expected 401, got %v", code)
	}
	if code := send(http.MethodGet, "/api/v1/orders/missing", "", "s3cret"); code != http.StatusNotFound {
		t.Fatalf("order with secret: expected 404, got %v", code)
	}
	if code := send(http.MethodGet, "/api/v1/categories", "", ""); code != http.StatusOK {
		t.Fatalf("catalog stays public: expected 200, got %v", code)
	}
}
