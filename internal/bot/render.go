package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"shopbot/internal/domain"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

func msg(text string, rows ...[]transport.Button) transport.Outbound {
	return transport.Outbound{Text: text, Actions: rows}
}

func btn(label string, a Action) transport.Button {
	return transport.Button{Label: label, Data: a.Encode()}
}

func row(b ...transport.Button) []transport.Button { return b }

func qty(q decimal.Decimal, u domain.Unit) string {
	return q.String() + " " + u.Label()
}

var (
	backToMenu  = row(btn("⬅️ Menu", OpenMenu{}))
	backToAdmin = row(btn("⬅️ Admin", OpenAdmin{}))
	cancelRow   = row(btn("✖️ Cancel", Cancel{}))
	skipRow     = row(btn("⏭ Skip", Skip{}), btn("✖️ Cancel", Cancel{}))
)

var actionLabels = map[domain.OrderAction]string{
	domain.ActionAccept:  "✅ Accept",
	domain.ActionReject:  "❌ Reject",
	domain.ActionCollect: "📦 Collecting",
	domain.ActionShip:    "🚚 On the way",
	domain.ActionDeliver: "🏁 Delivered",
}

var statusLabels = map[domain.OrderStatus]string{
	domain.OrderStatusNew:        "new",
	domain.OrderStatusAccepted:   "accepted",
	domain.OrderStatusRejected:   "rejected",
	domain.OrderStatusCollecting: "being collected",
	domain.OrderStatusOnWay:      "on the way",
	domain.OrderStatusDelivered:  "delivered",
}

// buyerNotices are sent to the buyer after each status change.
var buyerNotices = map[domain.OrderStatus]string{
	domain.OrderStatusAccepted:   "✅ Your order #%s has been accepted.",
	domain.OrderStatusRejected:   "❌ Sorry, your order #%s was rejected.",
	domain.OrderStatusCollecting: "📦 We are collecting your order #%s.",
	domain.OrderStatusOnWay:      "🚚 Your order #%s is on the way.",
	domain.OrderStatusDelivered:  "🏁 Order #%s delivered. Thank you!",
}

type renderer struct {
	store    string
	currency string
}

func (r renderer) money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + r.currency
}

func (r renderer) menu(operator bool) transport.Outbound {
	rows := [][]transport.Button{
		row(btn("🛒 Catalog", OpenCatalog{}), btn("🔍 Search", BeginSearch{})),
		row(btn("🧺 Cart", OpenCart{}), btn("📦 Checkout", BeginCheckout{})),
		row(btn("🧾 My orders", MyOrders{})),
	}
	if operator {
		rows = append(rows, row(btn("👑 Admin", OpenAdmin{})))
	}
	return msg("Welcome to "+r.store+"!", rows...)
}

func (r renderer) variantLine(v domain.Variant) string {
	return fmt.Sprintf("%s per %s, from %s to %s, step %s",
		r.money(v.Price), v.Unit.Label(), qty(v.Min, v.Unit), qty(v.Max, v.Unit), v.Step)
}

func (r renderer) product(p *domain.Product, variants []domain.Variant) transport.Outbound {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Description != "" {
		b.WriteString("\n" + p.Description)
	}
	var rows [][]transport.Button
	if len(variants) == 0 {
		b.WriteString("\n\nNot available for order yet.")
	}
	for _, v := range variants {
		b.WriteString("\n• " + r.variantLine(v))
		rows = append(rows, row(btn("➕ "+qty(v.Min, v.Unit), AddItem{ProductID: p.ID, Unit: v.Unit})))
	}
	rows = append(rows, row(btn("🧺 Cart", OpenCart{}), btn("⬅️ Catalog", OpenCatalog{})))
	out := msg(b.String(), rows...)
	out.Media = p.PhotoRef
	return out
}

func (r renderer) cart(view domain.CartView) transport.Outbound {
	if view.Empty() {
		return msg("🧺 Your cart is empty.", row(btn("🛒 Catalog", OpenCatalog{})), backToMenu)
	}
	var b strings.Builder
	b.WriteString("🧺 Your cart:\n")
	rows := make([][]transport.Button, 0, len(view.Lines)+2)
	for _, l := range view.Lines {
		fmt.Fprintf(&b, "\n%s: %s × %s = %s", l.ProductName, qty(l.Quantity, l.Unit), r.money(l.Price), r.money(l.LineTotal))
		rows = append(rows, row(
			btn("➖", StepItem{ProductID: l.ProductID, Unit: l.Unit, Dir: service.Down}),
			btn(l.ProductName+" "+qty(l.Quantity, l.Unit), EnterQuantity{ProductID: l.ProductID, Unit: l.Unit}),
			btn("➕", StepItem{ProductID: l.ProductID, Unit: l.Unit}),
			btn("✖️", RemoveItem{ProductID: l.ProductID, Unit: l.Unit}),
		))
	}
	fmt.Fprintf(&b, "\n\nTotal: %s", r.money(view.Total))
	rows = append(rows,
		row(btn("📦 Checkout", BeginCheckout{}), btn("🗑 Clear", ClearCart{})),
		backToMenu,
	)
	return msg(b.String(), rows...)
}

func (r renderer) checkoutSummary(view domain.CartView, s Session, fee decimal.Decimal) transport.Outbound {
	var b strings.Builder
	b.WriteString("Please check your order:\n")
	for _, l := range view.Lines {
		fmt.Fprintf(&b, "\n%s: %s × %s = %s", l.ProductName, qty(l.Quantity, l.Unit), r.money(l.Price), r.money(l.LineTotal))
	}
	fmt.Fprintf(&b, "\n\nSubtotal: %s", r.money(view.Total))
	fmt.Fprintf(&b, "\nDelivery: %s", r.money(fee))
	fmt.Fprintf(&b, "\nTotal: %s", r.money(view.Total.Add(fee)))
	fmt.Fprintf(&b, "\n\nPhone: %s", s.Phone)
	if s.Location != nil {
		fmt.Fprintf(&b, "\nLocation: %.6f, %.6f", s.Location.Lat, s.Location.Lon)
	}
	if s.Address != "" {
		fmt.Fprintf(&b, "\nAddress: %s", s.Address)
	}
	if s.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s", s.Note)
	}
	return msg(b.String(), row(btn("✅ Confirm", Confirm{}), btn("✖️ Cancel", Cancel{})))
}

func (r renderer) orderText(o *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s (%s)\n", o.ShortID(), statusLabels[o.Status])
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "\n%s: %s × %s = %s", l.ProductName, qty(l.Quantity, l.Unit), r.money(l.UnitPrice), r.money(l.LineTotal))
	}
	fmt.Fprintf(&b, "\n\nSubtotal: %s", r.money(o.Total))
	fmt.Fprintf(&b, "\nDelivery: %s", r.money(o.DeliveryFee))
	fmt.Fprintf(&b, "\nTotal: %s", r.money(o.GrandTotal()))
	fmt.Fprintf(&b, "\n\nBuyer: %d\nPhone: %s", o.BuyerID, o.Phone)
	if o.Location != nil {
		fmt.Fprintf(&b, "\nLocation: %.6f, %.6f", o.Location.Lat, o.Location.Lon)
	}
	if o.Address != "" {
		fmt.Fprintf(&b, "\nAddress: %s", o.Address)
	}
	if o.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s", o.Note)
	}
	return b.String()
}

// orderControls renders the operator view with the actions valid next.
func (r renderer) orderControls(o *domain.Order) transport.Outbound {
	var rows [][]transport.Button
	var next []transport.Button
	for _, a := range o.Status.NextActions() {
		next = append(next, btn(actionLabels[a], ChangeStatus{OrderID: o.ID, Action: a}))
	}
	if len(next) > 0 {
		rows = append(rows, next)
	}
	rows = append(rows, row(btn("📋 Orders", ListOrders{}), btn("⬅️ Admin", OpenAdmin{})))
	return msg(r.orderText(o), rows...)
}

func (r renderer) buyerNotice(o *domain.Order) transport.Outbound {
	return msg(fmt.Sprintf(buyerNotices[o.Status], o.ShortID()), backToMenu)
}

func (r renderer) admin() transport.Outbound {
	return msg("👑 Admin panel",
		row(btn("📋 Orders", ListOrders{}), btn("📊 Stats", ShowStats{})),
		row(btn("➕ Product", BeginNewProduct{}), btn("➕ Category", BeginNewCategory{})),
		row(btn("🔗 Attach to category", BeginAttach{}), btn("🗂 Manage catalog", ManageCatalog{})),
		row(btn("📣 Broadcast", BeginBroadcast{})),
		backToMenu,
	)
}
