package bot

import (
	"context"
	"fmt"
	"strings"

	"shopbot/internal/domain"
	"shopbot/internal/transport"
)

const myOrdersLimit = 10

func (b *Bot) showCatalog(ctx context.Context) (transport.Outbound, error) {
	cats, err := b.catalog.ListCategories(ctx, true)
	if err != nil {
		return transport.Outbound{}, err
	}
	if len(cats) == 0 {
		return msg("The catalog is empty for now.", backToMenu), nil
	}
	rows := make([][]transport.Button, 0, len(cats)+1)
	for _, c := range cats {
		rows = append(rows, row(btn(c.Name, OpenCategory{ID: c.ID})))
	}
	rows = append(rows, backToMenu)
	return msg("🛒 Choose a category:", rows...), nil
}

func (b *Bot) showCategory(ctx context.Context, categoryID int64) (transport.Outbound, error) {
	c, err := b.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return transport.Outbound{}, err
	}
	if !c.Active {
		return transport.Outbound{}, domain.NotFoundf("category %d is hidden", categoryID)
	}
	products, err := b.catalog.ListCategoryProducts(ctx, categoryID)
	if err != nil {
		return transport.Outbound{}, err
	}
	return b.productList(c.Name, products), nil
}

func (b *Bot) productList(title string, products []domain.Product) transport.Outbound {
	if len(products) == 0 {
		return msg(title+": nothing here yet.", row(btn("⬅️ Catalog", OpenCatalog{})))
	}
	rows := make([][]transport.Button, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, row(btn(p.Name, OpenProduct{ID: p.ID})))
	}
	rows = append(rows, row(btn("⬅️ Catalog", OpenCatalog{})))
	return msg(title+":", rows...)
}

func (b *Bot) showProduct(ctx context.Context, productID int64) (transport.Outbound, error) {
	p, err := b.catalog.GetProduct(ctx, productID)
	if err != nil {
		return transport.Outbound{}, err
	}
	if !p.Active {
		return transport.Outbound{}, domain.NotFoundf("product %d is hidden", productID)
	}
	variants, err := b.catalog.ListVariants(ctx, productID)
	if err != nil {
		return transport.Outbound{}, err
	}
	return b.render.product(p, variants), nil
}

func (b *Bot) showCart(ctx context.Context, uid int64) (transport.Outbound, error) {
	view, err := b.carts.View(ctx, uid)
	if err != nil {
		return transport.Outbound{}, err
	}
	return b.render.cart(view), nil
}

func (b *Bot) beginQuantity(ctx context.Context, uid int64, a EnterQuantity) (transport.Outbound, error) {
	v, err := b.catalog.GetVariant(ctx, a.ProductID, a.Unit)
	if err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Put(uid, Session{Flow: FlowQuantity, Step: StepQuantity, ProductID: a.ProductID, Unit: a.Unit})
	text := fmt.Sprintf("Type the quantity in %s (%s to %s, step %s). 0 removes the item.",
		a.Unit.Label(), v.Min, v.Max, v.Step)
	return msg(text, cancelRow), nil
}

func (b *Bot) quantityInput(ctx context.Context, uid int64, sess Session, in transport.Inbound) (transport.Outbound, error) {
	q, err := parseAmount(in.Text)
	if in.Kind != transport.KindText || err != nil {
		return msg("Please type a number, for example 1.5", cancelRow), nil
	}
	if _, err := b.carts.SetLine(ctx, uid, sess.ProductID, sess.Unit, q); err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	return b.showCart(ctx, uid)
}

func (b *Bot) searchInput(ctx context.Context, uid int64, in transport.Inbound) (transport.Outbound, error) {
	query := strings.TrimSpace(in.Text)
	if in.Kind != transport.KindText || query == "" {
		return msg("🔍 Type a product name:", cancelRow), nil
	}
	products, err := b.catalog.Search(ctx, query)
	if err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	if len(products) == 0 {
		return msg(fmt.Sprintf("Nothing found for %q.", query), row(btn("🔍 Search again", BeginSearch{})), backToMenu), nil
	}
	return b.productList("🔍 Found", products), nil
}

func (b *Bot) showMyOrders(ctx context.Context, uid int64) (transport.Outbound, error) {
	orders, err := b.orders.ListByBuyer(ctx, uid, myOrdersLimit)
	if err != nil {
		return transport.Outbound{}, err
	}
	if len(orders) == 0 {
		return msg("You have no orders yet.", backToMenu), nil
	}
	var sb strings.Builder
	sb.WriteString("🧾 Your orders:\n")
	for _, o := range orders {
		fmt.Fprintf(&sb, "\n#%s %s, %s, %s", o.ShortID(), o.CreatedAt.Format("2006-01-02"),
			b.render.money(o.GrandTotal()), statusLabels[o.Status])
	}
	return msg(sb.String(), backToMenu), nil
}
