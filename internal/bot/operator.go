package bot

import (
	"context"
	"fmt"
	"strings"

	"shopbot/internal/transport"
)

const activeOrdersLimit = 20

func (b *Bot) listOrders(ctx context.Context) (transport.Outbound, error) {
	orders, err := b.orders.ListActive(ctx, activeOrdersLimit)
	if err != nil {
		return transport.Outbound{}, err
	}
	if len(orders) == 0 {
		return msg("No active orders.", backToAdmin), nil
	}
	rows := make([][]transport.Button, 0, len(orders)+1)
	for _, o := range orders {
		label := fmt.Sprintf("#%s %s %s", o.ShortID(), statusLabels[o.Status], b.render.money(o.GrandTotal()))
		rows = append(rows, row(btn(label, OpenOrder{ID: o.ID})))
	}
	rows = append(rows, backToAdmin)
	return msg("📋 Active orders:", rows...), nil
}

// changeStatus applies an operator action. Off-graph requests are
// acknowledged without changing anything or notifying the buyer.
func (b *Bot) changeStatus(ctx context.Context, a ChangeStatus) (transport.Outbound, error) {
	o, changed, err := b.orders.Transition(ctx, a.OrderID, a.Action)
	if err != nil {
		return transport.Outbound{}, err
	}
	view := b.render.orderControls(o)
	if !changed {
		view.Text = fmt.Sprintf("ℹ️ Order #%s is already %s, nothing changed.\n\n%s",
			o.ShortID(), statusLabels[o.Status], view.Text)
		return view, nil
	}
	b.log.InfoContext(ctx, "order status changed", "order_id", o.ID, "status", string(o.Status))
	buyer, notice := o.BuyerID, b.render.buyerNotice(o)
	b.later(func(ctx context.Context) {
		b.notify.Buyer(ctx, buyer, notice)
	})
	return view, nil
}

func (b *Bot) showStats(ctx context.Context) (transport.Outbound, error) {
	st, err := b.orders.Stats(ctx)
	if err != nil {
		return transport.Outbound{}, err
	}
	text := fmt.Sprintf("📊 Orders: %d\nActive: %d\nDelivered: %d\nRevenue: %s\nOpen sessions: %d",
		st.Orders, st.Active, st.Delivered, b.render.money(st.Revenue), b.sessions.Len())
	return msg(text, backToAdmin), nil
}

func (b *Bot) broadcastInput(ctx context.Context, uid int64, in transport.Inbound) (transport.Outbound, error) {
	text := strings.TrimSpace(in.Text)
	if in.Kind != transport.KindText || text == "" {
		return msg("📣 Type the message for all buyers:", cancelRow), nil
	}
	buyers, err := b.orders.Buyers(ctx)
	if err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	announcement := msg("📣 "+text, backToMenu)
	b.later(func(ctx context.Context) {
		sent := b.notify.Broadcast(ctx, buyers, announcement)
		b.log.InfoContext(ctx, "broadcast sent", "operator_id", uid, "delivered", sent, "recipients", len(buyers))
	})
	return msg(fmt.Sprintf("📣 Sending to %d buyers.", len(buyers)), backToAdmin), nil
}
