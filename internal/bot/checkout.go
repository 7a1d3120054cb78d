package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"shopbot/internal/domain"
	"shopbot/internal/transport"
)

const minPhoneDigits = 7

var skipWords = map[string]struct{}{
	"skip": {}, "-": {}, "none": {}, "no": {},
}

func isSkip(text string) bool {
	_, ok := skipWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

var (
	promptContact  = msg("📞 Share your contact or type your phone number:", cancelRow)
	promptLocation = msg("📍 Share your location, or skip.", skipRow)
	promptAddress  = msg("🏠 Type the delivery address (street, house, flat), or skip.", skipRow)
	promptNote     = msg("📝 Any note for the courier? Type it, or skip.", skipRow)
)

// beginCheckout always starts from the contact step; fields collected by an
// earlier attempt are dropped.
func (b *Bot) beginCheckout(ctx context.Context, uid int64) (transport.Outbound, error) {
	view, err := b.carts.View(ctx, uid)
	if err != nil {
		return transport.Outbound{}, err
	}
	if view.Empty() {
		b.sessions.Delete(uid)
		return transport.Outbound{}, domain.ErrEmptyCart
	}
	b.sessions.Put(uid, Session{Flow: FlowCheckout, Step: StepContact})
	return promptContact, nil
}

func (b *Bot) checkoutInput(ctx context.Context, uid int64, sess Session, in transport.Inbound) (transport.Outbound, error) {
	switch sess.Step {
	case StepContact:
		phone := in.Phone
		if in.Kind == transport.KindText {
			phone = in.Text
		}
		phone, ok := normalizePhone(phone)
		if !ok {
			return msg(fmt.Sprintf("⚠️ A phone number needs at least %d digits.", minPhoneDigits), cancelRow), nil
		}
		sess.Phone = phone
		sess.Step = StepLocation
		b.sessions.Put(uid, sess)
		return promptLocation, nil

	case StepLocation:
		switch {
		case in.Kind == transport.KindLocation && in.Location != nil:
			loc := *in.Location
			sess.Location = &loc
		case in.Kind == transport.KindText && isSkip(in.Text):
			sess.Location = nil
		default:
			return promptLocation, nil
		}
		sess.Step = StepAddress
		b.sessions.Put(uid, sess)
		return promptAddress, nil

	case StepAddress:
		if in.Kind != transport.KindText || strings.TrimSpace(in.Text) == "" {
			return promptAddress, nil
		}
		sess.Address = ""
		if !isSkip(in.Text) {
			sess.Address = strings.TrimSpace(in.Text)
		}
		sess.Step = StepNote
		b.sessions.Put(uid, sess)
		return promptNote, nil

	case StepNote:
		if in.Kind != transport.KindText || strings.TrimSpace(in.Text) == "" {
			return promptNote, nil
		}
		sess.Note = ""
		if !isSkip(in.Text) {
			sess.Note = strings.TrimSpace(in.Text)
		}
		return b.toConfirm(ctx, uid, sess)

	case StepConfirm:
		return msg("Please press Confirm or Cancel.", row(btn("✅ Confirm", Confirm{}), btn("✖️ Cancel", Cancel{}))), nil
	}
	b.sessions.Delete(uid)
	return b.render.menu(b.IsOperator(uid)), nil
}

func (b *Bot) onSkip(ctx context.Context, uid int64) (transport.Outbound, error) {
	sess, ok := b.sessions.Get(uid)
	if !ok {
		return b.render.menu(b.IsOperator(uid)), nil
	}
	skip := transport.Inbound{SenderID: uid, Kind: transport.KindText, Text: "skip"}
	switch {
	case sess.Flow == FlowCheckout && sess.Step != StepContact && sess.Step != StepConfirm:
		return b.checkoutInput(ctx, uid, sess, skip)
	case sess.Flow == FlowNewProduct && sess.Step == StepPhoto:
		return b.newProductInput(ctx, uid, sess, skip, nil)
	}
	return msg("This step cannot be skipped.", cancelRow), nil
}

// toConfirm runs the minimum order check and shows the summary. A cart below
// the minimum ends the checkout and keeps the cart.
func (b *Bot) toConfirm(ctx context.Context, uid int64, sess Session) (transport.Outbound, error) {
	view, err := b.carts.View(ctx, uid)
	if err != nil {
		return transport.Outbound{}, err
	}
	if view.Empty() {
		return transport.Outbound{}, domain.ErrEmptyCart
	}
	if view.Total.LessThan(b.opts.MinOrder) {
		b.sessions.Delete(uid)
		text := fmt.Sprintf("⚠️ The minimum order is %s, your cart total is %s. Please add more items.",
			b.render.money(b.opts.MinOrder), b.render.money(view.Total))
		return msg(text, row(btn("🛒 Catalog", OpenCatalog{}), btn("🧺 Cart", OpenCart{}))), nil
	}
	sess.Step = StepConfirm
	sess.Quote = quote(view)
	b.sessions.Put(uid, sess)
	return b.render.checkoutSummary(view, sess, b.opts.DeliveryFee), nil
}

// quote identifies the lines and prices of a cart view.
func quote(view domain.CartView) string {
	var sb strings.Builder
	for _, l := range view.Lines {
		fmt.Fprintf(&sb, "%d:%s:%s@%s;", l.ProductID, l.Unit, l.Quantity, l.Price)
	}
	return sb.String()
}

// confirmCheckout places the order only for the cart the buyer saw in the
// summary. A cart edited or re-priced since then is summarized again.
func (b *Bot) confirmCheckout(ctx context.Context, uid int64) (transport.Outbound, error) {
	sess, ok := b.sessions.Get(uid)
	if !ok || sess.Flow != FlowCheckout || sess.Step != StepConfirm {
		return msg("There is nothing to confirm.", backToMenu), nil
	}
	view, err := b.carts.View(ctx, uid)
	if err != nil {
		return transport.Outbound{}, err
	}
	if view.Empty() {
		return transport.Outbound{}, domain.ErrEmptyCart
	}
	if quote(view) != sess.Quote {
		out, err := b.toConfirm(ctx, uid, sess)
		if err != nil {
			return transport.Outbound{}, err
		}
		out.Text = "🧺 Your cart has changed since the summary.\n\n" + out.Text
		return out, nil
	}

	o, err := b.orders.CreateFromCart(ctx, domain.CheckoutDetails{
		BuyerID:  uid,
		Phone:    sess.Phone,
		Address:  sess.Address,
		Location: sess.Location,
		Note:     sess.Note,
	}, b.opts.DeliveryFee, b.opts.MinOrder)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b.sessions.Delete(uid)
		return msg("Some items in your cart are no longer available. Please review your cart.",
			row(btn("🧺 Cart", OpenCart{})), backToMenu), nil
	case errors.Is(err, domain.ErrBelowMinimum):
		b.sessions.Delete(uid)
		text := fmt.Sprintf("⚠️ The minimum order is %s. Please add more items.", b.render.money(b.opts.MinOrder))
		return msg(text, row(btn("🛒 Catalog", OpenCatalog{}), btn("🧺 Cart", OpenCart{}))), nil
	case err != nil:
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	b.log.InfoContext(ctx, "order placed", "order_id", o.ID, "buyer_id", uid, "total", o.GrandTotal().String())

	alert := b.render.orderControls(o)
	alert.Text = "🆕 New order\n\n" + alert.Text
	b.later(func(ctx context.Context) {
		b.notify.Operators(ctx, alert)
	})

	text := fmt.Sprintf("✅ Thank you! Your order #%s is placed.\nTotal: %s\nWe will contact you soon.",
		o.ShortID(), b.render.money(o.GrandTotal()))
	return msg(text, backToMenu), nil
}

// normalizePhone keeps a leading plus and the digits.
func normalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	var sb strings.Builder
	digits := 0
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			sb.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String(), digits >= minPhoneDigits
}
