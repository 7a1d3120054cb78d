package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopbot/internal/domain"
	"shopbot/internal/transport"
)

var promptMeta = msg("✏️ Send the name and description as `name | description`.", cancelRow)

// lookupImages searches photo candidates for the product named in a meta
// step message. It runs before the event takes the bot lock and returns nil
// for every other event.
func (b *Bot) lookupImages(ctx context.Context, in transport.Inbound) []string {
	if b.images == nil || in.Kind != transport.KindText || IsPricingCommand(in.Text) {
		return nil
	}
	sess, ok := b.sessions.Get(in.SenderID)
	if !ok || sess.Flow != FlowNewProduct || sess.Step != StepMeta || sess.PhotoRef != "" {
		return nil
	}
	name, _, err := parseMeta(in.Text)
	if err != nil {
		return nil
	}
	return b.images.Search(ctx, name, b.opts.ImageCandidates)
}

// newProductInput advances the new product flow. images holds the photo
// candidates found by lookupImages for this event.
func (b *Bot) newProductInput(ctx context.Context, uid int64, sess Session, in transport.Inbound, images []string) (transport.Outbound, error) {
	switch sess.Step {
	case StepPhoto:
		switch {
		case in.Kind == transport.KindMedia && in.MediaRef != "":
			sess.PhotoRef = in.MediaRef
		case in.Kind == transport.KindText && isSkip(in.Text):
			sess.PhotoRef = ""
		default:
			return msg("📷 Send a photo, or skip.", skipRow), nil
		}
		sess.Step = StepMeta
		b.sessions.Put(uid, sess)
		return promptMeta, nil

	case StepMeta:
		if in.Kind != transport.KindText {
			return promptMeta, nil
		}
		name, desc, err := parseMeta(in.Text)
		if err != nil {
			return msg("⚠️ "+domain.Reason(err), cancelRow), nil
		}
		sess.Name, sess.Description = name, desc
		if sess.PhotoRef != "" {
			return b.finishProduct(ctx, uid, sess)
		}
		sess.Candidates = images
		if len(sess.Candidates) == 0 {
			return b.finishProduct(ctx, uid, sess)
		}
		sess.Step = StepImageChoice
		b.sessions.Put(uid, sess)
		return b.imageChoice(sess), nil

	case StepImageChoice:
		return b.imageChoice(sess), nil
	}
	b.sessions.Delete(uid)
	return b.render.admin(), nil
}

func (b *Bot) imageChoice(sess Session) transport.Outbound {
	var sb strings.Builder
	sb.WriteString("🖼 Pick a photo for " + sess.Name + ":\n")
	choices := make([]transport.Button, 0, len(sess.Candidates))
	for i, u := range sess.Candidates {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, u)
		choices = append(choices, btn(fmt.Sprintf("%d", i+1), PickImage{Index: i}))
	}
	out := msg(sb.String(), choices, row(btn("No photo", PickImage{Index: -1})), cancelRow)
	out.Media = sess.Candidates[0]
	return out
}

func (b *Bot) pickImage(ctx context.Context, uid int64, a PickImage) (transport.Outbound, error) {
	sess, ok := b.sessions.Get(uid)
	if !ok || sess.Flow != FlowNewProduct || sess.Step != StepImageChoice {
		return msg("There is no photo to pick right now.", backToAdmin), nil
	}
	switch {
	case a.Index < 0:
		sess.PhotoRef = ""
	case a.Index < len(sess.Candidates):
		sess.PhotoRef = sess.Candidates[a.Index]
	default:
		return b.imageChoice(sess), nil
	}
	return b.finishProduct(ctx, uid, sess)
}

func (b *Bot) finishProduct(ctx context.Context, uid int64, sess Session) (transport.Outbound, error) {
	p, err := b.catalog.CreateProduct(ctx, sess.Name, sess.Description, sess.PhotoRef)
	if err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	b.log.InfoContext(ctx, "product created", "product_id", p.ID, "operator_id", uid)
	text := fmt.Sprintf("✅ Product #%d %s created.\nSet its price with:\n%d | KG | price | step | min | max",
		p.ID, p.Name, p.ID)
	return msg(text, row(btn("🔗 Attach to category", BeginAttach{})), backToAdmin), nil
}

func (b *Bot) newCategoryInput(ctx context.Context, uid int64, in transport.Inbound) (transport.Outbound, error) {
	if in.Kind != transport.KindText {
		return msg("Type the category name:", cancelRow), nil
	}
	c, err := b.catalog.CreateCategory(ctx, in.Text)
	if errors.Is(err, domain.ErrValidation) {
		return msg("⚠️ "+domain.Reason(err), cancelRow), nil
	}
	if err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	return msg(fmt.Sprintf("✅ Category %s created.", c.Name), backToAdmin), nil
}

// productPicker is the first step of attaching a product to a category.
func (b *Bot) productPicker(ctx context.Context, uid int64) (transport.Outbound, error) {
	products, err := b.catalog.ListProducts(ctx)
	if err != nil {
		return transport.Outbound{}, err
	}
	if len(products) == 0 {
		b.sessions.Delete(uid)
		return msg("There are no products yet.", backToAdmin), nil
	}
	b.sessions.Put(uid, Session{Flow: FlowAttach, Step: StepPickProduct})
	rows := make([][]transport.Button, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, row(btn(fmt.Sprintf("#%d %s", p.ID, p.Name), PickProduct{ID: p.ID})))
	}
	rows = append(rows, cancelRow)
	return msg("🔗 Pick a product:", rows...), nil
}

func (b *Bot) pickProduct(ctx context.Context, uid int64, productID int64) (transport.Outbound, error) {
	sess, ok := b.sessions.Get(uid)
	if !ok || sess.Flow != FlowAttach {
		sess = Session{Flow: FlowAttach}
	}
	p, err := b.catalog.GetProduct(ctx, productID)
	if err != nil {
		return transport.Outbound{}, err
	}
	cats, err := b.catalog.ListCategories(ctx, false)
	if err != nil {
		return transport.Outbound{}, err
	}
	if len(cats) == 0 {
		b.sessions.Delete(uid)
		return msg("There are no categories yet.", row(btn("➕ Category", BeginNewCategory{})), backToAdmin), nil
	}
	sess.Step = StepPickCategory
	sess.ProductID = p.ID
	b.sessions.Put(uid, sess)

	rows := make([][]transport.Button, 0, len(cats)+1)
	for _, c := range cats {
		rows = append(rows, row(btn(c.Name, PickCategory{ID: c.ID})))
	}
	rows = append(rows, cancelRow)
	return msg("Pick a category for "+p.Name+":", rows...), nil
}

func (b *Bot) pickCategory(ctx context.Context, uid int64, categoryID int64) (transport.Outbound, error) {
	sess, ok := b.sessions.Get(uid)
	if !ok || sess.Flow != FlowAttach || sess.Step != StepPickCategory || sess.ProductID == 0 {
		err := domain.Sequencef("pick a product first")
		out, perr := b.productPicker(ctx, uid)
		if perr != nil {
			return transport.Outbound{}, perr
		}
		out.Text = "⚠️ " + domain.Reason(err) + "\n\n" + out.Text
		return out, nil
	}
	if err := b.catalog.AttachProduct(ctx, sess.ProductID, categoryID); err != nil {
		return transport.Outbound{}, err
	}
	b.sessions.Delete(uid)
	p, err := b.catalog.GetProduct(ctx, sess.ProductID)
	if err != nil {
		return transport.Outbound{}, err
	}
	c, err := b.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return transport.Outbound{}, err
	}
	return msg(fmt.Sprintf("✅ %s is now in %s.", p.Name, c.Name),
		row(btn("🔗 Attach another", BeginAttach{})), backToAdmin), nil
}

// applyPricing handles the pipe-delimited pricing command. It never touches
// the operator's session.
func (b *Bot) applyPricing(ctx context.Context, text string) (transport.Outbound, error) {
	cmd, err := ParsePricingCommand(text)
	if err != nil {
		return msg("⚠️ "+domain.Reason(err)+"\nFormat: "+PricingFormat), nil
	}
	p, err := b.catalog.GetProduct(ctx, cmd.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		return msg(fmt.Sprintf("⚠️ Product #%d not found.", cmd.ProductID)), nil
	}
	if err != nil {
		return transport.Outbound{}, err
	}
	v, err := b.catalog.UpsertVariant(ctx, cmd.Variant())
	if err != nil {
		return transport.Outbound{}, err
	}
	return msg(fmt.Sprintf("✅ %s: %s", p.Name, b.render.variantLine(*v))), nil
}

func (b *Bot) manageCatalog(ctx context.Context) (transport.Outbound, error) {
	cats, err := b.catalog.ListCategories(ctx, false)
	if err != nil {
		return transport.Outbound{}, err
	}
	products, err := b.catalog.ListProducts(ctx)
	if err != nil {
		return transport.Outbound{}, err
	}
	rows := make([][]transport.Button, 0, len(cats)+len(products)+1)
	for _, c := range cats {
		rows = append(rows, row(btn(onOff(c.Active)+" 🗂 "+c.Name, ToggleCategory{ID: c.ID})))
	}
	for _, p := range products {
		rows = append(rows, row(btn(fmt.Sprintf("%s #%d %s", onOff(p.Active), p.ID, p.Name), ToggleProduct{ID: p.ID})))
	}
	rows = append(rows, backToAdmin)
	return msg("🗂 Tap to show or hide:", rows...), nil
}

func onOff(active bool) string {
	if active {
		return "🟢"
	}
	return "⚪️"
}
