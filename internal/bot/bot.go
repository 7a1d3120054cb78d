// Package bot turns chat events into shop operations. It owns the
// per-user conversations (checkout, catalog curation, search) and routes
// every inbound event to the handler for the sender's current state.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"shopbot/internal/domain"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

// ImageSearcher suggests photo URLs for a product name. It never fails;
// problems are reported as an empty result.
type ImageSearcher interface {
	Search(ctx context.Context, query string, limit int) []string
}

type Options struct {
	StoreName       string
	Currency        string
	Operators       []int64
	MinOrder        decimal.Decimal
	DeliveryFee     decimal.Decimal
	ImageCandidates int
}

type Deps struct {
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Orders   *service.OrderService
	Sessions SessionStore
	Sender   transport.Sender
	// Images is optional.
	Images ImageSearcher
	Log    *slog.Logger
}

type Bot struct {
	mu sync.Mutex

	catalog  *service.CatalogService
	carts    *service.CartService
	orders   *service.OrderService
	sessions SessionStore
	notify   *Notifier
	images   ImageSearcher
	log      *slog.Logger

	opts      Options
	operators map[int64]struct{}
	render    renderer

	// outbox collects deliveries of the current event; they run after the
	// lock is released.
	outbox   []func(context.Context)
	inflight sync.WaitGroup
}

func New(deps Deps, opts Options) *Bot {
	ops := make(map[int64]struct{}, len(opts.Operators))
	for _, id := range opts.Operators {
		ops[id] = struct{}{}
	}
	if opts.ImageCandidates <= 0 {
		opts.ImageCandidates = 3
	}
	return &Bot{
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		orders:    deps.Orders,
		sessions:  deps.Sessions,
		notify:    NewNotifier(deps.Sender, opts.Operators, deps.Log),
		images:    deps.Images,
		log:       deps.Log,
		opts:      opts,
		operators: ops,
		render:    renderer{store: opts.StoreName, currency: opts.Currency},
	}
}

func (b *Bot) IsOperator(userID int64) bool {
	_, ok := b.operators[userID]
	return ok
}

// Handle processes one inbound event and returns the replies to its sender.
// Events are handled one at a time. Photo lookups and messages to other
// users happen outside that critical section, so a slow gateway never holds
// up other senders.
func (b *Bot) Handle(ctx context.Context, in transport.Inbound) []transport.Outbound {
	images := b.lookupImages(ctx, in)

	b.mu.Lock()
	out, err := b.dispatch(ctx, in, images)
	if err != nil {
		out = b.errorReply(ctx, in.SenderID, err)
	}
	jobs := b.outbox
	b.outbox = nil
	b.mu.Unlock()

	b.deliver(ctx, jobs)
	out.RecipientID = in.SenderID
	return []transport.Outbound{out}
}

// Wait blocks until every notification queued so far has been attempted.
func (b *Bot) Wait() {
	b.inflight.Wait()
}

// later queues a delivery for after the current event. Callers hold b.mu.
func (b *Bot) later(job func(ctx context.Context)) {
	b.outbox = append(b.outbox, job)
}

func (b *Bot) deliver(ctx context.Context, jobs []func(context.Context)) {
	if len(jobs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		for _, job := range jobs {
			job(ctx)
		}
	}()
}

func (b *Bot) dispatch(ctx context.Context, in transport.Inbound, images []string) (transport.Outbound, error) {
	uid := in.SenderID

	// pricing is an out-of-band operator channel, valid in any state
	if in.Kind == transport.KindText && b.IsOperator(uid) && IsPricingCommand(in.Text) {
		return b.applyPricing(ctx, in.Text)
	}

	if in.Kind == transport.KindAction {
		act, err := ParseAction(in.Action)
		if err != nil {
			b.log.DebugContext(ctx, "bad action", "sender_id", uid, "action", in.Action)
			return b.render.menu(b.IsOperator(uid)), nil
		}
		return b.onAction(ctx, uid, act)
	}

	if in.Kind == transport.KindText {
		switch strings.TrimSpace(in.Text) {
		case "/start", "/menu":
			b.sessions.Delete(uid)
			return b.render.menu(b.IsOperator(uid)), nil
		case "/admin":
			return b.onAction(ctx, uid, OpenAdmin{})
		}
	}

	sess, ok := b.sessions.Get(uid)
	if !ok {
		return b.render.menu(b.IsOperator(uid)), nil
	}
	switch sess.Flow {
	case FlowCheckout:
		return b.checkoutInput(ctx, uid, sess, in)
	case FlowNewProduct:
		return b.newProductInput(ctx, uid, sess, in, images)
	case FlowNewCategory:
		return b.newCategoryInput(ctx, uid, in)
	case FlowAttach:
		return msg("Please use the buttons to pick.", cancelRow), nil
	case FlowSearch:
		return b.searchInput(ctx, uid, in)
	case FlowQuantity:
		return b.quantityInput(ctx, uid, sess, in)
	case FlowBroadcast:
		return b.broadcastInput(ctx, uid, in)
	}
	b.sessions.Delete(uid)
	return b.render.menu(b.IsOperator(uid)), nil
}

func (b *Bot) onAction(ctx context.Context, uid int64, act Action) (transport.Outbound, error) {
	switch a := act.(type) {
	case OpenMenu:
		b.sessions.Delete(uid)
		return b.render.menu(b.IsOperator(uid)), nil
	case OpenCatalog:
		return b.showCatalog(ctx)
	case OpenCategory:
		return b.showCategory(ctx, a.ID)
	case OpenProduct:
		return b.showProduct(ctx, a.ID)
	case OpenCart:
		return b.showCart(ctx, uid)
	case ClearCart:
		if err := b.carts.Clear(ctx, uid); err != nil {
			return transport.Outbound{}, err
		}
		return b.showCart(ctx, uid)
	case AddItem:
		if _, err := b.carts.Add(ctx, uid, a.ProductID, a.Unit); err != nil {
			return transport.Outbound{}, err
		}
		return b.showCart(ctx, uid)
	case StepItem:
		if _, err := b.carts.Adjust(ctx, uid, a.ProductID, a.Unit, a.Dir); err != nil {
			return transport.Outbound{}, err
		}
		return b.showCart(ctx, uid)
	case RemoveItem:
		if err := b.carts.Remove(ctx, uid, a.ProductID, a.Unit); err != nil {
			return transport.Outbound{}, err
		}
		return b.showCart(ctx, uid)
	case EnterQuantity:
		return b.beginQuantity(ctx, uid, a)
	case MyOrders:
		return b.showMyOrders(ctx, uid)
	case BeginSearch:
		b.sessions.Put(uid, Session{Flow: FlowSearch, Step: StepQuery})
		return msg("🔍 Type a product name:", cancelRow), nil

	case BeginCheckout:
		return b.beginCheckout(ctx, uid)
	case Skip:
		return b.onSkip(ctx, uid)
	case Confirm:
		return b.confirmCheckout(ctx, uid)
	case Cancel:
		b.sessions.Delete(uid)
		return msg("Cancelled.", backToMenu), nil
	}

	if !b.IsOperator(uid) {
		return msg("This action is for operators only.", backToMenu), nil
	}
	switch a := act.(type) {
	case OpenAdmin:
		b.sessions.Delete(uid)
		return b.render.admin(), nil
	case BeginNewProduct:
		b.sessions.Put(uid, Session{Flow: FlowNewProduct, Step: StepPhoto})
		return msg("📷 Send a product photo, or skip.", skipRow), nil
	case PickImage:
		return b.pickImage(ctx, uid, a)
	case BeginNewCategory:
		b.sessions.Put(uid, Session{Flow: FlowNewCategory, Step: StepCategoryName})
		return msg("Type the category name:", cancelRow), nil
	case BeginAttach:
		return b.productPicker(ctx, uid)
	case PickProduct:
		return b.pickProduct(ctx, uid, a.ID)
	case PickCategory:
		return b.pickCategory(ctx, uid, a.ID)
	case ManageCatalog:
		return b.manageCatalog(ctx)
	case ToggleProduct:
		if _, err := b.catalog.ToggleProduct(ctx, a.ID); err != nil {
			return transport.Outbound{}, err
		}
		return b.manageCatalog(ctx)
	case ToggleCategory:
		if _, err := b.catalog.ToggleCategory(ctx, a.ID); err != nil {
			return transport.Outbound{}, err
		}
		return b.manageCatalog(ctx)
	case BeginBroadcast:
		b.sessions.Put(uid, Session{Flow: FlowBroadcast, Step: StepBroadcastText})
		return msg("📣 Type the message for all buyers:", cancelRow), nil
	case ShowStats:
		return b.showStats(ctx)
	case ListOrders:
		return b.listOrders(ctx)
	case OpenOrder:
		o, err := b.orders.Get(ctx, a.ID)
		if err != nil {
			return transport.Outbound{}, err
		}
		return b.render.orderControls(o), nil
	case ChangeStatus:
		return b.changeStatus(ctx, a)
	}
	return b.render.menu(true), nil
}

// errorReply maps an error to the message shown to the sender. Storage
// failures keep the session so the user can retry.
func (b *Bot) errorReply(ctx context.Context, uid int64, err error) transport.Outbound {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return msg("⚠️ "+domain.Reason(err), backToMenu)
	case errors.Is(err, domain.ErrEmptyCart):
		b.sessions.Delete(uid)
		return msg("🧺 Your cart is empty.", row(btn("🛒 Catalog", OpenCatalog{})), backToMenu)
	case errors.Is(err, domain.ErrNotFound):
		b.sessions.Delete(uid)
		return msg("This item is no longer available.", backToMenu)
	default:
		b.log.ErrorContext(ctx, "handle event", "sender_id", uid, "err", err)
		return msg("Something went wrong, please try again.", backToMenu)
	}
}
