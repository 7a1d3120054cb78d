package bot

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"shopbot/internal/transport"
)

const maxParallelSends = 8

// Notifier delivers messages to users other than the current sender.
// Delivery is best effort: failures are logged and never returned.
type Notifier struct {
	sender    transport.Sender
	operators []int64
	log       *slog.Logger
}

func NewNotifier(sender transport.Sender, operators []int64, log *slog.Logger) *Notifier {
	return &Notifier{sender: sender, operators: operators, log: log}
}

// Operators sends m to every operator and returns how many deliveries
// succeeded.
func (n *Notifier) Operators(ctx context.Context, m transport.Outbound) int {
	return n.fanOut(ctx, n.operators, m)
}

// Buyer sends exactly one message to the buyer.
func (n *Notifier) Buyer(ctx context.Context, buyerID int64, m transport.Outbound) bool {
	m.RecipientID = buyerID
	if err := n.sender.Send(ctx, m); err != nil {
		n.log.WarnContext(ctx, "buyer notification failed", "recipient_id", buyerID, "err", err)
		return false
	}
	return true
}

func (n *Notifier) Broadcast(ctx context.Context, recipients []int64, m transport.Outbound) int {
	return n.fanOut(ctx, recipients, m)
}

func (n *Notifier) fanOut(ctx context.Context, recipients []int64, m transport.Outbound) int {
	var (
		g         errgroup.Group
		delivered atomic.Int64
	)
	g.SetLimit(maxParallelSends)
	for _, id := range recipients {
		out := m
		out.RecipientID = id
		g.Go(func() error {
			if err := n.sender.Send(ctx, out); err != nil {
				n.log.WarnContext(ctx, "notification failed", "recipient_id", out.RecipientID, "err", err)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(delivered.Load())
}
