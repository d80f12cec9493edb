// Package matcher implements spec §4.3's OrderBookWatcher: given a
// MatchTick, it joins unmatched confirmed transfers to pending
// deposits for that key and commits every resulting state transition
// in one database transaction.
package matcher

import (
	"context"
	"sort"
	"time"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/metrics"
	"github.com/ocrch/engine/internal/store"
)

// unknownTransferAge is the "older than 1h" threshold spec §4.3's
// unknown-transfer sweep uses.
const unknownTransferAge = time.Hour

// Watcher is the Matcher of spec §4.3.
type Watcher struct {
	store         *store.Store
	log           logging.Logger
	clock         func() time.Time
	webhookEvents chan events.WebhookEvent
	orderStatus   *events.Broadcast[OrderStatusUpdate]
}

// OrderStatusUpdate is published to WebSocket subscribers whenever an
// order transitions, the order-status broadcast spec §2's diagram
// fans out alongside the webhook event.
type OrderStatusUpdate struct {
	Order  entity.Order
	Status entity.OrderStatus
}

// NewWatcher constructs a Watcher over st.
func NewWatcher(st *store.Store) *Watcher {
	return &Watcher{
		store:         st,
		log:           logging.WithComponent("matcher"),
		clock:         time.Now,
		webhookEvents: make(chan events.WebhookEvent, events.MailboxCapacity),
		orderStatus:   events.NewBroadcast[OrderStatusUpdate](events.OrderStatusBroadcastCapacity),
	}
}

// WebhookEvents returns the downstream mailbox the WebhookSender reads.
func (w *Watcher) WebhookEvents() <-chan events.WebhookEvent { return w.webhookEvents }

// SubscribeOrderStatus registers a WebSocket-hub-style listener for
// order transitions.
func (w *Watcher) SubscribeOrderStatus() (<-chan OrderStatusUpdate, func()) {
	return w.orderStatus.Subscribe()
}

// Run drains MatchTick events from ticks until ctx is cancelled. Spec
// §5: "Matcher sees MatchTicks in arrival order" — a single consumer
// goroutine over one channel gives that for free.
func (w *Watcher) Run(ctx context.Context, ticks <-chan events.MatchTick) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case tick := <-ticks:
			if err := w.processTick(ctx, tick); err != nil {
				w.log.Error("processing match tick failed", "chain", tick.Key.Chain, "token", tick.Key.Token, "err", err)
			}
		}
	}
}

func (w *Watcher) processTick(ctx context.Context, tick events.MatchTick) error {
	family := tick.Key.Chain.Family()

	deposits, err := w.store.PendingDepositsForKey(ctx, tick.Key)
	if err != nil {
		return err
	}
	transfers, err := w.store.WaitingTransfers(ctx, tick.Key)
	if err != nil {
		return err
	}

	matches := joinByKey(deposits, transfers)
	if len(matches) > 0 {
		if err := w.commit(ctx, family, matches); err != nil {
			return err
		}
		metrics.MatchesCommitted.WithLabelValues(string(tick.Key.Chain), string(tick.Key.Token)).Add(float64(len(matches)))
	}

	return w.sweepUnknownTransfers(ctx, family, tick.Key)
}

// pair is one matched (deposit, transfer) pair, annotated with the
// order it pays.
type pair struct {
	deposit  *entity.PendingDeposit
	transfer *entity.Transfer
}

// matchKeyLess orders two MatchKeys first by value then by address, the
// sort spec §4.3 requires before the merge-walk.
func matchKeyLess(a, b entity.MatchKey) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.Address < b.Address
}

// joinByKey implements spec §4.3's merge-join exactly: build keyed
// lists, sort both by (value, lowercased address), then merge-walk.
// The per-wallet-per-amount uniqueness invariant (enforced by the
// store's partial unique index, see migrations/0001_init.up.sql) means
// at most one deposit ever shares a key, so equal keys always emit
// exactly one match; a transfer with no equal deposit key stays
// unmatched and a deposit with no equal transfer key stays pending.
func joinByKey(deposits []*entity.PendingDeposit, transfers []*entity.Transfer) []pair {
	sort.Slice(deposits, func(i, j int) bool { return matchKeyLess(deposits[i].MatchKey(), deposits[j].MatchKey()) })
	sort.Slice(transfers, func(i, j int) bool { return matchKeyLess(transfers[i].MatchKey(), transfers[j].MatchKey()) })

	var matches []pair
	i, j := 0, 0
	for i < len(deposits) && j < len(transfers) {
		dk, tk := deposits[i].MatchKey(), transfers[j].MatchKey()
		switch {
		case matchKeyLess(dk, tk):
			i++ // unique deposit key: stays pending
		case matchKeyLess(tk, dk):
			j++ // unique transfer key: stays unmatched
		default:
			matches = append(matches, pair{deposit: deposits[i], transfer: transfers[j]})
			i++
			j++
		}
	}
	return matches
}

func (w *Watcher) commit(ctx context.Context, family entity.ChainFamily, matches []pair) error {
	commits := make([]store.MatchCommit, len(matches))
	for i, m := range matches {
		commits[i] = store.MatchCommit{
			TransferID: m.transfer.ID,
			DepositID:  m.deposit.ID,
			OrderID:    m.deposit.OrderID,
		}
	}
	if err := w.store.CommitMatches(ctx, family, commits); err != nil {
		return err
	}
	for _, m := range matches {
		w.publish(events.WebhookEvent{Kind: events.OrderStatusChanged, OrderID: m.deposit.OrderID})
		w.orderStatus.Publish(OrderStatusUpdate{
			Order:  entity.Order{OrderID: m.deposit.OrderID, Status: entity.OrderPaid},
			Status: entity.OrderPaid,
		})
	}
	return nil
}

// sweepUnknownTransfers implements spec §4.3's unknown-transfer sweep:
// confirmed transfers that have sat in waiting_for_match for over an
// hour with no matching deposit are written off.
func (w *Watcher) sweepUnknownTransfers(ctx context.Context, family entity.ChainFamily, key entity.PoolKey) error {
	cutoff := w.clock().Add(-unknownTransferAge)
	unknown, err := w.store.MarkUnknownTransfers(ctx, family, key, cutoff)
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		metrics.UnknownTransfers.WithLabelValues(string(key.Chain), string(key.Token)).Add(float64(len(unknown)))
	}
	for _, t := range unknown {
		w.publish(events.WebhookEvent{Kind: events.UnknownTransferReceived, TransferID: t.ID, Key: key})
	}
	return nil
}

func (w *Watcher) publish(evt events.WebhookEvent) {
	select {
	case w.webhookEvents <- evt:
	default:
		w.log.Warn("webhook event mailbox full, dropping event", "kind", evt.Kind)
	}
}
