// Package webhook implements spec §4.4's WebhookSender: an online path
// that fires the moment the Matcher publishes a WebhookEvent, and an
// offline retry loop that sweeps order_records for deliveries still
// owed a retry. Every outbound payload is signed the way
// internal/signature describes (spec §4.5).
package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/store"
)

// deliveryTimeout bounds one HTTP POST attempt (spec §4.4).
const deliveryTimeout = 30 * time.Second

// retryLoopInterval is how often the offline retry loop wakes to sweep
// order_records for a due retry (spec §4.4).
const retryLoopInterval = 10 * time.Second

// retrySweepLimit is the "at most 10 orders per tick" cap spec §4.4 sets
// on the offline retry loop, so one slow merchant endpoint can't starve
// every other order's retry.
const retrySweepLimit = 10

// OrderPaidPayload is the body an order-status webhook delivers: an
// event_type tag, the order fields, and a UNIX timestamp (spec §4.4).
type OrderPaidPayload struct {
	EventType       string `json:"event_type"`
	OrderID         string `json:"order_id"`
	MerchantOrderID string `json:"merchant_order_id"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Timestamp       int64  `json:"timestamp"`
}

// UnknownTransferPayload is the fire-once body an unrecognized confirmed
// transfer delivers, when a merchant has configured one (spec §4.3,
// §4.4).
type UnknownTransferPayload struct {
	EventType  string `json:"event_type"`
	TransferID int64  `json:"transfer_id"`
	Chain      string `json:"chain"`
	Token      string `json:"token"`
	Timestamp  int64  `json:"timestamp"`
}

// Sender is the WebhookSender of spec §4.4.
type Sender struct {
	store  *store.Store
	config *config.SharedConfig
	client *http.Client
	log    logging.Logger
	clock  func() time.Time
}

// New constructs a Sender over st, reading delivery URLs/secret from cfg.
func New(st *store.Store, cfg *config.SharedConfig) *Sender {
	return &Sender{
		store:  st,
		config: cfg,
		client: &http.Client{Timeout: deliveryTimeout},
		log:    logging.WithComponent("webhook"),
		clock:  time.Now,
	}
}

// Run drains events from the Matcher's mailbox (online path) and runs
// the offline retry sweep on a ticker, until ctx is cancelled — the same
// single-goroutine-per-stage shape every other pipeline stage in this
// project uses.
func (s *Sender) Run(ctx context.Context, evts <-chan events.WebhookEvent) error {
	ticker := time.NewTicker(retryLoopInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-evts:
			s.handleEvent(ctx, evt)
		case <-ticker.C:
			s.sweepRetries(ctx)
		}
	}
}

func (s *Sender) handleEvent(ctx context.Context, evt events.WebhookEvent) {
	switch evt.Kind {
	case events.OrderStatusChanged:
		// The online path re-reads the order rather than trusting the
		// event for its payload, so it always sends the freshest state.
		order, err := s.store.GetOrder(ctx, evt.OrderID)
		if err != nil {
			s.log.Error("loading order for webhook delivery failed", "order_id", evt.OrderID, "err", err)
			return
		}
		s.attemptOrderWebhook(ctx, order)
	case events.UnknownTransferReceived:
		s.deliverUnknownTransfer(ctx, evt)
	}
}

// sweepRetries is the offline retry loop spec §4.4 describes: wake every
// 10s, pull up to retrySweepLimit candidate orders, and skip any whose
// backoff deadline hasn't elapsed yet (the store's own query is a coarse
// pre-filter, not the backoff check itself).
func (s *Sender) sweepRetries(ctx context.Context) {
	now := s.clock()
	orders, err := s.store.OrdersPendingWebhook(ctx, now, retrySweepLimit)
	if err != nil {
		s.log.Error("listing orders pending webhook failed", "err", err)
		return
	}
	for _, o := range orders {
		if !nextAttemptDue(o, now) {
			continue
		}
		s.attemptOrderWebhook(ctx, o)
	}
}

// nextAttemptDue applies spec §4.4's backoff formula:
// min(2^retry_count, 2^11) seconds since the last attempt.
func nextAttemptDue(o *entity.Order, now time.Time) bool {
	if o.WebhookLastTriedAt == nil {
		return true
	}
	return now.After(o.WebhookLastTriedAt.Add(backoff(o.WebhookRetryCount)))
}

func backoff(retryCount int) time.Duration {
	shift := retryCount
	if shift > 11 {
		shift = 11
	}
	return time.Duration(1<<uint(shift)) * time.Second
}
