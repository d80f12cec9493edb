package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/metrics"
	"github.com/ocrch/engine/internal/signature"
)

// attemptOrderWebhook sends one delivery attempt for o's paid-order
// webhook and records the outcome, spec §4.4's "record success or
// failure" step. A missing webhook_url or merchant secret is treated as
// a permanent local failure: there is nowhere to deliver to, but the
// retry bookkeeping still advances so the order doesn't wedge the sweep
// forever.
func (s *Sender) attemptOrderWebhook(ctx context.Context, o *entity.Order) {
	if o.WebhookExhausted() || o.WebhookSuccessAt != nil {
		return
	}
	merchant := s.config.Merchant()
	url := o.WebhookURL
	if url == "" {
		url = merchant.WebhookURL
	}
	if url == "" || merchant.Secret == "" {
		s.log.Warn("no webhook destination configured, skipping delivery", "order_id", o.OrderID)
		s.record(ctx, o.OrderID, false)
		return
	}

	payload := OrderPaidPayload{
		EventType:       "order_status_changed",
		OrderID:         o.OrderID.String(),
		MerchantOrderID: o.MerchantOrderID,
		Status:          string(o.Status),
		Amount:          o.Amount.String(),
		Timestamp:       s.clock().Unix(),
	}
	ok := s.postSigned(ctx, url, []byte(merchant.Secret), payload)
	metrics.WebhookAttempts.WithLabelValues("order_paid", outcomeLabel(ok)).Inc()
	s.record(ctx, o.OrderID, ok)
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (s *Sender) record(ctx context.Context, orderID uuid.UUID, succeeded bool) {
	if err := s.store.RecordWebhookAttempt(ctx, orderID, s.clock(), succeeded); err != nil {
		s.log.Error("recording webhook attempt failed", "order_id", orderID, "err", err)
	}
}

// deliverUnknownTransfer fires the fire-once notification spec §4.3/§4.4
// describe when a merchant has configured unknown_transfer_webhook_url.
// There is no persistence and no retry: a best-effort notice, not a
// financial event.
func (s *Sender) deliverUnknownTransfer(ctx context.Context, evt events.WebhookEvent) {
	merchant := s.config.Merchant()
	if merchant.UnknownTransferWebhook == "" {
		return
	}
	payload := UnknownTransferPayload{
		EventType:  "unknown_transfer_received",
		TransferID: evt.TransferID,
		Chain:      string(evt.Key.Chain),
		Token:      string(evt.Key.Token),
		Timestamp:  s.clock().Unix(),
	}
	ok := s.postSigned(ctx, merchant.UnknownTransferWebhook, []byte(merchant.Secret), payload)
	metrics.WebhookAttempts.WithLabelValues("unknown_transfer", outcomeLabel(ok)).Inc()
}

// postSigned marshals payload, signs it per spec §4.5's body-signed
// envelope, and POSTs it. Any 2xx response is success; anything else —
// including a transport error or timeout — is failure.
func (s *Sender) postSigned(ctx context.Context, url string, secret []byte, payload interface{}) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshaling webhook payload failed", "err", err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.log.Error("building webhook request failed", "err", err)
		return false
	}
	now := s.clock()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.SignatureHeader, signature.SignBody(secret, body, now))

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("webhook delivery failed", "url", url, "err", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.log.Warn("webhook endpoint rejected delivery", "url", url, "status", resp.StatusCode)
		return false
	}
	return true
}
