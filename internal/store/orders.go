package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/entity"
)

type orderRow struct {
	OrderID            uuid.UUID  `db:"order_id"`
	MerchantOrderID    string     `db:"merchant_order_id"`
	Amount             string     `db:"amount"`
	Status             string     `db:"status"`
	CreatedAt          time.Time  `db:"created_at"`
	WebhookURL         string     `db:"webhook_url"`
	WebhookRetryCount  int        `db:"webhook_retry_count"`
	WebhookLastTriedAt *time.Time `db:"webhook_last_tried_at"`
	WebhookSuccessAt   *time.Time `db:"webhook_success_at"`
}

func (r orderRow) toEntity() (*entity.Order, error) {
	amount, err := parseDecimal(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("parsing order amount: %w", err)
	}
	return &entity.Order{
		OrderID:            r.OrderID,
		MerchantOrderID:    r.MerchantOrderID,
		Amount:             amount,
		Status:             entity.OrderStatus(r.Status),
		CreatedAt:          r.CreatedAt,
		WebhookURL:         r.WebhookURL,
		WebhookRetryCount:  r.WebhookRetryCount,
		WebhookLastTriedAt: r.WebhookLastTriedAt,
		WebhookSuccessAt:   r.WebhookSuccessAt,
	}, nil
}

// CreateOrder inserts a new order, spec §4.1's "merchant creates an
// order" entrypoint. o.OrderID must already be set (entity.NewOrderID).
func (s *Store) CreateOrder(ctx context.Context, o *entity.Order) error {
	const q = `
		INSERT INTO order_records (order_id, merchant_order_id, amount, status, created_at, webhook_url)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, q, o.OrderID, o.MerchantOrderID, o.Amount.String(), o.Status, o.CreatedAt, o.WebhookURL)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

// GetOrder fetches one order by id, returning apierr.ErrOrderNotFound
// when absent.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var row orderRow
	err := s.DB.GetContext(ctx, &row, `SELECT * FROM order_records WHERE order_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", id, err)
	}
	return row.toEntity()
}

// GetOrdersByIDs fetches every order in ids, in no particular order,
// via a single ANY(...) query (spec §4.3's "commit" step batches order
// lookups this way rather than one query per matched deposit).
func (s *Store) GetOrdersByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []orderRow
	err := s.DB.SelectContext(ctx, &rows, `SELECT * FROM order_records WHERE order_id = ANY($1)`, uuidArray(ids))
	if err != nil {
		return nil, fmt.Errorf("fetching orders by id: %w", err)
	}
	out := make([]*entity.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// MarkOrdersPaid transitions every order in ids from pending to paid in
// one statement. CommitMatches does not call it: its own second commit
// statement performs the same orders update inside the match
// transaction.
func (s *Store) MarkOrdersPaid(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE order_records SET status = 'paid' WHERE order_id = ANY($1) AND status = 'pending'`
	_, err := s.DB.ExecContext(ctx, q, uuidArray(ids))
	if err != nil {
		return fmt.Errorf("marking orders paid: %w", err)
	}
	return nil
}

// CancelOrder transitions a pending order to cancelled, the User API's
// cancel endpoint (spec §6.1).
func (s *Store) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	const q = `UPDATE order_records SET status = 'cancelled' WHERE order_id = $1 AND status = 'pending'`
	res, err := s.DB.ExecContext(ctx, q, orderID)
	if err != nil {
		return fmt.Errorf("cancelling order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancelling order: %w", err)
	}
	if rows == 0 {
		return apierr.ErrOrderNotPending
	}
	return nil
}

// ExpireStaleOrders transitions every order still pending and older
// than cutoff to expired, the housekeeping sweep spec §4.1 describes
// for orders that never received a matching payment.
func (s *Store) ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE order_records SET status = 'expired' WHERE status = 'pending' AND created_at < $1`
	res, err := s.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiring stale orders: %w", err)
	}
	return res.RowsAffected()
}

// OrdersPendingWebhook returns orders whose webhook has neither
// succeeded nor exhausted its retry budget and was last tried no later
// than now, per spec §4.4's offline retry loop, capped to limit rows
// per call (the loop's "10 orders per tick" cap). The query does not
// apply the exponential backoff; the webhook sender filters the rows by
// each order's backoff deadline.
func (s *Store) OrdersPendingWebhook(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error) {
	const q = `
		SELECT * FROM order_records
		WHERE status <> 'pending'
		  AND webhook_success_at IS NULL
		  AND webhook_retry_count < $1
		  AND (webhook_last_tried_at IS NULL OR webhook_last_tried_at <= $2)
		ORDER BY created_at
		LIMIT $3`
	var rows []orderRow
	deadline := now
	if err := s.DB.SelectContext(ctx, &rows, q, entity.MaxWebhookRetries, deadline, limit); err != nil {
		return nil, fmt.Errorf("listing orders pending webhook: %w", err)
	}
	out := make([]*entity.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// RecordWebhookAttempt updates the retry bookkeeping after one delivery
// attempt. succeeded sets webhook_success_at and stops future retries;
// otherwise the retry count is bumped and last_tried_at recorded so the
// next backoff interval (spec §4.4) can be computed from it.
func (s *Store) RecordWebhookAttempt(ctx context.Context, orderID uuid.UUID, at time.Time, succeeded bool) error {
	if succeeded {
		const q = `UPDATE order_records SET webhook_success_at = $2, webhook_last_tried_at = $2 WHERE order_id = $1`
		_, err := s.DB.ExecContext(ctx, q, orderID, at)
		if err != nil {
			return fmt.Errorf("recording webhook success: %w", err)
		}
		return nil
	}
	const q = `UPDATE order_records SET webhook_retry_count = webhook_retry_count + 1, webhook_last_tried_at = $2 WHERE order_id = $1`
	_, err := s.DB.ExecContext(ctx, q, orderID, at)
	if err != nil {
		return fmt.Errorf("recording webhook failure: %w", err)
	}
	return nil
}
