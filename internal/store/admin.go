package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/ocrch/engine/internal/entity"
)

// ListOrders returns the most recent orders, optionally filtered by
// status, for the admin surface's order listing (spec §6.1's admin
// endpoints are out of scope beyond their data access; this is the
// query that surface would call).
func (s *Store) ListOrders(ctx context.Context, status *entity.OrderStatus, limit int) ([]*entity.Order, error) {
	var rows []orderRow
	var err error
	if status != nil {
		err = s.DB.SelectContext(ctx, &rows,
			`SELECT * FROM order_records WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, *status, limit)
	} else {
		err = s.DB.SelectContext(ctx, &rows,
			`SELECT * FROM order_records ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
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

// ForcePaid marks one pending order paid directly, bypassing the
// matcher, for the admin override spec §4.1 mentions ("an operator may
// force-settle an order that was paid out-of-band"). Deliberately does
// not touch any deposit or transfer row: it is a terminal override, not
// a simulated match.
func (s *Store) ForcePaid(ctx context.Context, orderID uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE order_records SET status = 'paid' WHERE order_id = $1 AND status = 'pending'`, orderID)
	if err != nil {
		return fmt.Errorf("forcing order paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking force-paid result: %w", err)
	}
	if n == 0 {
		return apierr.ErrOrderNotPending
	}
	return nil
}

// ResetWebhookForResend clears an order's retry bookkeeping so the
// offline retry loop picks it up on its next pass, the admin "resend
// webhook" action.
func (s *Store) ResetWebhookForResend(ctx context.Context, orderID uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE order_records SET webhook_retry_count = 0, webhook_last_tried_at = NULL WHERE order_id = $1`,
		orderID)
	if err != nil {
		return fmt.Errorf("resetting webhook retry state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking resend result: %w", err)
	}
	if n == 0 {
		return apierr.ErrOrderNotFound
	}
	return nil
}

// GetTransfer fetches one transfer by id and family, for the admin
// surface's transfer lookup and for debugging unknown-transfer
// webhooks.
func (s *Store) GetTransfer(ctx context.Context, family entity.ChainFamily, id int64) (*entity.Transfer, error) {
	var row transferRow
	table := transfersTable(family)
	var q string
	if family == entity.FamilyTRC20 {
		q = fmt.Sprintf(`SELECT id, '' AS chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM %s WHERE id = $1`, table)
	} else {
		q = fmt.Sprintf(`SELECT id, chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM %s WHERE id = $1`, table)
	}
	if err := s.DB.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.ErrTransferNotFound
		}
		return nil, apierr.Wrap(apierr.KindNotFound, "transfer not found", err)
	}
	return row.toEntity()
}
