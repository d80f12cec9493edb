package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/entity"
)

type depositRow struct {
	ID            int64     `db:"id"`
	OrderID       uuid.UUID `db:"order_id"`
	Chain         string    `db:"chain"`
	Token         string    `db:"token"`
	WalletAddress string    `db:"wallet_address"`
	Value         string    `db:"value"`
	StartedAt     time.Time `db:"started_at"`
	LastScannedAt time.Time `db:"last_scanned_at"`
}

func (r depositRow) toEntity() (*entity.PendingDeposit, error) {
	value, err := parseDecimal(r.Value)
	if err != nil {
		return nil, fmt.Errorf("parsing deposit value: %w", err)
	}
	return &entity.PendingDeposit{
		ID:            r.ID,
		OrderID:       r.OrderID,
		Chain:         entity.Blockchain(r.Chain),
		Token:         entity.Stablecoin(r.Token),
		WalletAddress: r.WalletAddress,
		Value:         value,
		StartedAt:     r.StartedAt,
		LastScannedAt: r.LastScannedAt,
	}, nil
}

func depositsTable(family entity.ChainFamily) string {
	if family == entity.FamilyTRC20 {
		return "trc20_pending_deposits"
	}
	return "erc20_pending_deposits"
}

// CreatePendingDeposit inserts a new allocation of an order against a
// wallet (spec §4.1), routing to the ERC-20 or TRC-20 table by the
// deposit's chain family. The table's partial unique index
// (chain, token, lower(wallet_address), value) where pending enforces
// spec §9's match-uniqueness invariant; a violation surfaces as a
// Postgres unique_violation the caller maps to apierr.KindValidation.
func (s *Store) CreatePendingDeposit(ctx context.Context, d *entity.PendingDeposit) error {
	table := depositsTable(d.Family())
	var q string
	var args []interface{}
	if d.Family() == entity.FamilyTRC20 {
		q = fmt.Sprintf(`INSERT INTO %s (order_id, token, wallet_address, value, started_at, last_scanned_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, table)
		args = []interface{}{d.OrderID, d.Token, d.WalletAddress, d.Value.String(), d.StartedAt, d.LastScannedAt}
	} else {
		q = fmt.Sprintf(`INSERT INTO %s (order_id, chain, token, wallet_address, value, started_at, last_scanned_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`, table)
		args = []interface{}{d.OrderID, d.Chain, d.Token, d.WalletAddress, d.Value.String(), d.StartedAt, d.LastScannedAt}
	}
	if err := s.DB.GetContext(ctx, &d.ID, q, args...); err != nil {
		return fmt.Errorf("inserting pending deposit: %w", err)
	}
	return nil
}

// PendingDepositsForKey loads every still-pending deposit for one
// (chain, token) pooling key, the left-hand input to the matcher's
// merge-join (spec §4.3). For Tron, key.Chain is ignored since the
// TRC-20 table carries no chain column.
func (s *Store) PendingDepositsForKey(ctx context.Context, key entity.PoolKey) ([]*entity.PendingDeposit, error) {
	var rows []depositRow
	if key.Chain == entity.Tron {
		const q = `SELECT id, order_id, '' AS chain, token, wallet_address, value, started_at, last_scanned_at
			FROM trc20_pending_deposits WHERE token = $1 AND status = 'pending'`
		if err := s.DB.SelectContext(ctx, &rows, q, key.Token); err != nil {
			return nil, fmt.Errorf("listing trc20 pending deposits: %w", err)
		}
	} else {
		const q = `SELECT id, order_id, chain, token, wallet_address, value, started_at, last_scanned_at
			FROM erc20_pending_deposits WHERE chain = $1 AND token = $2 AND status = 'pending'`
		if err := s.DB.SelectContext(ctx, &rows, q, key.Chain, key.Token); err != nil {
			return nil, fmt.Errorf("listing erc20 pending deposits: %w", err)
		}
	}
	out := make([]*entity.PendingDeposit, 0, len(rows))
	for _, r := range rows {
		d, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// TouchDeposits bumps last_scanned_at for a batch of deposit ids. No
// component of the engine calls it at present.
func (s *Store) TouchDeposits(ctx context.Context, family entity.ChainFamily, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`UPDATE %s SET last_scanned_at = $2 WHERE id = ANY($1)`, depositsTable(family))
	if _, err := s.DB.ExecContext(ctx, q, int64Array(ids), at); err != nil {
		return fmt.Errorf("touching deposits: %w", err)
	}
	return nil
}
