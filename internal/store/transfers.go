package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ocrch/engine/internal/entity"
)

type transferRow struct {
	ID                  int64     `db:"id"`
	Chain               string    `db:"chain"`
	Token               string    `db:"token"`
	FromAddress         string    `db:"from_address"`
	ToAddress           string    `db:"to_address"`
	TxnHash             string    `db:"txn_hash"`
	Value               string    `db:"value"`
	BlockNumber         int64     `db:"block_number"`
	BlockTimestamp      time.Time `db:"block_timestamp"`
	BlockchainConfirmed bool      `db:"blockchain_confirmed"`
	CreatedAt           time.Time `db:"created_at"`
	Status              string    `db:"status"`
	FulfillmentID       *int64    `db:"fulfillment_id"`
}

func (r transferRow) toEntity() (*entity.Transfer, error) {
	value, err := parseDecimal(r.Value)
	if err != nil {
		return nil, fmt.Errorf("parsing transfer value: %w", err)
	}
	return &entity.Transfer{
		ID:                  r.ID,
		Chain:               entity.Blockchain(r.Chain),
		Token:               entity.Stablecoin(r.Token),
		FromAddress:         r.FromAddress,
		ToAddress:           r.ToAddress,
		TxnHash:             r.TxnHash,
		Value:               value,
		BlockNumber:         r.BlockNumber,
		BlockTimestamp:      r.BlockTimestamp,
		BlockchainConfirmed: r.BlockchainConfirmed,
		CreatedAt:           r.CreatedAt,
		Status:              entity.TransferStatus(r.Status),
		FulfillmentID:       r.FulfillmentID,
	}, nil
}

func transfersTable(family entity.ChainFamily) string {
	if family == entity.FamilyTRC20 {
		return "trc20_token_transfers"
	}
	return "erc20_token_transfers"
}

// InsertTransfersDeduped bulk-inserts newly observed transfers, relying
// on the table's dedup unique index ((txn_hash, chain) for ERC-20,
// txn_hash alone for TRC-20) and ON CONFLICT DO NOTHING so re-polling
// an explorer page already seen is a no-op rather than an error (spec
// §4.2's "sync is idempotent under cursor replay"). Returns the number
// of rows actually inserted.
func (s *Store) InsertTransfersDeduped(ctx context.Context, family entity.ChainFamily, transfers []*entity.Transfer) (int, error) {
	if len(transfers) == 0 {
		return 0, nil
	}
	table := transfersTable(family)
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transfer insert tx: %w", err)
	}
	defer tx.Rollback()

	// trc20_token_transfers has no chain column (every row is Tron), so
	// the column list and argument order diverge by family.
	var q string
	if family == entity.FamilyTRC20 {
		q = fmt.Sprintf(`INSERT INTO %s
			(token, from_address, to_address, txn_hash, value, block_number, block_timestamp, blockchain_confirmed, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (txn_hash) DO NOTHING`, table)
	} else {
		q = fmt.Sprintf(`INSERT INTO %s
			(chain, token, from_address, to_address, txn_hash, value, block_number, block_timestamp, blockchain_confirmed, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (txn_hash, chain) DO NOTHING`, table)
	}

	inserted := 0
	for _, t := range transfers {
		var res sql.Result
		var err error
		if family == entity.FamilyTRC20 {
			res, err = tx.ExecContext(ctx, q, t.Token, t.FromAddress, t.ToAddress, t.TxnHash,
				t.Value.String(), t.BlockNumber, t.BlockTimestamp, t.BlockchainConfirmed, t.Status)
		} else {
			res, err = tx.ExecContext(ctx, q, t.Chain, t.Token, t.FromAddress, t.ToAddress, t.TxnHash,
				t.Value.String(), t.BlockNumber, t.BlockTimestamp, t.BlockchainConfirmed, t.Status)
		}
		if err != nil {
			return 0, fmt.Errorf("inserting transfer %s: %w", t.TxnHash, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transfer insert tx: %w", err)
	}
	return inserted, nil
}

// UnconfirmedTransfers returns transfers still waiting for enough block
// confirmations. The sync workers do not call it; no confirmation-check
// pass runs on a sync tick.
func (s *Store) UnconfirmedTransfers(ctx context.Context, key entity.PoolKey) ([]*entity.Transfer, error) {
	return s.selectTransfers(ctx, key, "blockchain_confirmed = false")
}

// WaitingTransfers returns confirmed transfers not yet matched or
// written off, the right-hand input to the matcher's merge-join (spec
// §4.3).
func (s *Store) WaitingTransfers(ctx context.Context, key entity.PoolKey) ([]*entity.Transfer, error) {
	return s.selectTransfers(ctx, key, "status = 'waiting_for_match'")
}

func (s *Store) selectTransfers(ctx context.Context, key entity.PoolKey, predicate string) ([]*entity.Transfer, error) {
	var rows []transferRow
	var err error
	if key.Chain == entity.Tron {
		q := fmt.Sprintf(`SELECT id, '' AS chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM trc20_token_transfers WHERE token = $1 AND %s`, predicate)
		err = s.DB.SelectContext(ctx, &rows, q, key.Token)
	} else {
		q := fmt.Sprintf(`SELECT id, chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM erc20_token_transfers WHERE chain = $1 AND token = $2 AND %s`, predicate)
		err = s.DB.SelectContext(ctx, &rows, q, key.Chain, key.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	out := make([]*entity.Transfer, 0, len(rows))
	for _, r := range rows {
		t, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ConfirmTransfers flips a batch of transfers from
// waiting_for_confirmation to waiting_for_match once they clear the
// confirmation depth, or to failed_to_confirm when the chain reorganized
// them away (spec §4.2).
func (s *Store) ConfirmTransfers(ctx context.Context, family entity.ChainFamily, ids []int64, ok bool) error {
	if len(ids) == 0 {
		return nil
	}
	status := entity.TransferWaitingForMatch
	if !ok {
		status = entity.TransferFailedToConfirm
	}
	q := fmt.Sprintf(`UPDATE %s SET blockchain_confirmed = $3, status = $2 WHERE id = ANY($1)`, transfersTable(family))
	if _, err := s.DB.ExecContext(ctx, q, int64Array(ids), status, ok); err != nil {
		return fmt.Errorf("confirming transfers: %w", err)
	}
	return nil
}

// MarkUnknownTransfers flips stale unmatched transfers (older than
// olderThan) to no_matched_deposit, the unknown-transfer sweep spec
// §4.3 runs after each matcher pass: a confirmed transfer sitting in
// waiting_for_match for over an hour with no candidate deposit is
// written off and reported via WebhookEvent::UnknownTransferReceived.
func (s *Store) MarkUnknownTransfers(ctx context.Context, family entity.ChainFamily, key entity.PoolKey, olderThan time.Time) ([]*entity.Transfer, error) {
	table := transfersTable(family)
	var rows []transferRow
	var selErr error
	if key.Chain == entity.Tron {
		q := fmt.Sprintf(`SELECT id, '' AS chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM %s WHERE token = $1 AND status = 'waiting_for_match' AND block_timestamp < $2`, table)
		selErr = s.DB.SelectContext(ctx, &rows, q, key.Token, olderThan)
	} else {
		q := fmt.Sprintf(`SELECT id, chain, token, from_address, to_address, txn_hash, value,
			block_number, block_timestamp, blockchain_confirmed, created_at, status, fulfillment_id
			FROM %s WHERE chain = $1 AND token = $2 AND status = 'waiting_for_match' AND block_timestamp < $3`, table)
		selErr = s.DB.SelectContext(ctx, &rows, q, key.Chain, key.Token, olderThan)
	}
	if selErr != nil {
		return nil, fmt.Errorf("selecting unknown transfers: %w", selErr)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	out := make([]*entity.Transfer, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		t, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	upd := fmt.Sprintf(`UPDATE %s SET status = 'no_matched_deposit' WHERE id = ANY($1)`, table)
	if _, err := s.DB.ExecContext(ctx, upd, int64Array(ids)); err != nil {
		return nil, fmt.Errorf("marking unknown transfers: %w", err)
	}
	return out, nil
}
