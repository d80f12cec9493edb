package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/entity"
)

// MatchCommit is one (transfer, deposit) pair the merge-join matched
// within a single pooling key's pass, the unit spec §4.3's commit step
// operates on.
type MatchCommit struct {
	TransferID int64
	DepositID  int64
	OrderID    uuid.UUID
}

// CommitMatches applies every matched pair for one chain family in a
// single transaction, the four fixed statements spec §4.3 names: mark
// the matched transfers, mark their orders paid, delete the matched
// deposits' same-family siblings, and delete any other-family deposits
// still outstanding for those same orders (an order is only ever paid
// once, by whichever family's transfer arrives first).
func (s *Store) CommitMatches(ctx context.Context, family entity.ChainFamily, commits []MatchCommit) error {
	if len(commits) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit tx: %w", err)
	}
	defer tx.Rollback()

	orderIDs := make([]uuid.UUID, len(commits))
	for i, c := range commits {
		orderIDs[i] = c.OrderID
	}

	// 1. mark matched transfers, one UPDATE carrying all pairs via a
	// VALUES list so each transfer gets its own fulfillment_id.
	valuesSQL, args := matchValuesClause(commits)
	updTransfers := fmt.Sprintf(`
		UPDATE %s AS t SET status = 'matched', fulfillment_id = v.deposit_id
		FROM (VALUES %s) AS v(transfer_id, deposit_id)
		WHERE t.id = v.transfer_id`, transfersTable(family), valuesSQL)
	if _, err := tx.ExecContext(ctx, updTransfers, args...); err != nil {
		return fmt.Errorf("marking matched transfers: %w", err)
	}

	// 2. mark orders paid.
	const updOrders = `UPDATE order_records SET status = 'paid' WHERE order_id = ANY($1) AND status = 'pending'`
	if _, err := tx.ExecContext(ctx, updOrders, uuidArray(orderIDs)); err != nil {
		return fmt.Errorf("marking orders paid: %w", err)
	}

	// 3. delete same-family sibling deposits for those orders, keeping
	// the exact matched deposit (order_watcher.rs's
	// delete_for_order_except_tx) — it's still referenced by the
	// transfer row's fulfillment_id from step 1.
	keptValuesSQL, keptArgs := matchedDepositValuesClause(commits)
	delSame := fmt.Sprintf(`
		DELETE FROM %s AS d USING (VALUES %s) AS v(order_id, deposit_id)
		WHERE d.order_id = v.order_id AND d.id <> v.deposit_id`, depositsTable(family), keptValuesSQL)
	if _, err := tx.ExecContext(ctx, delSame, keptArgs...); err != nil {
		return fmt.Errorf("deleting same-family deposits: %w", err)
	}

	// 4. delete any other-family deposits outstanding for those orders.
	otherFamily := entity.FamilyTRC20
	if family == entity.FamilyTRC20 {
		otherFamily = entity.FamilyERC20
	}
	delOther := fmt.Sprintf(`DELETE FROM %s WHERE order_id = ANY($1)`, depositsTable(otherFamily))
	if _, err := tx.ExecContext(ctx, delOther, uuidArray(orderIDs)); err != nil {
		return fmt.Errorf("deleting other-family deposits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing matches: %w", err)
	}
	return nil
}

// matchValuesClause builds the "($1::bigint, $2::bigint), ($3, $4), ..."
// fragment and its flattened argument list for CommitMatches' first
// statement.
func matchValuesClause(commits []MatchCommit) (string, []interface{}) {
	parts := make([]string, len(commits))
	args := make([]interface{}, 0, len(commits)*2)
	for i, c := range commits {
		parts[i] = fmt.Sprintf("($%d::bigint, $%d::bigint)", i*2+1, i*2+2)
		args = append(args, c.TransferID, c.DepositID)
	}
	return strings.Join(parts, ", "), args
}

// matchedDepositValuesClause builds the "($1::uuid, $2::bigint), ..."
// fragment pairing each order with the deposit id that matched it, so
// CommitMatches' third statement can delete every other same-family
// deposit for the order while keeping that one.
func matchedDepositValuesClause(commits []MatchCommit) (string, []interface{}) {
	parts := make([]string, len(commits))
	args := make([]interface{}, 0, len(commits)*2)
	for i, c := range commits {
		parts[i] = fmt.Sprintf("($%d::uuid, $%d::bigint)", i*2+1, i*2+2)
		args = append(args, c.OrderID.String(), c.DepositID)
	}
	return strings.Join(parts, ", "), args
}
