package matcher

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/store"
)

func nowT() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func newMockedStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &store.Store{DB: sqlx.NewDb(db, "postgres")}, mock
}

func TestProcessTickCommitsOneMatchAndSweepsNothing(t *testing.T) {
	st, mock := newMockedStore(t)
	w := NewWatcher(st)
	key := entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDT}
	orderID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM erc20_pending_deposits")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "chain", "token", "wallet_address", "value", "started_at", "last_scanned_at"}).
			AddRow(int64(1), orderID, "ethereum", "USDT", "0xWALLET", "10", nowT(), nowT()))

	mock.ExpectQuery(regexp.QuoteMeta("FROM erc20_token_transfers")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chain", "token", "from_address", "to_address", "txn_hash", "value",
			"block_number", "block_timestamp", "blockchain_confirmed", "created_at", "status", "fulfillment_id"}).
			AddRow(int64(100), "ethereum", "USDT", "0xfrom", "0xwallet", "0xhash", "10", int64(5), nowT(), true, nowT(), "waiting_for_match", nil))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE erc20_token_transfers AS t")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_records SET status = 'paid'")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM erc20_pending_deposits")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trc20_pending_deposits")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("status = 'waiting_for_match' AND block_timestamp <")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chain", "token", "from_address", "to_address", "txn_hash", "value",
			"block_number", "block_timestamp", "blockchain_confirmed", "created_at", "status", "fulfillment_id"}))

	err := w.processTick(context.Background(), events.MatchTick{Key: key, Count: 1})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
