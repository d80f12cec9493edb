package sync

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/store"
)

type fakeEVMExplorer struct {
	pages [][]EVMTransferItem
	calls int
}

func (f *fakeEVMExplorer) TokenTransfers(ctx context.Context, chainID int64, contract, wallet string, startBlock int64, page int) ([]EVMTransferItem, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

func (f *fakeEVMExplorer) TransactionBlockNumber(ctx context.Context, chainID int64, txHash string) (int64, error) {
	return 0, nil
}

func newMockedStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &store.Store{DB: sqlx.NewDb(db, "postgres")}, mock
}

func TestEVMWorkerTickInsertsMatchingTransfersOnly(t *testing.T) {
	st, mock := newMockedStore(t)
	cfg := config.NewSharedConfig(&config.File{
		Wallets: []config.WalletEntry{
			{Blockchain: "ethereum", Address: "0xWALLET", EnabledCoins: []string{"USDT"}},
		},
	})

	explorer := &fakeEVMExplorer{pages: [][]EVMTransferItem{
		{
			{Hash: "0x1", From: "0xfrom", To: "0xWALLET", Value: "5000000", BlockNumber: "10", TimeStamp: "1700000000"},
			{Hash: "0x2", From: "0xfrom", To: "0xOTHER", Value: "1000000", BlockNumber: "11", TimeStamp: "1700000001"},
		},
	}}

	w := NewEVMWorker(entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDT}, explorer, st, cfg)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MIN(block_number)")).WillReturnRows(sqlmock.NewRows([]string{"min"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(block_number)")).WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO erc20_token_transfers")).
		WithArgs(entity.Ethereum, entity.USDT, "0xfrom", "0xWALLET", "0x1", "5", int64(10), sqlmock.AnyArg(), true, entity.TransferWaitingForMatch).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	count, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
