package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func TestInsertTransfersDedupedOmitsChainColumnForTRC20(t *testing.T) {
	s, mock := newTestStore(t)
	transfer := &entity.Transfer{
		Token:          entity.USDT,
		FromAddress:    "Tfrom",
		ToAddress:      "Tto",
		TxnHash:        "tron-hash",
		Value:          decimal.RequireFromString("10"),
		BlockNumber:    1,
		BlockTimestamp: time.Now(),
		Status:         entity.TransferWaitingForConfirmation,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trc20_token_transfers\n\t\t\t(token, from_address, to_address, txn_hash, value, block_number, block_timestamp, blockchain_confirmed, status)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := s.InsertTransfersDeduped(context.Background(), entity.FamilyTRC20, []*entity.Transfer{transfer})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTransfersDedupedIncludesChainColumnForERC20(t *testing.T) {
	s, mock := newTestStore(t)
	transfer := &entity.Transfer{
		Chain:          entity.Ethereum,
		Token:          entity.USDT,
		FromAddress:    "0xfrom",
		ToAddress:      "0xto",
		TxnHash:        "0xhash",
		Value:          decimal.RequireFromString("10"),
		BlockNumber:    1,
		BlockTimestamp: time.Now(),
		Status:         entity.TransferWaitingForConfirmation,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO erc20_token_transfers\n\t\t\t(chain, token, from_address, to_address, txn_hash, value, block_number, block_timestamp, blockchain_confirmed, status)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := s.InsertTransfersDeduped(context.Background(), entity.FamilyERC20, []*entity.Transfer{transfer})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
