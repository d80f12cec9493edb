package store

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func TestMatchValuesClauseNumbersPlaceholdersSequentially(t *testing.T) {
	commits := []MatchCommit{
		{TransferID: 1, DepositID: 10},
		{TransferID: 2, DepositID: 20},
	}
	clause, args := matchValuesClause(commits)
	require.Equal(t, "($1::bigint, $2::bigint), ($3::bigint, $4::bigint)", clause)
	require.Equal(t, []interface{}{int64(1), int64(10), int64(2), int64(20)}, args)
}

func TestMatchedDepositValuesClauseNumbersPlaceholdersSequentially(t *testing.T) {
	orderA, orderB := uuid.New(), uuid.New()
	commits := []MatchCommit{
		{OrderID: orderA, DepositID: 10},
		{OrderID: orderB, DepositID: 20},
	}
	clause, args := matchedDepositValuesClause(commits)
	require.Equal(t, "($1::uuid, $2::bigint), ($3::uuid, $4::bigint)", clause)
	require.Equal(t, []interface{}{orderA.String(), int64(10), orderB.String(), int64(20)}, args)
}

func TestCommitMatchesNoopOnEmpty(t *testing.T) {
	s, mock := newTestStore(t)
	require.NoError(t, s.CommitMatches(context.Background(), entity.FamilyERC20, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitMatchesRunsFourStatementsInOneTransaction(t *testing.T) {
	s, mock := newTestStore(t)
	orderID := uuid.New()
	commits := []MatchCommit{{TransferID: 1, DepositID: 10, OrderID: orderID}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE erc20_token_transfers")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_records SET status = 'paid'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM erc20_pending_deposits AS d USING (VALUES ($1::uuid, $2::bigint)) AS v(order_id, deposit_id)")).
		WithArgs(orderID.String(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trc20_pending_deposits")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CommitMatches(context.Background(), entity.FamilyERC20, commits))
	require.NoError(t, mock.ExpectationsWereMet())
}
