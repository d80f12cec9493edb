package matcher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func TestJoinByKeyMatchesEqualValueAndAddress(t *testing.T) {
	orderID := uuid.New()
	deposit := &entity.PendingDeposit{
		ID: 1, OrderID: orderID, Chain: entity.Ethereum, Token: entity.USDT,
		WalletAddress: "0xABC", Value: mustDecimal(t, "10.000000"),
	}
	transfer := &entity.Transfer{
		ID: 100, Chain: entity.Ethereum, Token: entity.USDT,
		ToAddress: "0xabc", Value: mustDecimal(t, "10"), BlockTimestamp: time.Now(),
	}

	matches := joinByKey([]*entity.PendingDeposit{deposit}, []*entity.Transfer{transfer})
	require.Len(t, matches, 1)
	require.Equal(t, deposit, matches[0].deposit)
	require.Equal(t, transfer, matches[0].transfer)
}

func TestJoinByKeyLeavesUniqueEntriesUnmatched(t *testing.T) {
	deposit := &entity.PendingDeposit{ID: 1, WalletAddress: "0xABC", Value: mustDecimal(t, "10")}
	transfer := &entity.Transfer{ID: 100, ToAddress: "0xDEF", Value: mustDecimal(t, "10"), BlockTimestamp: time.Now()}

	matches := joinByKey([]*entity.PendingDeposit{deposit}, []*entity.Transfer{transfer})
	require.Empty(t, matches)
}

func TestJoinByKeyHandlesMultipleDistinctPairs(t *testing.T) {
	d1 := &entity.PendingDeposit{ID: 1, WalletAddress: "0xAAA", Value: mustDecimal(t, "1")}
	d2 := &entity.PendingDeposit{ID: 2, WalletAddress: "0xBBB", Value: mustDecimal(t, "2")}
	t1 := &entity.Transfer{ID: 10, ToAddress: "0xbbb", Value: mustDecimal(t, "2"), BlockTimestamp: time.Now()}
	t2 := &entity.Transfer{ID: 11, ToAddress: "0xaaa", Value: mustDecimal(t, "1"), BlockTimestamp: time.Now().Add(time.Second)}

	matches := joinByKey([]*entity.PendingDeposit{d1, d2}, []*entity.Transfer{t1, t2})
	require.Len(t, matches, 2)
	got := map[int64]int64{}
	for _, m := range matches {
		got[m.deposit.ID] = m.transfer.ID
	}
	require.Equal(t, int64(11), got[1])
	require.Equal(t, int64(10), got[2])
}
