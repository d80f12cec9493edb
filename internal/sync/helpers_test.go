package sync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func poolKeyForTest() entity.PoolKey {
	return entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDT}
}
