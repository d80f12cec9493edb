package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// uuidArray adapts a []uuid.UUID for use as a Postgres text[] parameter
// bound against a uuid[] column cast, the vehicle spec §4.3 calls for
// batching the commit step's order lookups and updates into one
// statement each (ANY($1)) instead of one round trip per matched
// deposit.
func uuidArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

func int64Array(ids []int64) interface{} {
	return pq.Array(ids)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing decimal %q: %w", s, err)
	}
	return d, nil
}
