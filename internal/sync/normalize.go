package sync

import (
	"fmt"
	"strconv"

	"github.com/ocrch/engine/internal/apierr"
	"github.com/shopspring/decimal"
)

// scaleRawValue parses a raw integer token amount string and divides it
// by 10^decimals, producing the fixed-point decimal value spec §4.2
// calls for ("parse value and scale down by 10^decimals").
func scaleRawValue(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apierr.Wrap(apierr.KindPermanent, fmt.Sprintf("parsing raw value %q", raw), err)
	}
	return d.Shift(-decimals), nil
}

// parseInt64 parses a decimal integer string (Etherscan encodes block
// numbers and timestamps as decimal strings in the tokentx envelope,
// unlike eth_getTransactionByHash's hex encoding).
func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apierr.Wrap(apierr.KindPermanent, fmt.Sprintf("parsing integer %q", s), err)
	}
	return v, nil
}
