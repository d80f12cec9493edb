package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingDeposit is an allocation of an order against a specific
// (wallet, chain, token); spec §3 splits this into separate ERC-20 and
// TRC-20 tables because the TRC-20 rows carry no chain column (Tron is a
// single chain). Both are represented by this one struct with Chain left
// zero-valued for TRC-20 rows — the Family method (derived, not stored)
// says which table a given row lives in.
type PendingDeposit struct {
	ID            int64
	OrderID       uuid.UUID
	Chain         Blockchain // zero value for TRC-20
	Token         Stablecoin
	WalletAddress string
	Value         decimal.Decimal
	StartedAt     time.Time
	LastScannedAt time.Time
}

// Family reports which deposit table (and therefore chain family) this
// row belongs to.
func (d *PendingDeposit) Family() ChainFamily {
	if d.Chain == "" || d.Chain == Tron {
		return FamilyTRC20
	}
	return FamilyERC20
}

// MatchKey is the (value, lowercased wallet address) equality-join key
// spec §4.3 uses to pair deposits with transfers.
type MatchKey struct {
	Value   string // canonical fixed-point form, see NormalizeAmountKey
	Address string // lower-cased
}

func (d *PendingDeposit) MatchKey() MatchKey {
	return MatchKey{Value: NormalizeAmountKey(d.Value), Address: NormalizeAddress(d.WalletAddress)}
}

// NormalizeAmountKey rescales d to a fixed 18-decimal-place integer string
// so that two decimal.Decimal values representing the same amount compare
// equal as map keys even when they carry different exponents (e.g. a
// deposit entered as "10.000000" versus a transfer value produced by
// dividing a raw integer by 10^decimals that reduces to "10"). 18 places
// covers every stablecoin decimals value this engine handles.
func NormalizeAmountKey(d decimal.Decimal) string {
	return d.Shift(18).Truncate(0).String()
}
