package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state of a Transfer (spec §3).
type TransferStatus string

const (
	TransferWaitingForConfirmation TransferStatus = "waiting_for_confirmation"
	TransferFailedToConfirm        TransferStatus = "failed_to_confirm"
	TransferWaitingForMatch        TransferStatus = "waiting_for_match"
	TransferNoMatchedDeposit       TransferStatus = "no_matched_deposit"
	TransferMatched                TransferStatus = "matched"
)

// Transfer is an on-chain token movement observed via an explorer API
// (spec §3). Like PendingDeposit, ERC-20 and TRC-20 rows share this one
// struct; Chain is zero-valued for TRC-20 rows, whose dedup key is
// txn_hash alone rather than (txn_hash, chain).
type Transfer struct {
	ID                  int64
	Chain               Blockchain // zero value for TRC-20
	Token               Stablecoin
	FromAddress         string
	ToAddress           string
	TxnHash             string
	Value               decimal.Decimal
	BlockNumber         int64
	BlockTimestamp      time.Time
	BlockchainConfirmed bool
	CreatedAt           time.Time
	Status              TransferStatus
	FulfillmentID       *int64 // non-nil iff Status == TransferMatched (spec §3 invariant)
}

// Family reports which transfer table this row belongs to.
func (t *Transfer) Family() ChainFamily {
	if t.Chain == "" || t.Chain == Tron {
		return FamilyTRC20
	}
	return FamilyERC20
}

// MatchKey mirrors PendingDeposit.MatchKey using the transfer's
// destination address, since a transfer is only ever a candidate match
// for deposits at the address it was sent to (spec §4.2 ingest filter).
func (t *Transfer) MatchKey() MatchKey {
	return MatchKey{Value: NormalizeAmountKey(t.Value), Address: NormalizeAddress(t.ToAddress)}
}

// DedupKey returns the key spec §3's "Dedup" invariant is defined over:
// (txn_hash, chain) for ERC-20, txn_hash alone for TRC-20.
func (t *Transfer) DedupKey() string {
	if t.Family() == FamilyTRC20 {
		return t.TxnHash
	}
	return string(t.Chain) + ":" + t.TxnHash
}
