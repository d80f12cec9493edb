package entity

import "strings"

// Blockchain enumerates the EVM-compatible chains the engine supports,
// plus Tron which is handled by a different sync protocol entirely.
type Blockchain string

const (
	Ethereum    Blockchain = "ethereum"
	Polygon     Blockchain = "polygon"
	Base        Blockchain = "base"
	ArbitrumOne Blockchain = "arbitrum_one"
	Linea       Blockchain = "linea"
	Optimism    Blockchain = "optimism"
	AvalancheC  Blockchain = "avalanche_c"
	Tron        Blockchain = "tron"
)

// EVMChains lists every ERC-20-family chain, i.e. every Blockchain except
// Tron. Used to validate wallet config and to distinguish chain families
// for the matcher's cross-chain cleanup (spec §4.3).
var EVMChains = []Blockchain{Ethereum, Polygon, Base, ArbitrumOne, Linea, Optimism, AvalancheC}

// IsEVM reports whether b belongs to the ERC-20 chain family.
func (b Blockchain) IsEVM() bool {
	for _, c := range EVMChains {
		if c == b {
			return true
		}
	}
	return false
}

// Valid reports whether b is one of the enumerated chains.
func (b Blockchain) Valid() bool {
	return b.IsEVM() || b == Tron
}

// ChainFamily identifies one of the two dedup/cleanup domains spec §4.3
// calls "chain family": ERC-20-compatible or TRC-20.
type ChainFamily string

const (
	FamilyERC20 ChainFamily = "erc20"
	FamilyTRC20 ChainFamily = "trc20"
)

// Family returns the chain family b belongs to.
func (b Blockchain) Family() ChainFamily {
	if b == Tron {
		return FamilyTRC20
	}
	return FamilyERC20
}

// Stablecoin enumerates the supported tokens.
type Stablecoin string

const (
	USDT Stablecoin = "USDT"
	USDC Stablecoin = "USDC"
	DAI  Stablecoin = "DAI"
)

// Valid reports whether s is one of the enumerated stablecoins.
func (s Stablecoin) Valid() bool {
	switch s {
	case USDT, USDC, DAI:
		return true
	default:
		return false
	}
}

// PoolKey identifies one (blockchain, token) sync target — the "k" in
// spec §2's event diagram. It doubles as the map key for the pooling
// manager's per-k tick loops and the sync cursor lookups.
type PoolKey struct {
	Chain Blockchain
	Token Stablecoin
}

func (k PoolKey) String() string {
	return string(k.Chain) + "/" + string(k.Token)
}

// BlockchainTarget is a tagged variant that hides the EVM/Tron protocol
// split behind one shape ("which chain family and which concrete
// chain"). The events and the rest of the engine carry PoolKey instead;
// nothing in the engine uses this type at present.
type BlockchainTarget struct {
	Family ChainFamily
	Chain  Blockchain // zero value for Tron, since TRC-20 has only one chain
	Token  Stablecoin
}

// NewEVMTarget builds a BlockchainTarget for an ERC-20-family chain.
func NewEVMTarget(chain Blockchain, token Stablecoin) BlockchainTarget {
	return BlockchainTarget{Family: FamilyERC20, Chain: chain, Token: token}
}

// NewTronTarget builds a BlockchainTarget for TRC-20.
func NewTronTarget(token Stablecoin) BlockchainTarget {
	return BlockchainTarget{Family: FamilyTRC20, Token: token}
}

// NormalizeAddress lower-cases a wallet/contract address for the
// case-insensitive comparisons spec §3 requires throughout.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
