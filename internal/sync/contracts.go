// Package sync implements spec §4.2's SyncWorker: one worker per
// (chain, token) pooling key, fetching transfers from a public
// explorer API, normalizing them, and persisting the new ones.
package sync

import "github.com/ocrch/engine/internal/entity"

// TokenContract is the static (contract address, decimals) pair spec
// §4.2 says the worker resolves "from a static table" rather than
// querying the token contract at runtime.
type TokenContract struct {
	Address  string
	Decimals int32
}

// contractTable enumerates every EVM (chain, token) pair's ERC-20
// contract address and decimals, keyed per chain. Tron's TRC-20
// entries live in tronContractTable below.
var contractTable = map[entity.Blockchain]map[entity.Stablecoin]TokenContract{
	entity.Ethereum: {
		entity.USDT: {Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		entity.USDC: {Address: "0xA0b86991c6218B36C1D19D4a2e9Eb0cE3606eB48", Decimals: 6},
		entity.DAI:  {Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
	},
	entity.Polygon: {
		entity.USDT: {Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
		entity.USDC: {Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
		entity.DAI:  {Address: "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", Decimals: 18},
	},
	entity.Base: {
		entity.USDC: {Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		entity.DAI:  {Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Decimals: 18},
	},
	entity.ArbitrumOne: {
		entity.USDT: {Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
		entity.USDC: {Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		entity.DAI:  {Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: 18},
	},
	entity.Linea: {
		entity.USDC: {Address: "0x176211869cA2b568f2A7D4EE941E073a821EE1ff", Decimals: 6},
	},
	entity.Optimism: {
		entity.USDT: {Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", Decimals: 6},
		entity.USDC: {Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Decimals: 6},
		entity.DAI:  {Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: 18},
	},
	entity.AvalancheC: {
		entity.USDT: {Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Decimals: 6},
		entity.USDC: {Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Decimals: 6},
		entity.DAI:  {Address: "0xd586E7F844cEa2F87f50152665BCbc2C279D8d70", Decimals: 18},
	},
}

// tronContractTable enumerates TRC-20 contract addresses by token.
var tronContractTable = map[entity.Stablecoin]TokenContract{
	entity.USDT: {Address: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Decimals: 6},
	entity.USDC: {Address: "TEkxiTehnzSmSe2XqrBj4w32RUN966rdz8", Decimals: 6},
}

// ResolveContract looks up the static contract entry for key, ok=false
// if this engine has no table entry for that (chain, token) pair.
func ResolveContract(key entity.PoolKey) (TokenContract, bool) {
	if key.Chain == entity.Tron {
		c, ok := tronContractTable[key.Token]
		return c, ok
	}
	perChain, ok := contractTable[key.Chain]
	if !ok {
		return TokenContract{}, false
	}
	c, ok := perChain[key.Token]
	return c, ok
}
