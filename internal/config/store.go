package config

import (
	"sort"
	"sync"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
)

// SharedConfig is the in-process aggregate every component reads
// configuration through (spec §9 "Global mutable state"). Each section
// has its own RWMutex so unrelated readers never block each other; on
// reload each section is swapped under its own lock, one after another
// (a reader may briefly see new and old sections side by side), and the
// version is bumped,
// mirroring the teacher's pattern of typed config structs passed through
// constructors, generalized here into a watchable aggregate.
type SharedConfig struct {
	serverMu sync.RWMutex
	server   ServerSection

	adminMu sync.RWMutex
	admin   AdminSection

	merchantMu sync.RWMutex
	merchant   MerchantSection

	apiKeysMu sync.RWMutex
	apiKeys   APIKeysSection

	walletsMu sync.RWMutex
	wallets   []WalletEntry
	version   int

	activeKeys *events.Broadcast[ActiveSetChange]
}

// ActiveSetChange is published whenever the active (chain,token) set
// changes on reload, carrying the full new set so the PoolingManager can
// diff against what it already has (spec §4.1 "Reconciliation").
type ActiveSetChange struct {
	Version int
	Active  map[entity.PoolKey]struct{}
}

// NewSharedConfig builds a SharedConfig from a freshly loaded File.
func NewSharedConfig(f *File) *SharedConfig {
	sc := &SharedConfig{
		server:     f.Server,
		admin:      f.Admin,
		merchant:   f.Merchant,
		apiKeys:    f.APIKeys,
		wallets:    f.Wallets,
		activeKeys: events.NewBroadcast[ActiveSetChange](events.ConfigBroadcastCapacity),
	}
	return sc
}

func (sc *SharedConfig) Server() ServerSection {
	sc.serverMu.RLock()
	defer sc.serverMu.RUnlock()
	return sc.server
}

func (sc *SharedConfig) Admin() AdminSection {
	sc.adminMu.RLock()
	defer sc.adminMu.RUnlock()
	return sc.admin
}

func (sc *SharedConfig) Merchant() MerchantSection {
	sc.merchantMu.RLock()
	defer sc.merchantMu.RUnlock()
	return sc.merchant
}

func (sc *SharedConfig) APIKeys() APIKeysSection {
	sc.apiKeysMu.RLock()
	defer sc.apiKeysMu.RUnlock()
	return sc.apiKeys
}

func (sc *SharedConfig) Wallets() []WalletEntry {
	sc.walletsMu.RLock()
	defer sc.walletsMu.RUnlock()
	out := make([]WalletEntry, len(sc.wallets))
	copy(out, sc.wallets)
	return out
}

// Version returns the current wallet-table generation, bumped on every
// Reload.
func (sc *SharedConfig) Version() int {
	sc.walletsMu.RLock()
	defer sc.walletsMu.RUnlock()
	return sc.version
}

// ActiveKeys computes the set of (chain,token) pairs every enabled wallet
// entry authorizes a SyncWorker for — the set spec §4.1 calls "the set of
// active k" and §6.3 says "each enabled (blockchain, coin) spawns one
// SyncWorker".
func (sc *SharedConfig) ActiveKeys() map[entity.PoolKey]struct{} {
	sc.walletsMu.RLock()
	defer sc.walletsMu.RUnlock()
	return activeKeysFrom(sc.wallets)
}

func activeKeysFrom(wallets []WalletEntry) map[entity.PoolKey]struct{} {
	out := make(map[entity.PoolKey]struct{})
	for _, w := range wallets {
		chain := w.Chain()
		if !chain.Valid() {
			continue
		}
		for _, coin := range w.Coins() {
			out[entity.PoolKey{Chain: chain, Token: coin}] = struct{}{}
		}
	}
	return out
}

// WalletFor returns the configured wallet entry serving (chain, token), or
// ok=false if none is configured (spec §4.3 validation: "no wallet for the
// requested chain+coin").
func (sc *SharedConfig) WalletFor(chain entity.Blockchain, token entity.Stablecoin) (WalletEntry, bool) {
	sc.walletsMu.RLock()
	defer sc.walletsMu.RUnlock()
	for _, w := range sc.wallets {
		if w.Chain() != chain {
			continue
		}
		for _, c := range w.Coins() {
			if c == token {
				return w, true
			}
		}
	}
	return WalletEntry{}, false
}

// SubscribeActiveKeys registers a listener for active-set changes, for the
// PoolingManager's reconciliation loop (spec §4.1).
func (sc *SharedConfig) SubscribeActiveKeys() (<-chan ActiveSetChange, func()) {
	return sc.activeKeys.Subscribe()
}

// Reload swaps every section from a freshly loaded File, each under its
// own lock in turn, and bumps the version. If the active (chain,token) set changed, it
// publishes an ActiveSetChange to any subscribers.
func (sc *SharedConfig) Reload(f *File) {
	sc.serverMu.Lock()
	sc.server = f.Server
	sc.serverMu.Unlock()

	sc.adminMu.Lock()
	sc.admin = f.Admin
	sc.adminMu.Unlock()

	sc.merchantMu.Lock()
	sc.merchant = f.Merchant
	sc.merchantMu.Unlock()

	sc.apiKeysMu.Lock()
	sc.apiKeys = f.APIKeys
	sc.apiKeysMu.Unlock()

	sc.walletsMu.Lock()
	prevActive := activeKeysFrom(sc.wallets)
	sc.wallets = f.Wallets
	sc.version++
	version := sc.version
	newActive := activeKeysFrom(sc.wallets)
	sc.walletsMu.Unlock()

	if !sameKeySet(prevActive, newActive) {
		sc.activeKeys.Publish(ActiveSetChange{Version: version, Active: newActive})
	}
}

func sameKeySet(a, b map[entity.PoolKey]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// SortedKeys returns active keys in a deterministic order, used by
// diagnostics and tests.
func SortedKeys(set map[entity.PoolKey]struct{}) []entity.PoolKey {
	out := make([]entity.PoolKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
