package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/entity"
)

func TestActiveKeysFromWallets(t *testing.T) {
	f := &File{
		Wallets: []WalletEntry{
			{Blockchain: "ethereum", Address: "0xABC", EnabledCoins: []string{"USDT", "USDC"}},
			{Blockchain: "tron", Address: "Txyz", EnabledCoins: []string{"USDT"}},
			{Blockchain: "not-a-chain", Address: "0xZZZ", EnabledCoins: []string{"USDT"}},
		},
	}
	sc := NewSharedConfig(f)

	active := sc.ActiveKeys()
	require.Len(t, active, 3)
	require.Contains(t, active, entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDT})
	require.Contains(t, active, entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDC})
	require.Contains(t, active, entity.PoolKey{Chain: entity.Tron, Token: entity.USDT})
}

func TestWalletForLookup(t *testing.T) {
	f := &File{
		Wallets: []WalletEntry{
			{Blockchain: "ethereum", Address: "0xABC", EnabledCoins: []string{"USDT"}},
		},
	}
	sc := NewSharedConfig(f)

	w, ok := sc.WalletFor(entity.Ethereum, entity.USDT)
	require.True(t, ok)
	require.Equal(t, "0xABC", w.Address)

	_, ok = sc.WalletFor(entity.Ethereum, entity.DAI)
	require.False(t, ok)
}

func TestReloadPublishesOnlyWhenActiveSetChanges(t *testing.T) {
	f := &File{
		Wallets: []WalletEntry{
			{Blockchain: "ethereum", Address: "0xABC", EnabledCoins: []string{"USDT"}},
		},
	}
	sc := NewSharedConfig(f)
	ch, unsubscribe := sc.SubscribeActiveKeys()
	defer unsubscribe()

	// Reload with the identical active set: no publish.
	sc.Reload(&File{Wallets: []WalletEntry{
		{Blockchain: "ethereum", Address: "0xABC-renamed", EnabledCoins: []string{"USDT"}},
	}})
	select {
	case <-ch:
		t.Fatal("did not expect a publish for an unchanged active set")
	default:
	}
	require.Equal(t, 1, sc.Version())

	// Reload adding a new (chain,token): publish.
	sc.Reload(&File{Wallets: []WalletEntry{
		{Blockchain: "ethereum", Address: "0xABC", EnabledCoins: []string{"USDT", "USDC"}},
	}})
	select {
	case change := <-ch:
		require.Len(t, change.Active, 2)
		require.Equal(t, 2, change.Version)
	default:
		t.Fatal("expected a publish when the active set grows")
	}
}
