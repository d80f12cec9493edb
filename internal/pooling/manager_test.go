package pooling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
)

func TestManagerEmitsTicksForActiveKeyAndReactsToDepositChanged(t *testing.T) {
	cfg := config.NewSharedConfig(&config.File{
		Wallets: []config.WalletEntry{
			{Blockchain: "ethereum", Address: "0xABC", EnabledCoins: []string{"USDT"}},
		},
	})
	mgr := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = mgr.Run(ctx)
		close(done)
	}()

	key := entity.PoolKey{Chain: entity.Ethereum, Token: entity.USDT}

	// A PendingDepositChanged should push the interval down to "hot" (2s),
	// so a tick should land well within a generous timeout, far sooner
	// than the 60s idle default would allow.
	mgr.Input() <- events.PendingDepositChanged{Key: key, At: time.Now()}

	require.Eventually(t, func() bool {
		select {
		case tick := <-mgr.Ticks():
			return tick.Key == key
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond, "expected a PoolingTick for the hot key")

	cancel()
	<-done
}

func TestManagerDropsUnknownKey(t *testing.T) {
	cfg := config.NewSharedConfig(&config.File{})
	mgr := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = mgr.Run(ctx)
		close(done)
	}()

	mgr.Input() <- events.PendingDepositChanged{Key: entity.PoolKey{Chain: entity.Polygon, Token: entity.USDC}, At: time.Now()}

	select {
	case <-mgr.Ticks():
		t.Fatal("did not expect a tick for a key with no configured wallet")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestManagerReconcilesOnConfigReload(t *testing.T) {
	cfg := config.NewSharedConfig(&config.File{})
	mgr := NewManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = mgr.Run(ctx)
		close(done)
	}()

	cfg.Reload(&config.File{Wallets: []config.WalletEntry{
		{Blockchain: "base", Address: "0xDEF", EnabledCoins: []string{"DAI"}},
	}})

	key := entity.PoolKey{Chain: entity.Base, Token: entity.DAI}

	// Resend on each poll: reconciliation that registers the new key may
	// not yet have run by the time the first send lands.
	require.Eventually(t, func() bool {
		select {
		case mgr.Input() <- events.PendingDepositChanged{Key: key, At: time.Now()}:
		default:
		}
		select {
		case tick := <-mgr.Ticks():
			return tick.Key == key
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond, "expected a tick for the newly-added key after reload")

	cancel()
	<-done
}
