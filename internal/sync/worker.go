package sync

import (
	"context"
	"time"

	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/metrics"
)

// Worker is one SyncWorker[k] (spec §4.2): given a tick, fetch new
// transfers for its key, normalize and persist them, and report how
// many were actually inserted.
type Worker interface {
	Key() entity.PoolKey
	// Tick runs exactly one fetch-and-persist pass. It never returns an
	// error the caller must propagate: failure semantics (spec §4.2)
	// are fully handled internally, with the tick simply reporting
	// count=0 on any failure so MatchTick is still emitted.
	Tick(ctx context.Context) (count int, err error)
}

// unconfirmedWindow is the window of spec §4.2's "trailing 24h" cursor
// rule. The matcher's unknown-transfer sweep uses its own 1h threshold.
const unconfirmedWindow = 24 * time.Hour

// runWorkerOnTick is the shared glue a Coordinator uses to drive one
// Worker from an incoming PoolingTick and publish the resulting
// MatchTick downstream (spec §4.2 "Emission": always emit, even on
// fetch failure, with count=0).
func runWorkerOnTick(ctx context.Context, w Worker, out chan<- events.MatchTick) {
	chain, token := string(w.Key().Chain), string(w.Key().Token)
	count, err := w.Tick(ctx)
	metrics.SyncFetches.WithLabelValues(chain, token, outcomeLabel(err)).Inc()
	if count > 0 {
		metrics.SyncTransfersIngested.WithLabelValues(chain, token).Add(float64(count))
	}
	select {
	case out <- events.MatchTick{Key: w.Key(), Count: count}:
	case <-ctx.Done():
	}
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
