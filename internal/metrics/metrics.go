// Package metrics exposes the Prometheus counters/gauges every pipeline
// stage updates: pool interval per key, sync fetch counts, match counts,
// and webhook delivery attempts. MustRegister registers them directly
// against whichever registerer the caller passes (cmd/ocrchd passes its
// own prometheus.NewRegistry()), the way luxfi-evm's gossip and network
// packages register their own vectors rather than routing through a
// bridged gatherer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PoolInterval is the PoolingManager's current tick interval per key,
	// in seconds (spec §4.1's adaptive interval).
	PoolInterval = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ocrch",
		Subsystem: "pooling",
		Name:      "interval_seconds",
		Help:      "Current adaptive tick interval for a (chain,token) key.",
	}, []string{"chain", "token"})

	// SyncFetches counts SyncWorker fetch attempts, labeled by outcome.
	SyncFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrch",
		Subsystem: "sync",
		Name:      "fetches_total",
		Help:      "SyncWorker fetch attempts by (chain,token,outcome).",
	}, []string{"chain", "token", "outcome"})

	// SyncTransfersIngested counts newly inserted transfers per key.
	SyncTransfersIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrch",
		Subsystem: "sync",
		Name:      "transfers_ingested_total",
		Help:      "Deduplicated transfers inserted by a SyncWorker.",
	}, []string{"chain", "token"})

	// MatchesCommitted counts matched (deposit, transfer) pairs committed
	// by the Matcher.
	MatchesCommitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrch",
		Subsystem: "matcher",
		Name:      "matches_committed_total",
		Help:      "Deposit/transfer pairs committed as paid orders.",
	}, []string{"chain", "token"})

	// UnknownTransfers counts transfers written off as unmatched.
	UnknownTransfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrch",
		Subsystem: "matcher",
		Name:      "unknown_transfers_total",
		Help:      "Confirmed transfers swept with no matching deposit.",
	}, []string{"chain", "token"})

	// WebhookAttempts counts webhook delivery attempts by outcome.
	WebhookAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocrch",
		Subsystem: "webhook",
		Name:      "attempts_total",
		Help:      "Webhook delivery attempts by (kind,outcome).",
	}, []string{"kind", "outcome"})
)

// MustRegister registers every collector in this package against reg.
// Called once from cmd/ocrchd before the HTTP metrics endpoint starts
// serving.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		PoolInterval,
		SyncFetches,
		SyncTransfersIngested,
		MatchesCommitted,
		UnknownTransfers,
		WebhookAttempts,
	)
}
