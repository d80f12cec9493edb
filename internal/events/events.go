// Package events defines the four ephemeral event kinds spec §2's pipeline
// diagram passes between stages, plus the bounded-mailbox primitives
// spec §5 requires (capacity 256 for stage-to-stage mailboxes, 64 for the
// config-update broadcast, 256 for order-status fan-out). Events carry
// only identifiers; recipients re-read authoritative state from the store.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/ocrch/engine/internal/entity"
)

// MailboxCapacity is the bounded channel size used for every stage-to-stage
// event mailbox (spec §5).
const MailboxCapacity = 256

// ConfigBroadcastCapacity is the bounded channel size for the versioned
// config-update broadcast the PoolingManager watches (spec §5).
const ConfigBroadcastCapacity = 64

// OrderStatusBroadcastCapacity is the bounded channel size for the
// WebSocket order-status fan-out (spec §5).
const OrderStatusBroadcastCapacity = 256

// PendingDepositChanged notifies the PoolingManager that a new pending
// deposit was allocated for k, so its next tick should fire sooner
// (spec §4.1).
type PendingDepositChanged struct {
	Key entity.PoolKey
	At  time.Time
}

// PoolingTick is emitted once per interval for each active k, driving its
// SyncWorker (spec §4.1).
type PoolingTick struct {
	Key entity.PoolKey
}

// MatchTick is emitted by a SyncWorker after every fetch attempt — even a
// failed one, with Count 0 — so the Matcher still processes previously
// confirmed transfers (spec §4.2 "Emission").
type MatchTick struct {
	Key   entity.PoolKey
	Count int
}

// WebhookEventKind tags which shape a WebhookEvent carries.
type WebhookEventKind int

const (
	OrderStatusChanged WebhookEventKind = iota
	UnknownTransferReceived
)

// WebhookEvent is emitted by the Matcher and consumed by the WebhookSender
// (spec §4.3, §4.4). Only one of OrderID/TransferID is meaningful,
// depending on Kind.
type WebhookEvent struct {
	Kind       WebhookEventKind
	OrderID    uuid.UUID
	TransferID int64
	Key        entity.PoolKey // (chain, token) the unknown transfer belongs to
}
