// Package pooling implements spec §4.1's adaptive pooling scheduler: one
// tick loop per active (chain,token) key whose interval shrinks with
// recent activity and grows when idle, reconciled live against the
// config store's active-key set.
package pooling

import (
	"context"
	"sync"
	"time"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/metrics"
)

// keyUpdate is what the manager's single broadcast channel carries: the
// key whose last_pending_at just changed, and the new timestamp
// (spec §4.1: "a broadcast channel of (k, timestamp) update
// notifications").
type keyUpdate struct {
	Key entity.PoolKey
	At  time.Time
}

// Manager is the PoolingManager of spec §4.1.
type Manager struct {
	log logging.Logger

	config *config.SharedConfig
	ticks  chan events.PoolingTick
	input  chan events.PendingDepositChanged

	clock func() time.Time

	mu            sync.Mutex
	lastPendingAt map[entity.PoolKey]time.Time
	cancelFuncs   map[entity.PoolKey]context.CancelFunc
	wg            sync.WaitGroup

	updates *events.Broadcast[keyUpdate]
}

// NewManager constructs a Manager wired to cfg. Ticks is the downstream
// mailbox the caller should read PoolingTick events from; it is created
// with spec §5's bounded mailbox capacity.
func NewManager(cfg *config.SharedConfig) *Manager {
	return &Manager{
		log:           logging.WithComponent("pooling"),
		config:        cfg,
		ticks:         make(chan events.PoolingTick, events.MailboxCapacity),
		input:         make(chan events.PendingDepositChanged, events.MailboxCapacity),
		clock:         time.Now,
		lastPendingAt: make(map[entity.PoolKey]time.Time),
		cancelFuncs:   make(map[entity.PoolKey]context.CancelFunc),
		updates:       events.NewBroadcast[keyUpdate](events.ConfigBroadcastCapacity),
	}
}

// Ticks returns the downstream mailbox of PoolingTick events.
func (m *Manager) Ticks() <-chan events.PoolingTick { return m.ticks }

// Input returns the mailbox PendingDepositChanged events should be sent
// to.
func (m *Manager) Input() chan<- events.PendingDepositChanged { return m.input }

// Run is the Manager's supervised task: it seeds tick loops for the
// current active set, then reconciles on every config change and drains
// PendingDepositChanged events until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.reconcile(ctx, m.config.ActiveKeys())

	activeCh, unsubscribe := m.config.SubscribeActiveKeys()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			m.shutdownAll()
			return nil
		case change := <-activeCh:
			m.reconcile(ctx, change.Active)
		case evt := <-m.input:
			m.handlePendingDepositChanged(evt)
		}
	}
}

// handlePendingDepositChanged records last_pending_at[k] and broadcasts it
// to the matching tick loop, or logs and drops an unknown k (spec §4.1:
// "never create sync loops not listed in config").
func (m *Manager) handlePendingDepositChanged(evt events.PendingDepositChanged) {
	m.mu.Lock()
	_, known := m.cancelFuncs[evt.Key]
	if known {
		m.lastPendingAt[evt.Key] = evt.At
	}
	m.mu.Unlock()

	if !known {
		m.log.Warn("dropping PendingDepositChanged for inactive key", "chain", evt.Key.Chain, "token", evt.Key.Token)
		return
	}
	m.updates.Publish(keyUpdate{Key: evt.Key, At: evt.At})
}

// reconcile diffs the active-task table against want, cancelling removed
// tasks and spawning new ones. Existing tasks — and their accumulated
// last_pending_at state — are left untouched (spec §4.1 "Reconciliation").
func (m *Manager) reconcile(ctx context.Context, want map[entity.PoolKey]struct{}) {
	m.mu.Lock()
	toStop := make([]entity.PoolKey, 0)
	for k := range m.cancelFuncs {
		if _, ok := want[k]; !ok {
			toStop = append(toStop, k)
		}
	}
	toStart := make([]entity.PoolKey, 0)
	for k := range want {
		if _, ok := m.cancelFuncs[k]; !ok {
			toStart = append(toStart, k)
		}
	}
	for _, k := range toStop {
		m.cancelFuncs[k]()
		delete(m.cancelFuncs, k)
		delete(m.lastPendingAt, k)
	}
	for _, k := range toStart {
		taskCtx, cancel := context.WithCancel(ctx)
		m.cancelFuncs[k] = cancel
		m.wg.Add(1)
		go m.runTickLoop(taskCtx, k)
	}
	m.mu.Unlock()

	for _, k := range toStop {
		m.log.Info("stopped sync loop for removed key", "chain", k.Chain, "token", k.Token)
	}
	for _, k := range toStart {
		m.log.Info("started sync loop for new key", "chain", k.Chain, "token", k.Token)
	}
}

func (m *Manager) shutdownAll() {
	m.mu.Lock()
	for _, cancel := range m.cancelFuncs {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// runTickLoop is the per-k control loop of spec §4.1's "Control loop":
// race a sleep for the current interval against a matching update or
// shutdown; on sleep expiry emit a tick, on update restart immediately
// without sleeping (forcing interval recalculation).
func (m *Manager) runTickLoop(ctx context.Context, k entity.PoolKey) {
	defer m.wg.Done()

	updateCh, unsubscribe := m.updates.Subscribe()
	defer unsubscribe()

	for {
		m.mu.Lock()
		last := m.lastPendingAt[k]
		m.mu.Unlock()

		interval := NextInterval(last, m.clock())
		metrics.PoolInterval.WithLabelValues(string(k.Chain), string(k.Token)).Set(interval.Seconds())
		timer := time.NewTimer(interval)

		waiting := true
		for waiting {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				select {
				case m.ticks <- events.PoolingTick{Key: k}:
				case <-ctx.Done():
					return
				}
				waiting = false
			case u := <-updateCh:
				if u.Key != k {
					continue
				}
				timer.Stop()
				m.mu.Lock()
				m.lastPendingAt[k] = u.At
				m.mu.Unlock()
				waiting = false // loop immediately: interval recalculated next iteration
			}
		}
	}
}
