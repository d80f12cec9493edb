package sync

import (
	"context"
	"sync"

	"github.com/ocrch/engine/internal/config"
	"github.com/ocrch/engine/internal/entity"
	"github.com/ocrch/engine/internal/events"
	"github.com/ocrch/engine/internal/logging"
	"github.com/ocrch/engine/internal/store"
)

// Coordinator owns one Worker per active (chain,token) key, routing
// incoming PoolingTick events to the matching worker's own mailbox and
// publishing every resulting MatchTick to a single downstream channel
// the Matcher reads from. Its start/stop-on-reconfigure shape mirrors
// pooling.Manager's reconcile loop (spec §4.1's reconciliation pattern
// reused here for SyncWorker lifecycle, since both answer "which k are
// currently active" off the same config-store active-set broadcast).
type Coordinator struct {
	config     *config.SharedConfig
	store      *store.Store
	etherscan  func() EVMExplorer
	tronscan   func() TronExplorer
	matchTicks chan events.MatchTick
	log        logging.Logger

	mu      sync.Mutex
	workers map[entity.PoolKey]Worker
	inputs  map[entity.PoolKey]chan events.PoolingTick
	cancels map[entity.PoolKey]context.CancelFunc
	wg      sync.WaitGroup
}

// NewCoordinator builds a Coordinator. etherscan/tronscan are factories
// called once for every worker the Coordinator builds; whether workers
// share one explorer client is up to what the factory returns.
func NewCoordinator(cfg *config.SharedConfig, st *store.Store, etherscan func() EVMExplorer, tronscan func() TronExplorer) *Coordinator {
	return &Coordinator{
		config:     cfg,
		store:      st,
		etherscan:  etherscan,
		tronscan:   tronscan,
		matchTicks: make(chan events.MatchTick, events.MailboxCapacity),
		log:        logging.WithComponent("sync-coordinator"),
		workers:    make(map[entity.PoolKey]Worker),
		inputs:     make(map[entity.PoolKey]chan events.PoolingTick),
		cancels:    make(map[entity.PoolKey]context.CancelFunc),
	}
}

// MatchTicks returns the downstream mailbox the Matcher consumes.
func (c *Coordinator) MatchTicks() <-chan events.MatchTick { return c.matchTicks }

// Run reconciles the worker set against the config store's active keys
// and routes every incoming PoolingTick to its worker until ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context, ticks <-chan events.PoolingTick) error {
	c.reconcile(ctx, c.config.ActiveKeys())

	activeCh, unsubscribe := c.config.SubscribeActiveKeys()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			c.shutdownAll()
			return nil
		case change := <-activeCh:
			c.reconcile(ctx, change.Active)
		case tick := <-ticks:
			c.route(tick)
		}
	}
}

func (c *Coordinator) route(tick events.PoolingTick) {
	c.mu.Lock()
	in, ok := c.inputs[tick.Key]
	c.mu.Unlock()
	if !ok {
		c.log.Warn("dropping tick for key with no worker", "chain", tick.Key.Chain, "token", tick.Key.Token)
		return
	}
	select {
	case in <- tick:
	default:
		c.log.Warn("worker mailbox full, dropping tick", "chain", tick.Key.Chain, "token", tick.Key.Token)
	}
}

func (c *Coordinator) reconcile(ctx context.Context, want map[entity.PoolKey]struct{}) {
	c.mu.Lock()
	var toStop []entity.PoolKey
	for k := range c.workers {
		if _, ok := want[k]; !ok {
			toStop = append(toStop, k)
		}
	}
	var toStart []entity.PoolKey
	for k := range want {
		if _, ok := c.workers[k]; !ok {
			toStart = append(toStart, k)
		}
	}
	for _, k := range toStop {
		c.cancels[k]()
		delete(c.cancels, k)
		delete(c.workers, k)
		delete(c.inputs, k)
	}
	for _, k := range toStart {
		worker := c.buildWorker(k)
		in := make(chan events.PoolingTick, events.MailboxCapacity)
		taskCtx, cancel := context.WithCancel(ctx)
		c.workers[k] = worker
		c.inputs[k] = in
		c.cancels[k] = cancel
		c.wg.Add(1)
		go c.runWorker(taskCtx, worker, in)
	}
	c.mu.Unlock()

	for _, k := range toStop {
		c.log.Info("stopped sync worker for removed key", "chain", k.Chain, "token", k.Token)
	}
	for _, k := range toStart {
		c.log.Info("started sync worker for new key", "chain", k.Chain, "token", k.Token)
	}
}

func (c *Coordinator) buildWorker(k entity.PoolKey) Worker {
	if k.Chain == entity.Tron {
		return NewTronWorker(k.Token, c.tronscan(), c.store, c.config)
	}
	return NewEVMWorker(k, c.etherscan(), c.store, c.config)
}

// runWorker serially processes its key's mailbox (spec §5: "within one
// k, SyncWorker runs at most one fetch at a time"), emitting a MatchTick
// after every tick regardless of outcome.
func (c *Coordinator) runWorker(ctx context.Context, w Worker, in <-chan events.PoolingTick) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-in:
			runWorkerOnTick(ctx, w, c.matchTicks)
		}
	}
}

func (c *Coordinator) shutdownAll() {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
