package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/queuebot/queuebot/internal/repositories"
	"github.com/queuebot/queuebot/internal/utils"
	logger "github.com/queuebot/queuebot/middleware/log"
)

// RefreshFunc executes one render-and-push cycle for a queue.
type RefreshFunc func(ctx context.Context, store *repositories.Store, queueID uint, opts RefreshOpts) error

type refreshRequest struct {
	store *repositories.Store
	opts  RefreshOpts
}

// DisplayScheduler coalesces display refresh requests per queue.
//
// A queue not currently mid-cycle refreshes immediately and is marked active
// for the rest of the tick window. Requests for an active queue land in the
// pending map, each superseding the last: coalescing keeps the most recent
// intent, not a FIFO of intents. The tick drains pending and clears both
// maps, so a queue updated 50 times inside one window renders at most twice.
//
// The scheduler is a constructed object owned by the composition root; there
// is no package-level instance, so tests build isolated schedulers.
type DisplayScheduler struct {
	mu      sync.Mutex
	active  map[uint]struct{}
	pending map[uint]refreshRequest

	run    RefreshFunc
	pool   *utils.WorkerPool
	log    *logger.Logger
	period time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// NewDisplayScheduler creates a stopped scheduler. run is invoked on the
// worker pool for every refresh execution.
func NewDisplayScheduler(run RefreshFunc, pool *utils.WorkerPool, log *logger.Logger, period time.Duration) *DisplayScheduler {
	if period <= 0 {
		period = 1500 * time.Millisecond
	}
	return &DisplayScheduler{
		active:  make(map[uint]struct{}),
		pending: make(map[uint]refreshRequest),
		run:     run,
		pool:    pool,
		log:     log,
		period:  period,
		done:    make(chan struct{}),
	}
}

// Start launches the tick loop.
func (d *DisplayScheduler) Start() {
	go func() {
		ticker := time.NewTicker(d.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.drain()
			case <-d.done:
				return
			}
		}
	}()
}

// Stop halts the tick loop. In-flight refreshes run to completion on the
// worker pool.
func (d *DisplayScheduler) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

// RequestRefresh asks for the queue's displays to be re-rendered and
// pushed. Fire-and-forget: the caller never waits on the render or push.
func (d *DisplayScheduler) RequestRefresh(store *repositories.Store, queueID uint, opts RefreshOpts) {
	d.mu.Lock()
	if _, inFlight := d.active[queueID]; inFlight {
		// Supersede any earlier pending request for this queue.
		d.pending[queueID] = refreshRequest{store: store, opts: opts}
		d.mu.Unlock()
		return
	}
	d.active[queueID] = struct{}{}
	d.mu.Unlock()

	d.execute(queueID, refreshRequest{store: store, opts: opts})
}

// RequestRefreshMany requests a refresh for each distinct queue ID.
func (d *DisplayScheduler) RequestRefreshMany(store *repositories.Store, queueIDs []uint, opts RefreshOpts) {
	seen := make(map[uint]struct{}, len(queueIDs))
	for _, id := range queueIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		d.RequestRefresh(store, id, opts)
	}
}

// drain runs the pending refreshes and atomically resets both maps. Queues
// drained here are active for the next window, so another burst against
// them coalesces again.
func (d *DisplayScheduler) drain() {
	d.mu.Lock()
	drained := d.pending
	d.pending = make(map[uint]refreshRequest)
	d.active = make(map[uint]struct{}, len(drained))
	for queueID := range drained {
		d.active[queueID] = struct{}{}
	}
	d.mu.Unlock()

	for queueID, req := range drained {
		d.execute(queueID, req)
	}
}

func (d *DisplayScheduler) execute(queueID uint, req refreshRequest) {
	d.pool.Submit(func() {
		ctx := logger.WithCycleIDContext(context.Background(), "")
		if err := d.run(ctx, req.store, queueID, req.opts); err != nil {
			// A broken queue must not take the scheduler down or block
			// other queues; log and let the tick clear the active flag.
			d.log.WithContext(ctx).Error("display refresh cycle failed",
				zap.Uint("queue_id", queueID),
				zap.Error(err),
			)
		}
	})
}
