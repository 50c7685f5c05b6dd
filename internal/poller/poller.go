package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/api"
	"github.com/JuiPharm/BHH-Meal-Ordering-Approve/internal/cache"

	"go.uber.org/zap"
)

// PendingSink receives each pending-count sample (the alerting
// subsystem).
type PendingSink interface {
	OnPendingCount(ctx context.Context, n int)
}

// Poller runs the two refresh loops: a cheap version check that gates
// the expensive full row reload, and an independent pending-count
// sampler. Each loop runs its body sequentially, so ticks never
// overlap; errors are logged and the next tick retries.
type Poller struct {
	client *api.Client
	cache  *cache.RowCache
	sink   PendingSink
	logger *zap.Logger

	pollInterval    time.Duration
	pendingInterval time.Duration
	mode            string
	limit           int

	lastVersion atomic.Int64
	badge       atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(client *api.Client, rows *cache.RowCache, sink PendingSink, pollInterval, pendingInterval time.Duration, mode string, limit int, logger *zap.Logger) *Poller {
	return &Poller{
		client:          client,
		cache:           rows,
		sink:            sink,
		logger:          logger,
		pollInterval:    pollInterval,
		pendingInterval: pendingInterval,
		mode:            mode,
		limit:           limit,
	}
}

// Bootstrap performs the initial load sequence: full reload, first
// pending sample, then seed the version token so the first loop tick
// does not refetch unchanged data. Seeding failure leaves the token
// at 0 and the next version tick reloads.
func (p *Poller) Bootstrap(ctx context.Context) error {
	if err := p.Reload(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	p.RefreshPending(ctx)

	v, err := p.client.Version(ctx)
	if err != nil {
		p.logger.Warn("Failed to seed version token", zap.Error(err))
		v = 0
	}
	p.lastVersion.Store(v)
	return nil
}

// Start launches both loops. Returns an error when already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("poller already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel

	p.logger.Info("Poller started",
		zap.Duration("poll_interval", p.pollInterval),
		zap.Duration("pending_interval", p.pendingInterval),
	)

	p.wg.Add(2)
	go p.runEvery(loopCtx, p.pollInterval, p.versionTick)
	go p.runEvery(loopCtx, p.pendingInterval, p.RefreshPending)
	return nil
}

// Stop cancels the loop timers and waits for in-flight ticks to
// settle. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.logger.Info("Poller stopped")
}

// runEvery calls fn once per interval. The call is synchronous inside
// the loop, so a slow tick delays the next one instead of stacking.
func (p *Poller) runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// versionTick checks the change token and reloads the rows only when
// it moved. Failures skip the tick; the loop never stops.
func (p *Poller) versionTick(ctx context.Context) {
	v, err := p.client.Version(ctx)
	if err != nil {
		p.logger.Debug("Version check failed, skipping tick", zap.Error(err))
		return
	}
	if v == p.lastVersion.Load() {
		return
	}
	p.lastVersion.Store(v)
	p.logger.Debug("Version changed, reloading orders", zap.Int64("version", v))

	if err := p.Reload(ctx); err != nil {
		p.logger.Warn("Order reload failed, retrying next change", zap.Error(err))
		return
	}
	p.RefreshPending(ctx)
}

// Reload fetches the full row set and replaces the cache.
func (p *Poller) Reload(ctx context.Context) error {
	rows, err := p.client.Orders(ctx, p.mode, p.limit)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	p.cache.Replace(rows)
	p.logger.Debug("Row cache replaced", zap.Int("row_count", len(rows)))
	return nil
}

// RefreshPending samples the pending count. When the backend call
// fails it degrades to counting locally cached non-done rows, so the
// badge stays live. Every sample is forwarded to the alert sink.
func (p *Poller) RefreshPending(ctx context.Context) {
	n, err := p.client.PendingCount(ctx)
	if err != nil {
		n = p.cache.CountNonDone()
		p.logger.Debug("Pending count fetch failed, using local approximation",
			zap.Int("local_count", n),
			zap.Error(err),
		)
	}
	p.badge.Store(int64(n))
	if p.sink != nil {
		p.sink.OnPendingCount(ctx, n)
	}
}

// Badge returns the latest displayed pending count.
func (p *Poller) Badge() int {
	return int(p.badge.Load())
}

// Version returns the last observed change token.
func (p *Poller) Version() int64 {
	return p.lastVersion.Load()
}
