package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/atinylittleshell/ctxbridge/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrently running detached calls.
const DefaultMaxInFlight = 16

// Dispatcher runs best-effort service calls off the caller's path. A
// failed or dropped call is logged and counted, never returned.
type Dispatcher struct {
	logger  *zap.Logger
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher whose calls each run under timeout.
func NewDispatcher(timeout time.Duration, maxInFlight int, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:  logger,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// Go submits fn and returns immediately. When maxInFlight calls are
// already running the call is dropped.
func (d *Dispatcher) Go(operation string, fn func(ctx context.Context) error) {
	if !d.sem.TryAcquire(1) {
		metrics.DetachedFailure(operation)
		d.logger.Warn("dropping detached call, too many in flight", zap.String("operation", operation))
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.DetachedFailure(operation)
			d.logger.Warn("detached call failed", zap.String("operation", operation), zap.Error(err))
		}
	}()
}

// Wait blocks until every submitted call has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
