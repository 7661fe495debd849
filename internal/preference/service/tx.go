package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "payprefs/pkg/domain-errors"
	platformsync "payprefs/pkg/sync"
)

// Shard contention metrics for monitoring lock behavior
var (
	shardLockWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payprefs_shard_lock_wait_seconds",
		Help:    "Time spent waiting to acquire a preference shard lock",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	shardLockAcquisitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payprefs_shard_lock_acquisitions_total",
		Help: "Total number of preference shard lock acquisitions",
	})
)

// defaultTxTimeout is the maximum duration for a preference transaction.
const defaultTxTimeout = 5 * time.Second

// memoryTx serializes same-key writes with a sharded mutex. It backs the
// in-memory stores, which apply each operation atomically on their own, so
// holding the shard lock across read-decide-write is the whole transaction.
type memoryTx struct {
	mu      *platformsync.ShardedMutex
	stores  Stores
	timeout time.Duration
}

// NewMemoryTx builds a Tx over in-memory stores.
func NewMemoryTx(stores Stores, timeout time.Duration) Tx {
	return &memoryTx{
		mu:      platformsync.NewShardedMutex(),
		stores:  stores,
		timeout: timeout,
	}
}

func (t *memoryTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, st Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Record lock acquisition timing for contention monitoring
	lockStart := time.Now()
	t.mu.Lock(key)
	shardLockWaitDuration.Observe(time.Since(lockStart).Seconds())
	shardLockAcquisitions.Inc()
	defer t.mu.Unlock(key)

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}
