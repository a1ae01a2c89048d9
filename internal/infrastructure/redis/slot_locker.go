package redis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

// SlotLocker は枠単位の分散ロック（lock:slot:<id>）を提供する
type SlotLocker struct {
	manager    *LockManager
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
	metrics    *metrics.Metrics
}

// NewSlotLocker は新しい SlotLocker を作成する
func NewSlotLocker(manager *LockManager, ttl time.Duration, maxRetries int, retryDelay time.Duration, m *metrics.Metrics) *SlotLocker {
	return &SlotLocker{
		manager:    manager,
		ttl:        ttl,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		metrics:    m,
	}
}

// LockSlot は枠のロックを取得し、解放関数を返す
func (l *SlotLocker) LockSlot(ctx context.Context, slotID string) (func(context.Context), error) {
	start := time.Now()
	lock, err := l.manager.AcquireWithRetry(ctx, "slot:"+slotID, l.ttl, l.maxRetries, l.retryDelay)
	if err != nil {
		l.metrics.LockDuration("acquire", "failed", time.Since(start))
		return nil, err
	}
	l.metrics.LockDuration("acquire", "success", time.Since(start))

	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil {
			// TTL 切れで他者に渡っている場合もここに来る
			logger.Warn("枠ロックの解放に失敗", zap.String("slot_id", slotID), zap.Error(err))
		}
	}, nil
}
