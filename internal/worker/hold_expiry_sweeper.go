package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

// HoldSweeper は期限切れの仮押さえを解放するインターフェース
type HoldSweeper interface {
	SweepExpired(ctx context.Context) (application.SweepResult, error)
}

// HoldExpirySweeper は一定間隔で期限切れの仮押さえを解放するワーカー
// リクエスト処理とは別の、自身が所有するコンテキストで動作する
type HoldExpirySweeper struct {
	sweeper  HoldSweeper
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewHoldExpirySweeper は新しいスイーパーを作成
func NewHoldExpirySweeper(sweeper HoldSweeper, interval time.Duration) *HoldExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HoldExpirySweeper{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start はスイーパーをバックグラウンドで開始する。起動直後に1回スイープする
// 既に動作中の場合は何もしない
func (w *HoldExpirySweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	logger.Info("仮押さえ期限切れスイーパー開始", zap.Duration("interval", w.interval))
	go w.run(ctx, w.doneCh)
}

// Stop はスイーパーを停止し、実行中のスイープの終了を待つ
func (w *HoldExpirySweeper) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.doneCh
	w.cancel, w.doneCh = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.Info("仮押さえ期限切れスイーパー停止")
}

func (w *HoldExpirySweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *HoldExpirySweeper) sweep(ctx context.Context) {
	log := logger.Get()

	result, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("仮押さえのスイープ失敗", zap.Error(err))
		return
	}

	if result.Expired > 0 || result.Failed > 0 {
		log.Info("期限切れの仮押さえを解放",
			zap.Int("expired", result.Expired),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	} else {
		log.Debug("期限切れの仮押さえなし")
	}
}
