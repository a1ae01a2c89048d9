package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

const defaultSweepBatchSize = 100

// SweepResult は1回のスイープの集計
type SweepResult struct {
	Expired int
	// Skipped は確定との競合に負けた等で解放しなかった件数
	Skipped int
	Failed  int
}

// ExpiryService は期限切れの仮押さえを解放する
type ExpiryService struct {
	store     ledger.Store
	slots     *SlotService
	events    eventEmitter
	clock     clock.Clock
	batchSize int
	metrics   *metrics.Metrics
}

func NewExpiryService(store ledger.Store, slots *SlotService, publisher event.Publisher, clk clock.Clock, batchSize int, m *metrics.Metrics) *ExpiryService {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &ExpiryService{
		store:     store,
		slots:     slots,
		events:    newEventEmitter(publisher, m),
		clock:     clk,
		batchSize: batchSize,
		metrics:   m,
	}
}

// SweepExpired は期限を過ぎた Held / AwaitingPayment の予約を Expired にする
// 一覧は (HoldDeadline, ID) のカーソルで先へ進めるため、失敗し続ける予約があっても後続は処理される
// 個別の失敗はログに残して続行し、一覧の取得に失敗した場合のみエラーを返す
func (s *ExpiryService) SweepExpired(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	start := time.Now()
	defer func() {
		s.metrics.Sweep(result.Expired, result.Skipped, result.Failed, time.Since(start))
	}()

	log := logger.FromContext(ctx)
	now := s.clock.Now()

	var after *ledger.HoldCursor
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := s.store.ListExpiredHolds(ctx, now, after, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("期限切れ仮押さえの取得に失敗: %w", err)
		}

		for _, r := range batch {
			released, err := s.expire(ctx, r, now)
			switch {
			case err != nil:
				result.Failed++
				log.Error("仮押さえの失効に失敗", zap.String("reservation_id", r.ID), zap.Error(err))
			case released:
				result.Expired++
			default:
				result.Skipped++
			}
		}

		if len(batch) < s.batchSize {
			return result, nil
		}
		after = ledger.CursorOf(batch[len(batch)-1])
	}
}

func (s *ExpiryService) expire(ctx context.Context, r *reservation.Reservation, now time.Time) (bool, error) {
	updated, released, err := s.store.Release(ctx, r.ID, reservation.StateExpired, now)
	if err != nil || !released {
		return false, err
	}

	s.slots.invalidate(ctx, updated.SlotID)
	s.events.emit(ctx, &event.ReservationExpired{
		ReservationID: updated.ID,
		SlotID:        updated.SlotID,
		HolderID:      updated.HolderID,
		HoldDeadline:  updated.HoldDeadline,
		OccurredAt:    now,
	})
	return true, nil
}
