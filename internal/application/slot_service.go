package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

// AvailabilityTTL は空き状況キャッシュの有効期間
const AvailabilityTTL = 30 * time.Second

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SlotCache は枠の空き状況キャッシュ
type SlotCache interface {
	GetAvailability(ctx context.Context, slotID string) (*slot.Availability, error)
	SetAvailability(ctx context.Context, a slot.Availability, ttl time.Duration) error
	Invalidate(ctx context.Context, slotID string) error
}

type SlotService struct {
	store ledger.Store
	cache SlotCache
	clock clock.Clock
	ids   clock.IDGenerator
}

// NewSlotService は新しい SlotService を作成する
// cache が nil の場合はキャッシュを使わない
func NewSlotService(store ledger.Store, cache SlotCache, clk clock.Clock, ids clock.IDGenerator) *SlotService {
	return &SlotService{store: store, cache: cache, clock: clk, ids: ids}
}

type CreateSlotInput struct {
	ResourceID string
	Name       string
	StartAt    time.Time
	EndAt      time.Time
	Capacity   int
	Price      int64
	Currency   string
}

func (s *SlotService) CreateSlot(ctx context.Context, input CreateSlotInput) (*slot.Slot, error) {
	sl := slot.NewSlot(input.ResourceID, input.Name, input.StartAt, input.EndAt, input.Capacity, input.Price, input.Currency, s.clock.Now())
	sl.ID = s.ids.NewID()
	if err := sl.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateSlot(ctx, sl); err != nil {
		return nil, fmt.Errorf("枠の作成に失敗: %w", err)
	}
	return sl, nil
}

func (s *SlotService) GetSlot(ctx context.Context, id string) (*slot.Slot, error) {
	return s.store.GetSlot(ctx, id)
}

func (s *SlotService) ListSlots(ctx context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error) {
	return s.store.ListSlots(ctx, resourceID, clampLimit(limit, defaultPageSize), max(offset, 0))
}

// Availability は空き状況を返す。キャッシュにあればそれを使う
func (s *SlotService) Availability(ctx context.Context, id string) (*slot.Availability, error) {
	if s.cache != nil {
		if a, err := s.cache.GetAvailability(ctx, id); err == nil {
			return a, nil
		}
	}

	sl, err := s.store.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	a := sl.Availability()

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, a, AvailabilityTTL); err != nil {
			logger.FromContext(ctx).Warn("空き状況のキャッシュに失敗", zap.String("slot_id", id), zap.Error(err))
		}
	}
	return &a, nil
}

// invalidate は予約数が変わった枠のキャッシュを破棄する
func (s *SlotService) invalidate(ctx context.Context, slotID string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slotID); err != nil {
		logger.FromContext(ctx).Warn("空き状況キャッシュの破棄に失敗", zap.String("slot_id", slotID), zap.Error(err))
	}
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
