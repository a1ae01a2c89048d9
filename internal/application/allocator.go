package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/retry"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/tracing"
)

// 保有者の予約一覧のページサイズ
const holderPageSize = 15

// ロック解放に使う時間の上限
const lockReleaseTimeout = 2 * time.Second

// SlotLocker は枠単位の分散ロック
// 返される関数でロックを解放する
type SlotLocker interface {
	LockSlot(ctx context.Context, slotID string) (func(context.Context), error)
}

// Allocator は枠の仮押さえを行う
type Allocator struct {
	store   ledger.Store
	locker  SlotLocker
	slots   *SlotService
	clock   clock.Clock
	ids     clock.IDGenerator
	holdTTL time.Duration
	policy  retry.Policy
	metrics *metrics.Metrics
}

// NewAllocator は新しい Allocator を作成する
// locker が nil の場合は分散ロックを取らず台帳の原子性のみに頼る
func NewAllocator(store ledger.Store, locker SlotLocker, slots *SlotService, clk clock.Clock, ids clock.IDGenerator, holdTTL time.Duration, policy retry.Policy, m *metrics.Metrics) *Allocator {
	if holdTTL <= 0 {
		holdTTL = reservation.DefaultHoldTTL
	}
	return &Allocator{
		store:   store,
		locker:  locker,
		slots:   slots,
		clock:   clk,
		ids:     ids,
		holdTTL: holdTTL,
		policy:  policy,
		metrics: m,
	}
}

type ClaimInput struct {
	SlotID   string
	HolderID string
}

// ClaimResult は仮押さえの結果
// 同じ保有者の再要求では既存の仮押さえが Created=false で返る
type ClaimResult struct {
	Reservation *reservation.Reservation
	Created     bool
}

// Claim は枠を1つ仮押さえする
// 期限は now + holdTTL で固定され、延長されない
func (a *Allocator) Claim(ctx context.Context, input ClaimInput) (*ClaimResult, error) {
	ctx, span := tracing.Start(ctx, "Allocator.Claim")
	defer span.End()
	span.SetAttributes(attribute.String("slot_id", input.SlotID))

	if input.SlotID == "" {
		return nil, reservation.ErrSlotIDRequired
	}
	if input.HolderID == "" {
		return nil, reservation.ErrHolderIDRequired
	}

	log := logger.FromContext(ctx).With(zap.String("slot_id", input.SlotID), zap.String("holder_id", input.HolderID))

	if a.locker != nil {
		release, err := a.locker.LockSlot(ctx, input.SlotID)
		if err != nil {
			// 台帳側で原子性が保証されるためロック無しで続行する
			a.metrics.Claim("lock_failed")
			log.Warn("枠ロックの取得に失敗", zap.Error(err))
		} else {
			defer releaseLock(ctx, release)
		}
	}

	now := a.clock.Now()
	sl, err := a.store.GetSlot(ctx, input.SlotID)
	if err != nil {
		a.metrics.Claim("error")
		return nil, err
	}
	if !sl.IsBookingOpen(now) {
		a.metrics.Claim("closed")
		return nil, slot.ErrSlotClosed
	}

	candidate := reservation.NewHold(a.ids.NewID(), sl.ID, input.HolderID, sl.Price, sl.Currency, now, a.holdTTL)

	var (
		res     *reservation.Reservation
		created bool
	)
	err = retry.Do(ctx, a.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		res, created, err = a.store.TryReserve(ctx, candidate)
		return err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrCapacityExceeded) {
			a.metrics.Claim("slot_full")
			log.Info("満席のため仮押さえできません")
			return nil, ErrSlotFull
		}
		a.metrics.Claim("error")
		return nil, fmt.Errorf("仮押さえに失敗: %w", err)
	}

	if created {
		a.metrics.Claim("created")
		a.slots.invalidate(ctx, sl.ID)
		log.Info("仮押さえ作成", zap.String("reservation_id", res.ID), zap.Time("hold_deadline", res.HoldDeadline))
	} else {
		a.metrics.Claim("existing")
	}
	return &ClaimResult{Reservation: res, Created: created}, nil
}

// GetReservation は保有者本人の予約を返す
func (a *Allocator) GetReservation(ctx context.Context, id, holderID string) (*reservation.Reservation, error) {
	return ownedReservation(ctx, a.store, id, holderID)
}

// ListHolderReservations は保有者の予約を新しい順に返す
// states が空なら全状態を返す
func (a *Allocator) ListHolderReservations(ctx context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error) {
	if holderID == "" {
		return nil, reservation.ErrHolderIDRequired
	}
	return a.store.ListByHolder(ctx, holderID, states, clampLimit(limit, holderPageSize), max(offset, 0))
}

// releaseLock はリクエストのキャンセルに関係なくロックを解放する
// キャンセル済みの ctx で解放すると TTL が切れるまで枠がロックされたままになる
func releaseLock(ctx context.Context, release func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()
	release(ctx)
}

func ownedReservation(ctx context.Context, store ledger.Store, id, holderID string) (*reservation.Reservation, error) {
	r, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.HolderID != holderID {
		return nil, ErrNotReservationHolder
	}
	return r, nil
}
