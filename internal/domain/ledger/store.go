package ledger

import (
	"context"
	"time"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

// Store は枠と予約の台帳を表すインターフェース
//
// 各メソッドは枠単位（または予約単位）のアトミックな操作であり、
// 枠ごとに「保持中の予約数 == Reserved」が常に成り立つ。
// 保持中とは Held / AwaitingPayment / Confirmed のいずれかを指す。
type Store interface {
	// CreateSlot は検証済みの枠を保存する
	CreateSlot(ctx context.Context, s *slot.Slot) error

	// GetSlot はIDから枠を取得する
	GetSlot(ctx context.Context, id string) (*slot.Slot, error)

	// ListSlots は枠一覧を取得する（resourceID が空なら全件）
	ListSlots(ctx context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error)

	// TryReserve は枠の排他区間内で予約を試みる
	//
	// 同じ予約者が保持中の予約を持っていればそれを created=false で返す。
	// 満席なら ErrCapacityExceeded を返す。
	// それ以外は candidate を保存して Reserved を1増やし、created=true を返す。
	TryReserve(ctx context.Context, candidate *reservation.Reservation) (*reservation.Reservation, bool, error)

	// Get はIDから予約を取得する
	Get(ctx context.Context, id string) (*reservation.Reservation, error)

	// GetByPaymentRef は決済参照から予約を取得する
	GetByPaymentRef(ctx context.Context, ref string) (*reservation.Reservation, error)

	// ListByHolder は予約者の予約一覧を新しい順に取得する
	// states が空でなければその状態の予約だけを返す
	ListByHolder(ctx context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error)

	// AttachPayment は決済参照を紐付けて AwaitingPayment に遷移する
	AttachPayment(ctx context.Context, id, ref string, now time.Time) (*reservation.Reservation, error)

	// Confirm は予約を確定する
	// 書き込み時点で期限を過ぎていれば ErrHoldExpired を返し、何も変更しない
	Confirm(ctx context.Context, id string, now time.Time) (*reservation.Reservation, error)

	// Release は決済完了前の予約を to（Cancelled / Expired）にして Reserved を1減らす
	// 確定済み・終了済みの場合は released=false をエラーなしで返す
	Release(ctx context.Context, id string, to reservation.State, now time.Time) (*reservation.Reservation, bool, error)

	// CheckIn は確定済みの予約を入場済みにして Reserved を1減らす
	// 枠の開始前は slot.ErrCheckInNotOpen を返す
	CheckIn(ctx context.Context, id string, now time.Time) (*reservation.Reservation, error)

	// ListExpiredHolds は now 時点で期限切れの仮押さえを (HoldDeadline, ID) の昇順に取得する
	// after を指定するとその位置より後ろだけを返す
	ListExpiredHolds(ctx context.Context, now time.Time, after *HoldCursor, limit int) ([]*reservation.Reservation, error)
}

// HoldCursor は期限切れ一覧のキーセット位置
type HoldCursor struct {
	HoldDeadline time.Time
	ID           string
}

// CursorOf は r の直後から続きを取得するためのカーソルを返す
func CursorOf(r *reservation.Reservation) *HoldCursor {
	return &HoldCursor{HoldDeadline: r.HoldDeadline, ID: r.ID}
}

// After は r がカーソルより後ろにあるかを返す
func (c *HoldCursor) After(r *reservation.Reservation) bool {
	if c == nil {
		return true
	}
	if r.HoldDeadline.Equal(c.HoldDeadline) {
		return r.ID > c.ID
	}
	return r.HoldDeadline.After(c.HoldDeadline)
}
