package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// State は予約の状態を表す
type State string

const (
	StateHeld            State = "held"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirmed       State = "confirmed"
	StateCancelled       State = "cancelled"
	StateExpired         State = "expired"
	StateCheckedIn       State = "checked_in"
)

var allStates = []State{StateHeld, StateAwaitingPayment, StateConfirmed, StateCancelled, StateExpired, StateCheckedIn}

// ParseStates はカンマ区切りの状態名を解釈する
// 空文字列は絞り込みなしとして nil を返す
func ParseStates(csv string) ([]State, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var states []State
	for _, name := range strings.Split(csv, ",") {
		st := State(strings.TrimSpace(name))
		if !lo.Contains(allStates, st) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidState, name)
		}
		if !lo.Contains(states, st) {
			states = append(states, st)
		}
	}
	return states, nil
}

// DefaultHoldTTL は仮押さえの既定有効期間
const DefaultHoldTTL = 10 * time.Minute

// Reservation は枠に対する1件の予約を表す
// 状態遷移はメソッド経由で行い、失敗時はフィールドを変更しない
type Reservation struct {
	ID           string
	SlotID       string
	HolderID     string
	State        State
	HoldDeadline time.Time
	PaymentRef   *string
	Amount       int64
	Currency     string
	Version      int
	ConfirmedAt  *time.Time
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewHold は仮押さえ状態の予約を作成する
// 期限は作成時に一度だけ計算され、延長されない
func NewHold(id, slotID, holderID string, amount int64, currency string, now time.Time, ttl time.Duration) *Reservation {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &Reservation{
		ID:           id,
		SlotID:       slotID,
		HolderID:     holderID,
		State:        StateHeld,
		HoldDeadline: now.Add(ttl),
		Amount:       amount,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsTerminal は終了状態（Cancelled, Expired, CheckedIn）かを返す
func (r *Reservation) IsTerminal() bool {
	switch r.State {
	case StateCancelled, StateExpired, StateCheckedIn:
		return true
	}
	return false
}

// IsPending は決済完了前（Held, AwaitingPayment）かを返す
func (r *Reservation) IsPending() bool {
	return r.State == StateHeld || r.State == StateAwaitingPayment
}

// HoldsCapacity は枠の予約数にカウントされる状態かを返す
func (r *Reservation) HoldsCapacity() bool {
	return r.IsPending() || r.State == StateConfirmed
}

// DeadlinePassed は now 時点で仮押さえ期限を過ぎているかを返す
func (r *Reservation) DeadlinePassed(now time.Time) bool {
	return !now.Before(r.HoldDeadline)
}

// PaymentReference は決済参照を返す（未開始なら空文字）
func (r *Reservation) PaymentReference() string {
	if r.PaymentRef == nil {
		return ""
	}
	return *r.PaymentRef
}

// AttachPayment は決済インテントを紐付けて AwaitingPayment に遷移する
// 同じ参照での再呼び出しは何もしない
func (r *Reservation) AttachPayment(ref string, now time.Time) error {
	if ref == "" {
		return ErrPaymentRefRequired
	}
	if err := r.checkPending(now); err != nil {
		return err
	}
	if r.State == StateAwaitingPayment {
		if r.PaymentReference() == ref {
			return nil
		}
		return ErrPaymentAlreadyStarted
	}
	r.State = StateAwaitingPayment
	r.PaymentRef = &ref
	r.UpdatedAt = now
	return nil
}

// Confirm は予約を確定する
func (r *Reservation) Confirm(now time.Time) error {
	if err := r.checkPending(now); err != nil {
		return err
	}
	r.State = StateConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

// Release は決済完了前の予約を Cancelled または Expired にする
// 既に確定・終了している場合や、期限前に Expired を指定した場合は false を返す
func (r *Reservation) Release(to State, now time.Time) (bool, error) {
	if to != StateCancelled && to != StateExpired {
		return false, ErrInvalidTransition
	}
	if !r.IsPending() {
		return false, nil
	}
	if to == StateExpired && !r.DeadlinePassed(now) {
		return false, nil
	}
	r.State = to
	r.ClosedAt = &now
	r.UpdatedAt = now
	return true, nil
}

// CheckIn は確定済みの予約を入場済みにする
func (r *Reservation) CheckIn(now time.Time) error {
	switch r.State {
	case StateConfirmed:
		r.State = StateCheckedIn
		r.ClosedAt = &now
		r.UpdatedAt = now
		return nil
	case StateCheckedIn:
		return ErrAlreadyCheckedIn
	}
	return ErrNotConfirmed
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.SlotID == "" {
		return ErrSlotIDRequired
	}
	if r.HolderID == "" {
		return ErrHolderIDRequired
	}
	if r.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r *Reservation) checkPending(now time.Time) error {
	switch {
	case r.State == StateConfirmed:
		return ErrAlreadyConfirmed
	case r.IsTerminal():
		return ErrAlreadyTerminal
	case r.DeadlinePassed(now):
		return ErrHoldExpired
	}
	return nil
}
