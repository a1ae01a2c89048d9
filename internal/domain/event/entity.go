package event

import (
	"context"
	"time"
)

// Publisher はドメインイベントを配信するインターフェース
// 配信の失敗はコア処理を失敗させない（呼び出し側でログとメトリクスのみ）
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// ReservationConfirmed は決済成功により予約が確定したことを表す
type ReservationConfirmed struct {
	ReservationID string    `json:"reservation_id"`
	SlotID        string    `json:"slot_id"`
	HolderID      string    `json:"holder_id"`
	PaymentRef    string    `json:"payment_ref"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationExpired は仮押さえが期限切れで解放されたことを表す
type ReservationExpired struct {
	ReservationID string    `json:"reservation_id"`
	SlotID        string    `json:"slot_id"`
	HolderID      string    `json:"holder_id"`
	HoldDeadline  time.Time `json:"hold_deadline"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ReservationCancelled は予約がキャンセル（決済失敗を含む）されたことを表す
type ReservationCancelled struct {
	ReservationID string    `json:"reservation_id"`
	SlotID        string    `json:"slot_id"`
	HolderID      string    `json:"holder_id"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TicketIssued はチケットが発行されたことを表す
type TicketIssued struct {
	ReservationID string    `json:"reservation_id"`
	SlotID        string    `json:"slot_id"`
	HolderID      string    `json:"holder_id"`
	KeyID         string    `json:"key_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RefundScheduled は失効後に成立した決済の返金が予定されたことを表す
type RefundScheduled struct {
	CompensationID string    `json:"compensation_id"`
	ReservationID  string    `json:"reservation_id"`
	IntentRef      string    `json:"intent_ref"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// CheckedIn は入場が受け付けられたことを表す
type CheckedIn struct {
	ReservationID string    `json:"reservation_id"`
	SlotID        string    `json:"slot_id"`
	HolderID      string    `json:"holder_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Name はイベント名を返す（トピック名に使用）
func Name(event any) string {
	switch event.(type) {
	case ReservationConfirmed, *ReservationConfirmed:
		return "ReservationConfirmed"
	case ReservationExpired, *ReservationExpired:
		return "ReservationExpired"
	case ReservationCancelled, *ReservationCancelled:
		return "ReservationCancelled"
	case TicketIssued, *TicketIssued:
		return "TicketIssued"
	case RefundScheduled, *RefundScheduled:
		return "RefundScheduled"
	case CheckedIn, *CheckedIn:
		return "CheckedIn"
	}
	return "Unknown"
}

// NopPublisher は何も配信しない Publisher
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, any) error { return nil }
