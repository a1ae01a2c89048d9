package payment

import (
	"context"
	"time"
)

// CompensationStatus は返金処理の状態
type CompensationStatus string

const (
	CompensationPending  CompensationStatus = "pending"
	CompensationRefunded CompensationStatus = "refunded"
	CompensationFailed   CompensationStatus = "failed"
)

// Compensation は仮押さえ失効後に決済が成立した場合の返金義務
type Compensation struct {
	ID            string
	ReservationID string
	IntentRef     string
	Amount        int64
	Currency      string
	Reason        string
	Status        CompensationStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCompensation は pending 状態の返金義務を作成する
func NewCompensation(id, reservationID, intentRef string, amount int64, currency, reason string, now time.Time) *Compensation {
	return &Compensation{
		ID:            id,
		ReservationID: reservationID,
		IntentRef:     intentRef,
		Amount:        amount,
		Currency:      currency,
		Reason:        reason,
		Status:        CompensationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IdempotencyKey は決済プロセッサへの返金要求に使う冪等キー
func (c *Compensation) IdempotencyKey() string {
	return "refund-" + c.IntentRef
}

// CanProcess は返金処理を実行してよい状態かを返す
func (c *Compensation) CanProcess() bool {
	return c.Status != CompensationRefunded
}

// MarkRefunded は返金完了を記録する
func (c *Compensation) MarkRefunded(now time.Time) {
	c.Attempts++
	c.Status = CompensationRefunded
	c.LastError = ""
	c.UpdatedAt = now
}

// MarkFailed は返金失敗を記録する
func (c *Compensation) MarkFailed(cause error, now time.Time) {
	c.Attempts++
	c.Status = CompensationFailed
	if cause != nil {
		c.LastError = cause.Error()
	}
	c.UpdatedAt = now
}

// CompensationRepository は返金義務の永続化を表すインターフェース
type CompensationRepository interface {
	// Create は返金義務を保存する
	// 同じ IntentRef が存在する場合は ErrCompensationExists を返す
	Create(ctx context.Context, c *Compensation) error
	GetByID(ctx context.Context, id string) (*Compensation, error)
	GetByIntentRef(ctx context.Context, ref string) (*Compensation, error)
	// List は status で絞り込んだ一覧を返す（空文字なら全件）
	List(ctx context.Context, status CompensationStatus, limit, offset int) ([]*Compensation, error)
	Update(ctx context.Context, c *Compensation) error
}
