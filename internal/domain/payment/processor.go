package payment

import "context"

// IntentRequest は決済インテント作成要求
type IntentRequest struct {
	ReservationID string
	Amount        int64
	Currency      string
}

// Intent は決済プロセッサが発行した決済インテント
type Intent struct {
	Ref         string
	RedirectURL string
}

// RefundRequest は返金要求
type RefundRequest struct {
	IntentRef      string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// Processor は外部決済プロセッサとの契約
// 決済結果はコールバックで非同期に通知される
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Refund(ctx context.Context, req RefundRequest) error
}
