package ticket

import (
	"context"
	"time"
)

// Store はチケットの永続化を表すインターフェース
type Store interface {
	// Create はチケットを保存する
	// 同じ予約IDのチケットが存在する場合は ErrTicketAlreadyExists を返す
	Create(ctx context.Context, t *Ticket) error

	// Get は予約IDからチケットを取得する
	Get(ctx context.Context, reservationID string) (*Ticket, error)

	// Consume はチケットを使用済みにする（アトミックな check-and-set）
	// payload が保存済みの内容と一致しなければ ErrPayloadMismatch、
	// 既に使用済みなら ErrTicketAlreadyConsumed を返す
	Consume(ctx context.Context, reservationID string, payload []byte, now time.Time) (*Ticket, error)
}

// Signer はチケット payload の署名と検証を行う
type Signer interface {
	// KeyID は現在の署名鍵の識別子を返す
	KeyID() string
	// Encode は payload を正規化されたバイト列にする
	Encode(p Payload) ([]byte, error)
	// Sign は現在の鍵で署名する
	Sign(payload []byte) ([]byte, error)
	// Verify は payload をデコードし、KeyID に対応する鍵で署名を検証する
	Verify(payload, signature []byte) (*Payload, error)
}
