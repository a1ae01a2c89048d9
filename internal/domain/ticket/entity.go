package ticket

import (
	"encoding/base64"
	"time"
)

// SignatureSize は Ed25519 署名のバイト長
const SignatureSize = 64

// Payload は署名対象となるチケットの内容
// 正規化CBORでエンコードされ、そのバイト列がそのまま署名される
type Payload struct {
	ReservationID string `cbor:"1,keyasint"`
	SlotID        string `cbor:"2,keyasint"`
	HolderID      string `cbor:"3,keyasint"`
	IssuedAt      int64  `cbor:"4,keyasint"`
	KeyID         string `cbor:"5,keyasint"`
}

// Ticket は確定済み予約に対して発行された入場券
type Ticket struct {
	ReservationID string
	Payload       []byte
	Signature     []byte
	Consumed      bool
	IssuedAt      time.Time
	ConsumedAt    *time.Time
}

// Token は QR コードに埋め込む文字列（payload || signature の base64url）を返す
func (t *Ticket) Token() string {
	return EncodeToken(t.Payload, t.Signature)
}

// EncodeToken は payload と署名を連結して base64url でエンコードする
func EncodeToken(payload, signature []byte) string {
	buf := make([]byte, 0, len(payload)+len(signature))
	buf = append(buf, payload...)
	buf = append(buf, signature...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeToken は Token の逆変換を行う
// 末尾 SignatureSize バイトを署名、それより前を payload とする
func DecodeToken(token string) (payload, signature []byte, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, nil, ErrMalformedToken
	}
	if len(raw) <= SignatureSize {
		return nil, nil, ErrMalformedToken
	}
	split := len(raw) - SignatureSize
	return raw[:split], raw[split:], nil
}
