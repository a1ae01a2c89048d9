package signing

import (
	"crypto/ed25519"
	"fmt"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

// Signer は Ed25519 によるチケット署名と、鍵IDで引く鍵束による検証を行う
// 退役済みの公開鍵も鍵束に含めるため、鍵を入れ替えても発行済みチケットは有効なまま
type Signer struct {
	private ed25519.PrivateKey
	keyID   string
	keyring map[string]ed25519.PublicKey
}

var _ ticket.Signer = (*Signer)(nil)

// NewSigner は現在の鍵ペアと退役済み公開鍵から Signer を作成する
func NewSigner(public ed25519.PublicKey, private ed25519.PrivateKey, retired ...ed25519.PublicKey) *Signer {
	keyring := make(map[string]ed25519.PublicKey, len(retired)+1)
	for _, key := range retired {
		keyring[KeyID(key)] = key
	}
	keyID := KeyID(public)
	keyring[keyID] = public
	return &Signer{private: private, keyID: keyID, keyring: keyring}
}

// LoadSigner は keyDir の鍵ペア（無ければ生成）と retiredDir の公開鍵から Signer を作成する
func LoadSigner(keyDir, retiredDir string) (*Signer, bool, error) {
	public, private, generated, err := LoadOrGenerateKeypair(keyDir)
	if err != nil {
		return nil, false, err
	}
	retired, err := LoadRetiredPublicKeys(retiredDir)
	if err != nil {
		return nil, false, err
	}
	return NewSigner(public, private, retired...), generated, nil
}

func (s *Signer) KeyID() string {
	return s.keyID
}

// KeyCount は検証に使える鍵の数を返す
func (s *Signer) KeyCount() int {
	return len(s.keyring)
}

func (s *Signer) Encode(p ticket.Payload) ([]byte, error) {
	b, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("チケット内容のエンコードに失敗: %w", err)
	}
	return b, nil
}

func (s *Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.private, payload), nil
}

// Verify は payload をデコードし、埋め込まれた鍵IDの公開鍵で署名を検証する
func (s *Signer) Verify(payload, signature []byte) (*ticket.Payload, error) {
	if len(signature) != ed25519.SignatureSize {
		return nil, ticket.ErrInvalidSignature
	}
	var p ticket.Payload
	if err := decMode.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ticket.ErrMalformedToken, err)
	}
	key, ok := s.keyring[p.KeyID]
	if !ok {
		return nil, ticket.ErrUnknownKey
	}
	if !ed25519.Verify(key, payload, signature) {
		return nil, ticket.ErrInvalidSignature
	}
	return &p, nil
}
