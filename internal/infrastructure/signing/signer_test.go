package signing

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	public, private, err := GenerateKeypair()
	require.NoError(t, err)
	return NewSigner(public, private)
}

func testPayload(s *Signer) ticket.Payload {
	return ticket.Payload{
		ReservationID: "res-1",
		SlotID:        "slot-1",
		HolderID:      "holder-1",
		IssuedAt:      1748772000,
		KeyID:         s.KeyID(),
	}
}

func TestSigner_Encode_Deterministic(t *testing.T) {
	s := newTestSigner(t)
	p := testPayload(s)

	b1, err := s.Encode(p)
	require.NoError(t, err)
	b2, err := s.Encode(p)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestSigner_SignVerify(t *testing.T) {
	s := newTestSigner(t)
	payload, err := s.Encode(testPayload(s))
	require.NoError(t, err)
	sig, err := s.Sign(payload)
	require.NoError(t, err)
	require.Len(t, sig, ticket.SignatureSize)

	t.Run("正しい署名", func(t *testing.T) {
		p, err := s.Verify(payload, sig)
		require.NoError(t, err)
		assert.Equal(t, testPayload(s), *p)
	})

	t.Run("予約者IDの改ざん", func(t *testing.T) {
		altered := testPayload(s)
		altered.HolderID = "holder-2"
		alteredBytes, err := s.Encode(altered)
		require.NoError(t, err)

		_, err = s.Verify(alteredBytes, sig)
		assert.ErrorIs(t, err, ticket.ErrInvalidSignature)
	})

	t.Run("署名の改ざん", func(t *testing.T) {
		bad := append([]byte(nil), sig...)
		bad[0] ^= 0xff
		_, err := s.Verify(payload, bad)
		assert.ErrorIs(t, err, ticket.ErrInvalidSignature)
	})

	t.Run("CBORでないpayload", func(t *testing.T) {
		_, err := s.Verify([]byte{0xff, 0xff}, sig)
		assert.ErrorIs(t, err, ticket.ErrMalformedToken)
	})

	t.Run("署名長不正", func(t *testing.T) {
		_, err := s.Verify(payload, sig[:10])
		assert.ErrorIs(t, err, ticket.ErrInvalidSignature)
	})
}

func TestSigner_KeyRotation(t *testing.T) {
	old := newTestSigner(t)
	payload, err := old.Encode(testPayload(old))
	require.NoError(t, err)
	sig, err := old.Sign(payload)
	require.NoError(t, err)

	public, private, err := GenerateKeypair()
	require.NoError(t, err)

	t.Run("退役鍵を含む鍵束では旧チケットを検証できる", func(t *testing.T) {
		rotated := NewSigner(public, private, old.private.Public().(ed25519.PublicKey))
		assert.NotEqual(t, old.KeyID(), rotated.KeyID())
		assert.Equal(t, 2, rotated.KeyCount())

		_, err := rotated.Verify(payload, sig)
		assert.NoError(t, err)
	})

	t.Run("退役鍵が無ければ未知の鍵", func(t *testing.T) {
		fresh := NewSigner(public, private)
		_, err := fresh.Verify(payload, sig)
		assert.ErrorIs(t, err, ticket.ErrUnknownKey)
	})
}
