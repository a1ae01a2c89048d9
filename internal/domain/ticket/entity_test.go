package ticket

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicket_Token_RoundTrip(t *testing.T) {
	payload := []byte{0xa5, 0x01, 0x62, 'r', '1'}
	sig := bytes.Repeat([]byte{0x7f}, SignatureSize)
	tk := &Ticket{ReservationID: "r1", Payload: payload, Signature: sig}

	gotPayload, gotSig, err := DecodeToken(tk.Token())

	require.NoError(t, err)
	assert.Equal(t, payload, gotPayload)
	assert.Equal(t, sig, gotSig)
}

func TestDecodeToken_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "base64urlでない", token: "***"},
		{name: "空文字", token: ""},
		{name: "署名長以下", token: EncodeToken(nil, bytes.Repeat([]byte{1}, SignatureSize))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeToken(tt.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		outcome   Outcome
		code      int
		name      string
		integrity bool
	}{
		{Admit, 0, "admit", false},
		{BadSignature, 1, "bad_signature", true},
		{UnknownTicket, 2, "unknown_ticket", false},
		{Mismatch, 3, "mismatch", true},
		{AlreadyUsed, 4, "already_used", false},
		{NotYetOpen, 5, "not_yet_open", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, int(tt.outcome))
			assert.Equal(t, tt.name, tt.outcome.String())
			assert.Equal(t, tt.integrity, tt.outcome.IsIntegrityFailure())
		})
	}
}
