package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

func TestCheckInHandler_CheckIn(t *testing.T) {
	e := NewTestEcho()

	tests := []struct {
		name    string
		outcome ticket.Outcome
	}{
		{name: "入場可", outcome: ticket.Admit},
		{name: "署名不正", outcome: ticket.BadSignature},
		{name: "未知のチケット", outcome: ticket.UnknownTicket},
		{name: "内容不一致", outcome: ticket.Mismatch},
		{name: "使用済み", outcome: ticket.AlreadyUsed},
		{name: "入場受付前", outcome: ticket.NotYetOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name+"も200で返す", func(t *testing.T) {
			v := new(MockCheckInValidator)
			v.On("ValidateToken", mock.Anything, "tok").
				Return(&application.CheckInResult{Outcome: tt.outcome, ReservationID: "res-1"}, nil)
			h := NewCheckInHandler(v)

			c, rec := newContext(e, http.MethodPost, "/api/v1/checkin", `{"token":"tok"}`, "")
			require.NoError(t, h.CheckIn(c))

			assert.Equal(t, http.StatusOK, rec.Code)
			var resp CheckInResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.outcome.String(), resp.Outcome)
			assert.Equal(t, int(tt.outcome), resp.Code)
			assert.Equal(t, "res-1", resp.ReservationID)
		})
	}

	t.Run("payloadとsignatureを個別に受け付ける", func(t *testing.T) {
		payload := []byte{0xa1, 0x01, 0x61, 0x78}
		sig := make([]byte, ticket.SignatureSize)
		v := new(MockCheckInValidator)
		v.On("Validate", mock.Anything, payload, sig).
			Return(&application.CheckInResult{Outcome: ticket.Admit, ReservationID: "res-1"}, nil)
		h := NewCheckInHandler(v)

		body := `{"payload":"` + base64.RawURLEncoding.EncodeToString(payload) +
			`","signature":"` + base64.RawURLEncoding.EncodeToString(sig) + `"}`
		c, rec := newContext(e, http.MethodPost, "/api/v1/checkin", body, "")
		require.NoError(t, h.CheckIn(c))
		assert.Contains(t, rec.Body.String(), `"outcome":"admit"`)
		v.AssertExpectations(t)
	})

	t.Run("base64urlでない入力は400", func(t *testing.T) {
		h := NewCheckInHandler(new(MockCheckInValidator))
		c, _ := newContext(e, http.MethodPost, "/api/v1/checkin", `{"payload":"***","signature":"***"}`, "")
		assertHTTPStatus(t, h.CheckIn(c), http.StatusBadRequest)
	})

	t.Run("空のリクエストは400", func(t *testing.T) {
		h := NewCheckInHandler(new(MockCheckInValidator))
		c, _ := newContext(e, http.MethodPost, "/api/v1/checkin", `{}`, "")
		assertHTTPStatus(t, h.CheckIn(c), http.StatusBadRequest)
	})

	t.Run("ストア障害は500", func(t *testing.T) {
		v := new(MockCheckInValidator)
		v.On("ValidateToken", mock.Anything, "tok").Return(nil, assert.AnError)
		h := NewCheckInHandler(v)

		c, _ := newContext(e, http.MethodPost, "/api/v1/checkin", `{"token":"tok"}`, "")
		assertHTTPStatus(t, h.CheckIn(c), http.StatusInternalServerError)
	})
}
