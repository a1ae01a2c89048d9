package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

func newTestSlot() *slot.Slot {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s := slot.NewSlot("hall-a", "朝の部", now.Add(24*time.Hour), now.Add(26*time.Hour), 100, 50000, "INR", now)
	s.ID = "slot-1"
	s.Reserved = 40
	return s
}

func TestSlotHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に枠を作成できる", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("CreateSlot", mock.Anything, mock.MatchedBy(func(in application.CreateSlotInput) bool {
			return in.ResourceID == "hall-a" && in.Capacity == 100 && in.Price == 50000 && in.EndAt.After(in.StartAt)
		})).Return(newTestSlot(), nil)
		h := NewSlotHandler(svc)

		body := `{"resource_id":"hall-a","name":"朝の部","start_at":"2025-06-02T09:00:00Z","end_at":"2025-06-02T11:00:00Z","capacity":100,"price":50000}`
		c, rec := newContext(e, http.MethodPost, "/api/v1/slots", body, "")
		require.NoError(t, h.Create(c))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp SlotResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "slot-1", resp.ID)
		assert.Equal(t, 60, resp.Available)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "会場IDなし", body: `{"start_at":"2025-06-02T09:00:00Z","end_at":"2025-06-02T11:00:00Z","capacity":1}`},
		{name: "定員0", body: `{"resource_id":"hall-a","start_at":"2025-06-02T09:00:00Z","end_at":"2025-06-02T11:00:00Z","capacity":0}`},
		{name: "終了が開始より前", body: `{"resource_id":"hall-a","start_at":"2025-06-02T11:00:00Z","end_at":"2025-06-02T09:00:00Z","capacity":1}`},
		{name: "不正なJSON", body: `{"resource_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name+"は400", func(t *testing.T) {
			svc := new(MockSlotService)
			h := NewSlotHandler(svc)

			c, _ := newContext(e, http.MethodPost, "/api/v1/slots", tt.body, "")
			assertHTTPStatus(t, h.Create(c), http.StatusBadRequest)
			svc.AssertNotCalled(t, "CreateSlot", mock.Anything, mock.Anything)
		})
	}

	t.Run("重複は409", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("CreateSlot", mock.Anything, mock.Anything).Return(nil, slot.ErrSlotAlreadyExists)
		h := NewSlotHandler(svc)

		body := `{"resource_id":"hall-a","start_at":"2025-06-02T09:00:00Z","end_at":"2025-06-02T11:00:00Z","capacity":10}`
		c, _ := newContext(e, http.MethodPost, "/api/v1/slots", body, "")
		assertHTTPStatus(t, h.Create(c), http.StatusConflict)
	})
}

func TestSlotHandler_List(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockSlotService)
	svc.On("ListSlots", mock.Anything, "hall-a", 0, 0).Return([]*slot.Slot{newTestSlot()}, nil)
	h := NewSlotHandler(svc)

	// 不正な limit は0として渡り、サービス側で既定値になる
	c, rec := newContext(e, http.MethodGet, "/api/v1/slots?resource_id=hall-a&limit=abc", "", "")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "hall-a", resp[0].ResourceID)
	svc.AssertExpectations(t)
}

func TestSlotHandler_GetByID(t *testing.T) {
	e := NewTestEcho()

	t.Run("存在する枠", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("GetSlot", mock.Anything, "slot-1").Return(newTestSlot(), nil)
		h := NewSlotHandler(svc)

		c, rec := newContext(e, http.MethodGet, "/api/v1/slots/slot-1", "", "", "id", "slot-1")
		require.NoError(t, h.GetByID(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("存在しない枠は404", func(t *testing.T) {
		svc := new(MockSlotService)
		svc.On("GetSlot", mock.Anything, "missing").Return(nil, slot.ErrSlotNotFound)
		h := NewSlotHandler(svc)

		c, _ := newContext(e, http.MethodGet, "/api/v1/slots/missing", "", "", "id", "missing")
		assertHTTPStatus(t, h.GetByID(c), http.StatusNotFound)
	})
}

func TestSlotHandler_Availability(t *testing.T) {
	e := NewTestEcho()
	svc := new(MockSlotService)
	svc.On("Availability", mock.Anything, "slot-1").
		Return(&slot.Availability{SlotID: "slot-1", Capacity: 100, Reserved: 40, Available: 60}, nil)
	h := NewSlotHandler(svc)

	c, rec := newContext(e, http.MethodGet, "/api/v1/slots/slot-1/availability", "", "", "id", "slot-1")
	require.NoError(t, h.Availability(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"slot_id":"slot-1","capacity":100,"reserved":40,"available":60}`, rec.Body.String())
}
