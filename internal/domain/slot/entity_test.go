package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestSlot_Validate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(s *Slot)
		expected error
	}{
		{name: "正常な枠", modify: func(s *Slot) {}, expected: nil},
		{name: "会場ID未指定", modify: func(s *Slot) { s.ResourceID = "" }, expected: ErrResourceIDRequired},
		{name: "定員0", modify: func(s *Slot) { s.Capacity = 0 }, expected: ErrInvalidCapacity},
		{name: "終了が開始と同時刻", modify: func(s *Slot) { s.EndAt = s.StartAt }, expected: ErrInvalidSlotTime},
		{name: "負の価格", modify: func(s *Slot) { s.Price = -1 }, expected: ErrInvalidPrice},
		{name: "予約数が定員超過", modify: func(s *Slot) { s.Reserved = s.Capacity + 1 }, expected: ErrReservedOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlot("venue-1", "午前の部", baseTime.Add(24*time.Hour), baseTime.Add(26*time.Hour), 10, 150000, "", baseTime)
			tt.modify(s)
			if tt.expected == nil {
				assert.NoError(t, s.Validate())
			} else {
				assert.ErrorIs(t, s.Validate(), tt.expected)
			}
		})
	}
}

func TestNewSlot_DefaultCurrency(t *testing.T) {
	s := NewSlot("venue-1", "", baseTime, baseTime.Add(time.Hour), 1, 0, "", baseTime)
	assert.Equal(t, DefaultCurrency, s.Currency)
	assert.Equal(t, 0, s.Reserved)
	assert.Equal(t, 0, s.Version)
}

func TestSlot_Available(t *testing.T) {
	s := &Slot{Capacity: 3}
	assert.Equal(t, 3, s.Available())
	assert.False(t, s.IsFull())

	s.Reserved = 3
	assert.Equal(t, 0, s.Available())
	assert.True(t, s.IsFull())
}

func TestSlot_IsBookingOpen(t *testing.T) {
	s := &Slot{StartAt: baseTime}
	assert.True(t, s.IsBookingOpen(baseTime.Add(-time.Second)))
	assert.False(t, s.IsBookingOpen(baseTime))
	assert.False(t, s.IsBookingOpen(baseTime.Add(time.Minute)))
}

func TestSlot_IsCheckInOpen(t *testing.T) {
	s := &Slot{StartAt: baseTime}
	assert.False(t, s.IsCheckInOpen(baseTime.Add(-time.Second)))
	assert.True(t, s.IsCheckInOpen(baseTime))
	assert.True(t, s.IsCheckInOpen(baseTime.Add(time.Minute)))

	// 予約受付と入場受付が同時に開いている時刻はない
	for _, d := range []time.Duration{-time.Hour, -time.Nanosecond, 0, time.Nanosecond, time.Hour} {
		now := baseTime.Add(d)
		assert.NotEqual(t, s.IsBookingOpen(now), s.IsCheckInOpen(now))
	}
}

func TestSlot_Availability(t *testing.T) {
	s := &Slot{ID: "slot-1", Capacity: 5, Reserved: 2}
	assert.Equal(t, Availability{SlotID: "slot-1", Capacity: 5, Reserved: 2, Available: 3}, s.Availability())
}
