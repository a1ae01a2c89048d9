package slot

import "time"

// DefaultCurrency は料金の既定通貨
const DefaultCurrency = "INR"

// Slot は予約可能な枠（会場 × 時間帯 [StartAt, EndAt)）を表す
type Slot struct {
	ID         string
	ResourceID string
	Name       string
	StartAt    time.Time
	EndAt      time.Time
	Capacity   int
	Reserved   int
	Price      int64 // 最小通貨単位
	Currency   string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSlot は新しい枠を作成する
func NewSlot(resourceID, name string, startAt, endAt time.Time, capacity int, price int64, currency string, now time.Time) *Slot {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Slot{
		ResourceID: resourceID,
		Name:       name,
		StartAt:    startAt,
		EndAt:      endAt,
		Capacity:   capacity,
		Price:      price,
		Currency:   currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Available は残り枠数を返す
func (s *Slot) Available() int {
	if s.Reserved >= s.Capacity {
		return 0
	}
	return s.Capacity - s.Reserved
}

// IsFull は満席かを返す
func (s *Slot) IsFull() bool {
	return s.Reserved >= s.Capacity
}

// IsBookingOpen は開始前で予約を受け付けているかを返す
func (s *Slot) IsBookingOpen(now time.Time) bool {
	return now.Before(s.StartAt)
}

// IsCheckInOpen は入場受付中かを返す
// 予約受付の終了と同時に開始するため、入場で空いた席が再び予約されることはない
func (s *Slot) IsCheckInOpen(now time.Time) bool {
	return !now.Before(s.StartAt)
}

// Validate は枠の検証を行う
func (s *Slot) Validate() error {
	if s.ResourceID == "" {
		return ErrResourceIDRequired
	}
	if s.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if !s.EndAt.After(s.StartAt) {
		return ErrInvalidSlotTime
	}
	if s.Price < 0 {
		return ErrInvalidPrice
	}
	if s.Reserved < 0 || s.Reserved > s.Capacity {
		return ErrReservedOutOfRange
	}
	return nil
}

// Availability は枠の空き状況
type Availability struct {
	SlotID    string `json:"slot_id" redis:"slot_id"`
	Capacity  int    `json:"capacity" redis:"capacity"`
	Reserved  int    `json:"reserved" redis:"reserved"`
	Available int    `json:"available" redis:"available"`
}

// Availability は現在の空き状況を返す
func (s *Slot) Availability() Availability {
	return Availability{
		SlotID:    s.ID,
		Capacity:  s.Capacity,
		Reserved:  s.Reserved,
		Available: s.Available(),
	}
}
