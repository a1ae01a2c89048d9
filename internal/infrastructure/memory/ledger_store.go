package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

var errSlotIDRequired = errors.New("枠IDは必須です")

// slotEntry は1つの枠とその予約を保持する
// mu が枠ごとの排他区間になる
type slotEntry struct {
	mu           sync.Mutex
	slot         *slot.Slot
	reservations map[string]*reservation.Reservation
}

// LedgerStore はプロセス内メモリで動作する ledger.Store 実装
// 枠ごとにロックを分けており、異なる枠への操作は互いにブロックしない
type LedgerStore struct {
	slots     sync.Map // slotID -> *slotEntry
	bySlot    sync.Map // reservationID -> slotID
	byPayment sync.Map // paymentRef -> reservationID
}

var _ ledger.Store = (*LedgerStore)(nil)

// NewLedgerStore は新しい LedgerStore を作成する
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

func (s *LedgerStore) CreateSlot(_ context.Context, sl *slot.Slot) error {
	if sl.ID == "" {
		return errSlotIDRequired
	}
	if err := sl.Validate(); err != nil {
		return err
	}
	entry := &slotEntry{slot: cloneSlot(sl), reservations: make(map[string]*reservation.Reservation)}
	if _, loaded := s.slots.LoadOrStore(sl.ID, entry); loaded {
		return slot.ErrSlotAlreadyExists
	}
	return nil
}

func (s *LedgerStore) GetSlot(_ context.Context, id string) (*slot.Slot, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneSlot(entry.slot), nil
}

func (s *LedgerStore) ListSlots(_ context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error) {
	var result []*slot.Slot
	s.slots.Range(func(_, v any) bool {
		entry := v.(*slotEntry)
		entry.mu.Lock()
		if resourceID == "" || entry.slot.ResourceID == resourceID {
			result = append(result, cloneSlot(entry.slot))
		}
		entry.mu.Unlock()
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartAt.Equal(result[j].StartAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartAt.Before(result[j].StartAt)
	})
	return paginate(result, limit, offset), nil
}

func (s *LedgerStore) TryReserve(_ context.Context, candidate *reservation.Reservation) (*reservation.Reservation, bool, error) {
	if err := candidate.Validate(); err != nil {
		return nil, false, err
	}
	entry, err := s.entry(candidate.SlotID)
	if err != nil {
		return nil, false, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	for _, r := range entry.reservations {
		if r.HolderID == candidate.HolderID && r.HoldsCapacity() {
			return cloneReservation(r), false, nil
		}
	}
	if entry.slot.IsFull() {
		return nil, false, ledger.ErrCapacityExceeded
	}

	stored := cloneReservation(candidate)
	entry.reservations[stored.ID] = stored
	entry.slot.Reserved++
	entry.slot.Version++
	entry.slot.UpdatedAt = stored.CreatedAt
	s.bySlot.Store(stored.ID, stored.SlotID)

	return cloneReservation(stored), true, nil
}

func (s *LedgerStore) Get(_ context.Context, id string) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.withReservation(id, func(_ *slotEntry, r *reservation.Reservation) error {
		out = cloneReservation(r)
		return nil
	})
	return out, err
}

func (s *LedgerStore) GetByPaymentRef(ctx context.Context, ref string) (*reservation.Reservation, error) {
	id, ok := s.byPayment.Load(ref)
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return s.Get(ctx, id.(string))
}

func (s *LedgerStore) ListByHolder(_ context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error) {
	result := s.collect(func(r *reservation.Reservation) bool {
		return r.HolderID == holderID && (len(states) == 0 || lo.Contains(states, r.State))
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

func (s *LedgerStore) AttachPayment(_ context.Context, id, ref string, now time.Time) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.withReservation(id, func(_ *slotEntry, r *reservation.Reservation) error {
		working := cloneReservation(r)
		if err := working.AttachPayment(ref, now); err != nil {
			return err
		}
		if working.State != r.State {
			working.Version++
			*r = *working
			s.byPayment.Store(ref, id)
		}
		out = cloneReservation(r)
		return nil
	})
	return out, err
}

func (s *LedgerStore) Confirm(_ context.Context, id string, now time.Time) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.withReservation(id, func(_ *slotEntry, r *reservation.Reservation) error {
		working := cloneReservation(r)
		if err := working.Confirm(now); err != nil {
			return err
		}
		working.Version++
		*r = *working
		out = cloneReservation(r)
		return nil
	})
	return out, err
}

func (s *LedgerStore) Release(_ context.Context, id string, to reservation.State, now time.Time) (*reservation.Reservation, bool, error) {
	var (
		out      *reservation.Reservation
		released bool
	)
	err := s.withReservation(id, func(e *slotEntry, r *reservation.Reservation) error {
		working := cloneReservation(r)
		ok, err := working.Release(to, now)
		if err != nil {
			return err
		}
		if ok {
			working.Version++
			*r = *working
			e.decrement(now)
			released = true
		}
		out = cloneReservation(r)
		return nil
	})
	return out, released, err
}

func (s *LedgerStore) CheckIn(_ context.Context, id string, now time.Time) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.withReservation(id, func(e *slotEntry, r *reservation.Reservation) error {
		if !e.slot.IsCheckInOpen(now) {
			return slot.ErrCheckInNotOpen
		}
		working := cloneReservation(r)
		if err := working.CheckIn(now); err != nil {
			return err
		}
		working.Version++
		*r = *working
		e.decrement(now)
		out = cloneReservation(r)
		return nil
	})
	return out, err
}

func (s *LedgerStore) ListExpiredHolds(_ context.Context, now time.Time, after *ledger.HoldCursor, limit int) ([]*reservation.Reservation, error) {
	result := s.collect(func(r *reservation.Reservation) bool {
		return r.IsPending() && r.DeadlinePassed(now) && after.After(r)
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].HoldDeadline.Equal(result[j].HoldDeadline) {
			return result[i].ID < result[j].ID
		}
		return result[i].HoldDeadline.Before(result[j].HoldDeadline)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *LedgerStore) entry(slotID string) (*slotEntry, error) {
	v, ok := s.slots.Load(slotID)
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	return v.(*slotEntry), nil
}

// withReservation は予約が属する枠のロックを取って fn を実行する
func (s *LedgerStore) withReservation(id string, fn func(e *slotEntry, r *reservation.Reservation) error) error {
	slotID, ok := s.bySlot.Load(id)
	if !ok {
		return reservation.ErrReservationNotFound
	}
	entry, err := s.entry(slotID.(string))
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	r, ok := entry.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	return fn(entry, r)
}

func (s *LedgerStore) collect(match func(r *reservation.Reservation) bool) []*reservation.Reservation {
	var result []*reservation.Reservation
	s.slots.Range(func(_, v any) bool {
		entry := v.(*slotEntry)
		entry.mu.Lock()
		for _, r := range entry.reservations {
			if match(r) {
				result = append(result, cloneReservation(r))
			}
		}
		entry.mu.Unlock()
		return true
	})
	return result
}

func (e *slotEntry) decrement(now time.Time) {
	e.slot.Reserved--
	e.slot.Version++
	e.slot.UpdatedAt = now
}

func cloneSlot(s *slot.Slot) *slot.Slot {
	c := *s
	return &c
}

func cloneReservation(r *reservation.Reservation) *reservation.Reservation {
	c := *r
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
