package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

// ticketEntry は1枚のチケットとそのロック
type ticketEntry struct {
	mu     sync.Mutex
	ticket *ticket.Ticket
}

// TicketStore はプロセス内メモリで動作する ticket.Store 実装
// ロックはチケットごとに持つため、別の予約のスキャン同士は待ち合わせない
type TicketStore struct {
	tickets sync.Map // reservationID -> *ticketEntry
}

var _ ticket.Store = (*TicketStore)(nil)

// NewTicketStore は新しい TicketStore を作成する
func NewTicketStore() *TicketStore {
	return &TicketStore{}
}

func (s *TicketStore) Create(_ context.Context, t *ticket.Ticket) error {
	entry := &ticketEntry{ticket: cloneTicket(t)}
	if _, loaded := s.tickets.LoadOrStore(t.ReservationID, entry); loaded {
		return ticket.ErrTicketAlreadyExists
	}
	return nil
}

func (s *TicketStore) Get(_ context.Context, reservationID string) (*ticket.Ticket, error) {
	var out *ticket.Ticket
	err := s.withTicket(reservationID, func(t *ticket.Ticket) error {
		out = cloneTicket(t)
		return nil
	})
	return out, err
}

func (s *TicketStore) Consume(_ context.Context, reservationID string, payload []byte, now time.Time) (*ticket.Ticket, error) {
	var out *ticket.Ticket
	err := s.withTicket(reservationID, func(t *ticket.Ticket) error {
		if !bytes.Equal(t.Payload, payload) {
			return ticket.ErrPayloadMismatch
		}
		if t.Consumed {
			return ticket.ErrTicketAlreadyConsumed
		}
		t.Consumed = true
		t.ConsumedAt = &now
		out = cloneTicket(t)
		return nil
	})
	return out, err
}

// withTicket はチケットのロックを取って fn を実行する
func (s *TicketStore) withTicket(reservationID string, fn func(t *ticket.Ticket) error) error {
	v, ok := s.tickets.Load(reservationID)
	if !ok {
		return ticket.ErrTicketNotFound
	}
	entry := v.(*ticketEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.ticket)
}

func cloneTicket(t *ticket.Ticket) *ticket.Ticket {
	c := *t
	c.Payload = bytes.Clone(t.Payload)
	c.Signature = bytes.Clone(t.Signature)
	return &c
}
