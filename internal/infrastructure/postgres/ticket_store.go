package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

type ticketRow struct {
	ReservationID string     `db:"reservation_id"`
	Payload       []byte     `db:"payload"`
	Signature     []byte     `db:"signature"`
	Consumed      bool       `db:"consumed"`
	IssuedAt      time.Time  `db:"issued_at"`
	ConsumedAt    *time.Time `db:"consumed_at"`
}

const ticketColumns = `reservation_id, payload, signature, consumed, issued_at, consumed_at`

// TicketStore は PostgreSQL による ticket.Store 実装
type TicketStore struct {
	tx *TxManager
}

var _ ticket.Store = (*TicketStore)(nil)

// NewTicketStore は新しい TicketStore を作成する
func NewTicketStore(tx *TxManager) *TicketStore {
	return &TicketStore{tx: tx}
}

func (s *TicketStore) Create(ctx context.Context, t *ticket.Ticket) error {
	_, err := s.tx.conn(ctx).ExecContext(ctx,
		`INSERT INTO tickets (`+ticketColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ReservationID, t.Payload, t.Signature, t.Consumed, t.IssuedAt, t.ConsumedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ticket.ErrTicketAlreadyExists
		}
		return fmt.Errorf("チケット作成に失敗: %w", err)
	}
	return nil
}

func (s *TicketStore) Get(ctx context.Context, reservationID string) (*ticket.Ticket, error) {
	return s.get(ctx, s.tx.conn(ctx), reservationID, false)
}

// Consume は行ロックを取ってから使用済みフラグを立てる
func (s *TicketStore) Consume(ctx context.Context, reservationID string, payload []byte, now time.Time) (*ticket.Ticket, error) {
	var result *ticket.Ticket
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		q := s.tx.conn(ctx)
		t, err := s.get(ctx, q, reservationID, true)
		if err != nil {
			return err
		}
		if !bytes.Equal(t.Payload, payload) {
			return ticket.ErrPayloadMismatch
		}
		if t.Consumed {
			return ticket.ErrTicketAlreadyConsumed
		}
		if _, err := q.ExecContext(ctx,
			`UPDATE tickets SET consumed = TRUE, consumed_at = $1 WHERE reservation_id = $2 AND consumed = FALSE`,
			now, reservationID); err != nil {
			return fmt.Errorf("チケット使用に失敗: %w", err)
		}
		t.Consumed = true
		t.ConsumedAt = &now
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TicketStore) get(ctx context.Context, q querier, reservationID string, forUpdate bool) (*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE reservation_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row ticketRow
	if err := q.GetContext(ctx, &row, query, reservationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, fmt.Errorf("チケット取得に失敗: %w", err)
	}
	return &ticket.Ticket{
		ReservationID: row.ReservationID,
		Payload:       row.Payload,
		Signature:     row.Signature,
		Consumed:      row.Consumed,
		IssuedAt:      row.IssuedAt,
		ConsumedAt:    row.ConsumedAt,
	}, nil
}
