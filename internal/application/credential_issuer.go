package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

// CredentialIssuer は確定済み予約に署名付きチケットを発行する
type CredentialIssuer struct {
	store   ledger.Store
	tickets ticket.Store
	signer  ticket.Signer
	events  eventEmitter
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewCredentialIssuer(store ledger.Store, tickets ticket.Store, signer ticket.Signer, publisher event.Publisher, clk clock.Clock, m *metrics.Metrics) *CredentialIssuer {
	return &CredentialIssuer{
		store:   store,
		tickets: tickets,
		signer:  signer,
		events:  newEventEmitter(publisher, m),
		clock:   clk,
		metrics: m,
	}
}

// Issue はチケットを発行する。既に発行済みであればそれを返す
// created は今回新たに発行した場合のみ true
func (i *CredentialIssuer) Issue(ctx context.Context, reservationID string) (*ticket.Ticket, bool, error) {
	r, err := i.store.Get(ctx, reservationID)
	if err != nil {
		return nil, false, err
	}
	return i.issue(ctx, r)
}

func (i *CredentialIssuer) issue(ctx context.Context, r *reservation.Reservation) (*ticket.Ticket, bool, error) {
	if r.State != reservation.StateConfirmed && r.State != reservation.StateCheckedIn {
		return nil, false, reservation.ErrNotConfirmed
	}

	existing, err := i.tickets.Get(ctx, r.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ticket.ErrTicketNotFound) {
		return nil, false, fmt.Errorf("チケットの取得に失敗: %w", err)
	}

	now := i.clock.Now()
	payload, err := i.signer.Encode(ticket.Payload{
		ReservationID: r.ID,
		SlotID:        r.SlotID,
		HolderID:      r.HolderID,
		IssuedAt:      now.Unix(),
		KeyID:         i.signer.KeyID(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("チケットのエンコードに失敗: %w", err)
	}
	sig, err := i.signer.Sign(payload)
	if err != nil {
		return nil, false, fmt.Errorf("チケットの署名に失敗: %w", err)
	}

	t := &ticket.Ticket{
		ReservationID: r.ID,
		Payload:       payload,
		Signature:     sig,
		IssuedAt:      now,
	}
	if err := i.tickets.Create(ctx, t); err != nil {
		if errors.Is(err, ticket.ErrTicketAlreadyExists) {
			// 同時発行に負けた場合は保存済みのチケットを正とする
			stored, err := i.tickets.Get(ctx, r.ID)
			if err != nil {
				return nil, false, fmt.Errorf("チケットの取得に失敗: %w", err)
			}
			return stored, false, nil
		}
		return nil, false, fmt.Errorf("チケットの保存に失敗: %w", err)
	}

	i.metrics.TicketIssued()
	logger.FromContext(ctx).Info("チケット発行",
		zap.String("reservation_id", r.ID),
		zap.String("key_id", i.signer.KeyID()),
	)
	i.events.emit(ctx, &event.TicketIssued{
		ReservationID: r.ID,
		SlotID:        r.SlotID,
		HolderID:      r.HolderID,
		KeyID:         i.signer.KeyID(),
		OccurredAt:    now,
	})
	return t, true, nil
}

func (i *CredentialIssuer) Get(ctx context.Context, reservationID string) (*ticket.Ticket, error) {
	return i.tickets.Get(ctx, reservationID)
}

// TicketFor は保有者本人のチケットを返す
// 確定済みで未発行の場合はその場で発行する
func (i *CredentialIssuer) TicketFor(ctx context.Context, reservationID, holderID string) (*ticket.Ticket, error) {
	r, err := ownedReservation(ctx, i.store, reservationID, holderID)
	if err != nil {
		return nil, err
	}
	t, _, err := i.issue(ctx, r)
	return t, err
}
