package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/transaction"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/tracing"
)

// CheckInResult は入場検証の結果
type CheckInResult struct {
	Outcome       ticket.Outcome
	ReservationID string
}

// CheckInValidator は入場時にチケットを検証して消費する
type CheckInValidator struct {
	store   ledger.Store
	tickets ticket.Store
	signer  ticket.Signer
	tx      transaction.Manager
	slots   *SlotService
	events  eventEmitter
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewCheckInValidator(
	store ledger.Store,
	tickets ticket.Store,
	signer ticket.Signer,
	tx transaction.Manager,
	slots *SlotService,
	publisher event.Publisher,
	clk clock.Clock,
	m *metrics.Metrics,
) *CheckInValidator {
	if tx == nil {
		tx = transaction.NoTx
	}
	return &CheckInValidator{
		store:   store,
		tickets: tickets,
		signer:  signer,
		tx:      tx,
		slots:   slots,
		events:  newEventEmitter(publisher, m),
		clock:   clk,
		metrics: m,
	}
}

// ValidateToken は QR コードの文字列を検証する
func (v *CheckInValidator) ValidateToken(ctx context.Context, token string) (*CheckInResult, error) {
	payload, sig, err := ticket.DecodeToken(token)
	if err != nil {
		return v.reject(ctx, ticket.BadSignature, "", err), nil
	}
	return v.Validate(ctx, payload, sig)
}

// Validate は署名検証 → チケット照会 → 内容照合 → 開始時刻 → 消費 の順に判定する
// 一時的なエラーの場合は Admit を返さずにエラーを返す
func (v *CheckInValidator) Validate(ctx context.Context, payload, signature []byte) (*CheckInResult, error) {
	ctx, span := tracing.Start(ctx, "CheckInValidator.Validate")
	defer span.End()

	p, err := v.signer.Verify(payload, signature)
	if err != nil {
		return v.reject(ctx, ticket.BadSignature, "", err), nil
	}
	span.SetAttributes(attribute.String("reservation_id", p.ReservationID))

	stored, err := v.tickets.Get(ctx, p.ReservationID)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			return v.reject(ctx, ticket.UnknownTicket, p.ReservationID, err), nil
		}
		v.metrics.CheckIn("error")
		return nil, fmt.Errorf("チケットの取得に失敗: %w", err)
	}
	if !bytes.Equal(stored.Payload, payload) {
		return v.reject(ctx, ticket.Mismatch, p.ReservationID, ticket.ErrPayloadMismatch), nil
	}

	now := v.clock.Now()
	var checkedIn *reservation.Reservation
	err = v.tx.WithTx(ctx, func(ctx context.Context) error {
		// 開始前はチケットを消費しない
		sl, err := v.store.GetSlot(ctx, p.SlotID)
		if err != nil {
			return err
		}
		if !sl.IsCheckInOpen(now) {
			return slot.ErrCheckInNotOpen
		}
		if _, err := v.tickets.Consume(ctx, p.ReservationID, payload, now); err != nil {
			return err
		}
		checkedIn, err = v.store.CheckIn(ctx, p.ReservationID, now)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, ticket.ErrTicketAlreadyConsumed), errors.Is(err, reservation.ErrAlreadyCheckedIn):
		return v.reject(ctx, ticket.AlreadyUsed, p.ReservationID, err), nil
	case errors.Is(err, ticket.ErrPayloadMismatch):
		return v.reject(ctx, ticket.Mismatch, p.ReservationID, err), nil
	case errors.Is(err, slot.ErrCheckInNotOpen):
		return v.reject(ctx, ticket.NotYetOpen, p.ReservationID, err), nil
	default:
		v.metrics.CheckIn("error")
		return nil, fmt.Errorf("入場処理に失敗: %w", err)
	}

	v.metrics.CheckIn(ticket.Admit.String())
	logger.FromContext(ctx).Info("入場受付", zap.String("reservation_id", p.ReservationID))
	v.slots.invalidate(ctx, checkedIn.SlotID)
	v.events.emit(ctx, &event.CheckedIn{
		ReservationID: checkedIn.ID,
		SlotID:        checkedIn.SlotID,
		HolderID:      checkedIn.HolderID,
		OccurredAt:    now,
	})
	return &CheckInResult{Outcome: ticket.Admit, ReservationID: p.ReservationID}, nil
}

func (v *CheckInValidator) reject(ctx context.Context, outcome ticket.Outcome, reservationID string, cause error) *CheckInResult {
	v.metrics.CheckIn(outcome.String())

	fields := []zap.Field{
		zap.String("outcome", outcome.String()),
		zap.String("reservation_id", reservationID),
		zap.Error(cause),
	}
	log := logger.FromContext(ctx)
	if outcome.IsIntegrityFailure() {
		log.Warn("改ざんの疑いがあるチケット", append(fields, zap.String("security", "ticket_integrity"))...)
	} else {
		log.Info("入場拒否", fields...)
	}
	return &CheckInResult{Outcome: outcome, ReservationID: reservationID}
}
