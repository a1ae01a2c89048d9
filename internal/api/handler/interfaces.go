package handler

import (
	"context"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

// SlotServiceInterface は枠サービスのインターフェース
type SlotServiceInterface interface {
	CreateSlot(ctx context.Context, input application.CreateSlotInput) (*slot.Slot, error)
	GetSlot(ctx context.Context, id string) (*slot.Slot, error)
	ListSlots(ctx context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error)
	Availability(ctx context.Context, id string) (*slot.Availability, error)
}

// AllocatorInterface は仮押さえのインターフェース
type AllocatorInterface interface {
	Claim(ctx context.Context, input application.ClaimInput) (*application.ClaimResult, error)
	GetReservation(ctx context.Context, id, holderID string) (*reservation.Reservation, error)
	ListHolderReservations(ctx context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error)
}

// PaymentCoordinatorInterface は決済連携のインターフェース
type PaymentCoordinatorInterface interface {
	StartPayment(ctx context.Context, reservationID, holderID string) (*application.PaymentIntent, error)
	HandleResult(ctx context.Context, result application.PaymentResult) (*application.ResultOutcome, error)
	Cancel(ctx context.Context, reservationID, holderID string) (*reservation.Reservation, error)
	RetryRefund(ctx context.Context, compensationID string) (*payment.Compensation, error)
	ListCompensations(ctx context.Context, status payment.CompensationStatus, limit, offset int) ([]*payment.Compensation, error)
}

// CredentialIssuerInterface はチケット発行のインターフェース
type CredentialIssuerInterface interface {
	TicketFor(ctx context.Context, reservationID, holderID string) (*ticket.Ticket, error)
}

// CheckInValidatorInterface は入場検証のインターフェース
type CheckInValidatorInterface interface {
	ValidateToken(ctx context.Context, token string) (*application.CheckInResult, error)
	Validate(ctx context.Context, payload, signature []byte) (*application.CheckInResult, error)
}
