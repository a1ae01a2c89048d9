package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

// MockSlotService はSlotServiceInterfaceのモック
type MockSlotService struct {
	mock.Mock
}

func (m *MockSlotService) CreateSlot(ctx context.Context, input application.CreateSlotInput) (*slot.Slot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.Slot), args.Error(1)
}

func (m *MockSlotService) GetSlot(ctx context.Context, id string) (*slot.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.Slot), args.Error(1)
}

func (m *MockSlotService) ListSlots(ctx context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error) {
	args := m.Called(ctx, resourceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*slot.Slot), args.Error(1)
}

func (m *MockSlotService) Availability(ctx context.Context, id string) (*slot.Availability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*slot.Availability), args.Error(1)
}

// MockAllocator はAllocatorInterfaceのモック
type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Claim(ctx context.Context, input application.ClaimInput) (*application.ClaimResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.ClaimResult), args.Error(1)
}

func (m *MockAllocator) GetReservation(ctx context.Context, id, holderID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockAllocator) ListHolderReservations(ctx context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, holderID, states, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

// MockPaymentCoordinator はPaymentCoordinatorInterfaceのモック
type MockPaymentCoordinator struct {
	mock.Mock
}

func (m *MockPaymentCoordinator) StartPayment(ctx context.Context, reservationID, holderID string) (*application.PaymentIntent, error) {
	args := m.Called(ctx, reservationID, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.PaymentIntent), args.Error(1)
}

func (m *MockPaymentCoordinator) HandleResult(ctx context.Context, result application.PaymentResult) (*application.ResultOutcome, error) {
	args := m.Called(ctx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.ResultOutcome), args.Error(1)
}

func (m *MockPaymentCoordinator) Cancel(ctx context.Context, reservationID, holderID string) (*reservation.Reservation, error) {
	args := m.Called(ctx, reservationID, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockPaymentCoordinator) RetryRefund(ctx context.Context, compensationID string) (*payment.Compensation, error) {
	args := m.Called(ctx, compensationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Compensation), args.Error(1)
}

func (m *MockPaymentCoordinator) ListCompensations(ctx context.Context, status payment.CompensationStatus, limit, offset int) ([]*payment.Compensation, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Compensation), args.Error(1)
}

// MockCredentialIssuer はCredentialIssuerInterfaceのモック
type MockCredentialIssuer struct {
	mock.Mock
}

func (m *MockCredentialIssuer) TicketFor(ctx context.Context, reservationID, holderID string) (*ticket.Ticket, error) {
	args := m.Called(ctx, reservationID, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

// MockCheckInValidator はCheckInValidatorInterfaceのモック
type MockCheckInValidator struct {
	mock.Mock
}

func (m *MockCheckInValidator) ValidateToken(ctx context.Context, token string) (*application.CheckInResult, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckInResult), args.Error(1)
}

func (m *MockCheckInValidator) Validate(ctx context.Context, payload, signature []byte) (*application.CheckInResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.CheckInResult), args.Error(1)
}
