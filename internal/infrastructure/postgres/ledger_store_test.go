package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func setupStores(t *testing.T) (*TxManager, *LedgerStore) {
	t.Helper()
	db := setupDB(t)
	tx := NewTxManager(db)
	return tx, NewLedgerStore(tx)
}

func createSlot(t *testing.T, store *LedgerStore, id string, capacity int) {
	t.Helper()
	s := slot.NewSlot("venue-1", "午前の部", baseTime.Add(24*time.Hour), baseTime.Add(26*time.Hour), capacity, 150000, "INR", baseTime)
	s.ID = id
	require.NoError(t, store.CreateSlot(context.Background(), s))
}

func newHold(id, slotID, holderID string) *reservation.Reservation {
	return reservation.NewHold(id, slotID, holderID, 150000, "INR", baseTime, 10*time.Minute)
}

func assertReservedMatches(t *testing.T, db *TxManager, slotID string) {
	t.Helper()
	var holding, reserved int
	require.NoError(t, db.db.Get(&holding,
		`SELECT COUNT(*) FROM reservations WHERE slot_id = $1 AND state IN ('held', 'awaiting_payment', 'confirmed')`, slotID))
	require.NoError(t, db.db.Get(&reserved, `SELECT reserved FROM slots WHERE id = $1`, slotID))
	assert.Equal(t, holding, reserved)
}

func TestLedgerStore_TryReserve_Integration(t *testing.T) {
	tx, store := setupStores(t)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)

	r, created, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, reservation.StateHeld, r.State)

	again, created, err := store.TryReserve(ctx, newHold("res-2", "slot-1", "holder-1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "res-1", again.ID)

	_, _, err = store.TryReserve(ctx, newHold("res-3", "slot-1", "holder-2"))
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	assertReservedMatches(t, tx, "slot-1")
}

func TestLedgerStore_TryReserve_Concurrent_Integration(t *testing.T) {
	tx, store := setupStores(t)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)

	const numHolders = 30
	var successCount, fullCount int32
	var wg sync.WaitGroup
	for i := 0; i < numHolders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, created, err := store.TryReserve(ctx, newHold(fmt.Sprintf("res-%d", n), "slot-1", fmt.Sprintf("holder-%d", n)))
			if err == nil && created {
				atomic.AddInt32(&successCount, 1)
			} else if errors.Is(err, ledger.ErrCapacityExceeded) {
				atomic.AddInt32(&fullCount, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount)
	assert.Equal(t, int32(numHolders-1), fullCount)
	assertReservedMatches(t, tx, "slot-1")
}

func TestLedgerStore_Transitions_Integration(t *testing.T) {
	tx, store := setupStores(t)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 2)
	_, _, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)
	_, _, err = store.TryReserve(ctx, newHold("res-2", "slot-1", "holder-2"))
	require.NoError(t, err)

	t.Run("決済開始から確定と入場", func(t *testing.T) {
		r, err := store.AttachPayment(ctx, "res-1", "pi_1", baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, reservation.StateAwaitingPayment, r.State)
		assert.Equal(t, 1, r.Version)

		byRef, err := store.GetByPaymentRef(ctx, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, "res-1", byRef.ID)

		_, err = store.Confirm(ctx, "res-1", baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		_, err = store.Confirm(ctx, "res-1", baseTime.Add(2*time.Minute))
		assert.ErrorIs(t, err, reservation.ErrAlreadyConfirmed)

		_, err = store.CheckIn(ctx, "res-1", baseTime.Add(time.Hour))
		assert.ErrorIs(t, err, slot.ErrCheckInNotOpen)
		s, err := store.GetSlot(ctx, "slot-1")
		require.NoError(t, err)
		assert.Equal(t, 2, s.Reserved)

		r, err = store.CheckIn(ctx, "res-1", baseTime.Add(25*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, reservation.StateCheckedIn, r.State)
		assertReservedMatches(t, tx, "slot-1")
	})

	t.Run("期限切れは確定できず解放は冪等", func(t *testing.T) {
		_, err := store.Confirm(ctx, "res-2", baseTime.Add(601*time.Second))
		assert.ErrorIs(t, err, reservation.ErrHoldExpired)

		expired, err := store.ListExpiredHolds(ctx, baseTime.Add(601*time.Second), nil, 10)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, "res-2", expired[0].ID)

		rest, err := store.ListExpiredHolds(ctx, baseTime.Add(601*time.Second), ledger.CursorOf(expired[0]), 10)
		require.NoError(t, err)
		assert.Empty(t, rest)

		_, released, err := store.Release(ctx, "res-2", reservation.StateExpired, baseTime.Add(601*time.Second))
		require.NoError(t, err)
		assert.True(t, released)
		_, released, err = store.Release(ctx, "res-2", reservation.StateExpired, baseTime.Add(602*time.Second))
		require.NoError(t, err)
		assert.False(t, released)

		s, err := store.GetSlot(ctx, "slot-1")
		require.NoError(t, err)
		assert.Equal(t, 0, s.Reserved)
		assertReservedMatches(t, tx, "slot-1")
	})

	t.Run("予約者の一覧", func(t *testing.T) {
		list, err := store.ListByHolder(ctx, "holder-1", nil, 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "res-1", list[0].ID)

		checkedIn, err := store.ListByHolder(ctx, "holder-1", []reservation.State{reservation.StateCheckedIn}, 10, 0)
		require.NoError(t, err)
		require.Len(t, checkedIn, 1)

		closed, err := store.ListByHolder(ctx, "holder-2", []reservation.State{reservation.StateCancelled, reservation.StateExpired}, 10, 0)
		require.NoError(t, err)
		require.Len(t, closed, 1)
		assert.Equal(t, "res-2", closed[0].ID)

		none, err := store.ListByHolder(ctx, "holder-1", []reservation.State{reservation.StateConfirmed}, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestTicketStore_Integration(t *testing.T) {
	tx, store := setupStores(t)
	tickets := NewTicketStore(tx)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)
	_, _, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)

	tk := &ticket.Ticket{ReservationID: "res-1", Payload: []byte("payload"), Signature: []byte("sig"), IssuedAt: baseTime}
	require.NoError(t, tickets.Create(ctx, tk))
	assert.ErrorIs(t, tickets.Create(ctx, tk), ticket.ErrTicketAlreadyExists)

	_, err = tickets.Consume(ctx, "res-1", []byte("altered"), baseTime)
	assert.ErrorIs(t, err, ticket.ErrPayloadMismatch)

	consumed, err := tickets.Consume(ctx, "res-1", []byte("payload"), baseTime)
	require.NoError(t, err)
	assert.True(t, consumed.Consumed)

	_, err = tickets.Consume(ctx, "res-1", []byte("payload"), baseTime)
	assert.ErrorIs(t, err, ticket.ErrTicketAlreadyConsumed)
}

func TestTicketStore_ConcurrentConsume_Integration(t *testing.T) {
	tx, store := setupStores(t)
	tickets := NewTicketStore(tx)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)
	_, _, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)
	require.NoError(t, tickets.Create(ctx, &ticket.Ticket{ReservationID: "res-1", Payload: []byte("p"), Signature: []byte("s"), IssuedAt: baseTime}))

	var (
		wg             sync.WaitGroup
		admitted, used atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tickets.Consume(ctx, "res-1", []byte("p"), baseTime)
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ticket.ErrTicketAlreadyConsumed):
				used.Add(1)
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, admitted.Load())
	assert.EqualValues(t, 19, used.Load())

	got, err := tickets.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.True(t, got.Consumed)
}

func TestTxManager_Rollback_Integration(t *testing.T) {
	tx, store := setupStores(t)
	tickets := NewTicketStore(tx)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)
	_, _, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)
	require.NoError(t, tickets.Create(ctx, &ticket.Ticket{ReservationID: "res-1", Payload: []byte("p"), Signature: []byte("s"), IssuedAt: baseTime}))

	// 未確定の予約への入場は失敗し、チケットの使用もロールバックされる
	err = tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := tickets.Consume(ctx, "res-1", []byte("p"), baseTime); err != nil {
			return err
		}
		_, err := store.CheckIn(ctx, "res-1", baseTime.Add(24*time.Hour))
		return err
	})
	assert.ErrorIs(t, err, reservation.ErrNotConfirmed)

	got, err := tickets.Get(ctx, "res-1")
	require.NoError(t, err)
	assert.False(t, got.Consumed)
}

func TestCompensationRepository_Integration(t *testing.T) {
	tx, store := setupStores(t)
	repo := NewCompensationRepository(tx)
	ctx := context.Background()
	createSlot(t, store, "slot-1", 1)
	_, _, err := store.TryReserve(ctx, newHold("res-1", "slot-1", "holder-1"))
	require.NoError(t, err)

	c := payment.NewCompensation("comp-1", "res-1", "pi_1", 150000, "INR", "hold_expired", baseTime)
	require.NoError(t, repo.Create(ctx, c))
	assert.ErrorIs(t, repo.Create(ctx, c), payment.ErrCompensationExists)

	c.MarkFailed(errors.New("timeout"), baseTime.Add(time.Minute))
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByIntentRef(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, payment.CompensationFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)

	failed, err := repo.List(ctx, payment.CompensationFailed, 10, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}
