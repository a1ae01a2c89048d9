package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

const slotColumns = `id, resource_id, name, start_at, end_at, capacity, reserved, price, currency, version, created_at, updated_at`

const reservationColumns = `id, slot_id, holder_id, state, hold_deadline, payment_ref, amount, currency, version, confirmed_at, closed_at, created_at, updated_at`

type slotRow struct {
	ID         string    `db:"id"`
	ResourceID string    `db:"resource_id"`
	Name       string    `db:"name"`
	StartAt    time.Time `db:"start_at"`
	EndAt      time.Time `db:"end_at"`
	Capacity   int       `db:"capacity"`
	Reserved   int       `db:"reserved"`
	Price      int64     `db:"price"`
	Currency   string    `db:"currency"`
	Version    int       `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type reservationRow struct {
	ID           string     `db:"id"`
	SlotID       string     `db:"slot_id"`
	HolderID     string     `db:"holder_id"`
	State        string     `db:"state"`
	HoldDeadline time.Time  `db:"hold_deadline"`
	PaymentRef   *string    `db:"payment_ref"`
	Amount       int64      `db:"amount"`
	Currency     string     `db:"currency"`
	Version      int        `db:"version"`
	ConfirmedAt  *time.Time `db:"confirmed_at"`
	ClosedAt     *time.Time `db:"closed_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// LedgerStore は PostgreSQL による ledger.Store 実装
//
// 枠の排他区間は slots 行の SELECT ... FOR UPDATE で作り、
// 予約の更新は version による楽観的ロックで守る。
type LedgerStore struct {
	tx *TxManager
}

var _ ledger.Store = (*LedgerStore)(nil)

// NewLedgerStore は新しい LedgerStore を作成する
func NewLedgerStore(tx *TxManager) *LedgerStore {
	return &LedgerStore{tx: tx}
}

func (s *LedgerStore) CreateSlot(ctx context.Context, sl *slot.Slot) error {
	if err := sl.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO slots (` + slotColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.tx.conn(ctx).ExecContext(ctx, query,
		sl.ID, sl.ResourceID, sl.Name, sl.StartAt, sl.EndAt, sl.Capacity, sl.Reserved,
		sl.Price, sl.Currency, sl.Version, sl.CreatedAt, sl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return slot.ErrSlotAlreadyExists
		}
		return fmt.Errorf("枠作成に失敗: %w", err)
	}
	return nil
}

func (s *LedgerStore) GetSlot(ctx context.Context, id string) (*slot.Slot, error) {
	return s.getSlot(ctx, s.tx.conn(ctx), id, false)
}

func (s *LedgerStore) ListSlots(ctx context.Context, resourceID string, limit, offset int) ([]*slot.Slot, error) {
	var rows []slotRow
	query := `SELECT ` + slotColumns + ` FROM slots WHERE ($1::text = '' OR resource_id = $1) ORDER BY start_at, id LIMIT $2 OFFSET $3`
	if err := s.tx.conn(ctx).SelectContext(ctx, &rows, query, resourceID, limitOrAll(limit), offset); err != nil {
		return nil, fmt.Errorf("枠一覧取得に失敗: %w", err)
	}
	result := make([]*slot.Slot, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (s *LedgerStore) TryReserve(ctx context.Context, candidate *reservation.Reservation) (*reservation.Reservation, bool, error) {
	if err := candidate.Validate(); err != nil {
		return nil, false, err
	}

	var (
		result  *reservation.Reservation
		created bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		q := s.tx.conn(ctx)

		sl, err := s.getSlot(ctx, q, candidate.SlotID, true)
		if err != nil {
			return err
		}

		var existing reservationRow
		err = q.GetContext(ctx, &existing,
			`SELECT `+reservationColumns+` FROM reservations
			 WHERE slot_id = $1 AND holder_id = $2 AND state IN ('held', 'awaiting_payment', 'confirmed')
			 LIMIT 1`,
			candidate.SlotID, candidate.HolderID)
		if err == nil {
			result = existing.toEntity()
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("既存予約の確認に失敗: %w", err)
		}

		if sl.IsFull() {
			return ledger.ErrCapacityExceeded
		}

		if err := insertReservation(ctx, q, candidate); err != nil {
			return err
		}
		if err := adjustReserved(ctx, q, sl.ID, 1, candidate.CreatedAt); err != nil {
			return err
		}

		stored := *candidate
		result = &stored
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (s *LedgerStore) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.getReservation(ctx, s.tx.conn(ctx), `id = $1`, id, false)
}

func (s *LedgerStore) GetByPaymentRef(ctx context.Context, ref string) (*reservation.Reservation, error) {
	return s.getReservation(ctx, s.tx.conn(ctx), `payment_ref = $1`, ref, false)
}

func (s *LedgerStore) ListByHolder(ctx context.Context, holderID string, states []reservation.State, limit, offset int) ([]*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE holder_id = $1 AND ($2::text[] IS NULL OR state = ANY($2::text[]))
		ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	return s.selectReservations(ctx, query, holderID, stateArray(states), limitOrAll(limit), offset)
}

func (s *LedgerStore) ListExpiredHolds(ctx context.Context, now time.Time, after *ledger.HoldCursor, limit int) ([]*reservation.Reservation, error) {
	if after == nil {
		query := `SELECT ` + reservationColumns + ` FROM reservations
			WHERE state IN ('held', 'awaiting_payment') AND hold_deadline <= $1
			ORDER BY hold_deadline, id LIMIT $2`
		return s.selectReservations(ctx, query, now, limitOrAll(limit))
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE state IN ('held', 'awaiting_payment') AND hold_deadline <= $1
		  AND (hold_deadline, id) > ($2, $3)
		ORDER BY hold_deadline, id LIMIT $4`
	return s.selectReservations(ctx, query, now, after.HoldDeadline, after.ID, limitOrAll(limit))
}

func (s *LedgerStore) AttachPayment(ctx context.Context, id, ref string, now time.Time) (*reservation.Reservation, error) {
	r, _, err := s.transition(ctx, id, func(r *reservation.Reservation) (bool, int, error) {
		before := r.State
		if err := r.AttachPayment(ref, now); err != nil {
			return false, 0, err
		}
		return r.State != before, 0, nil
	})
	if err != nil && isUniqueViolation(err) {
		return nil, reservation.ErrPaymentAlreadyStarted
	}
	return r, err
}

func (s *LedgerStore) Confirm(ctx context.Context, id string, now time.Time) (*reservation.Reservation, error) {
	r, _, err := s.transition(ctx, id, func(r *reservation.Reservation) (bool, int, error) {
		if err := r.Confirm(now); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	})
	return r, err
}

func (s *LedgerStore) Release(ctx context.Context, id string, to reservation.State, now time.Time) (*reservation.Reservation, bool, error) {
	return s.transition(ctx, id, func(r *reservation.Reservation) (bool, int, error) {
		released, err := r.Release(to, now)
		if err != nil || !released {
			return false, 0, err
		}
		return true, -1, nil
	})
}

// CheckIn は枠の開始後に限り入場を記録する
// 予約受付は開始時刻で締め切られるため、ここで解放した席が再び予約されることはない
func (s *LedgerStore) CheckIn(ctx context.Context, id string, now time.Time) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		r, _, err := s.transition(ctx, id, func(r *reservation.Reservation) (bool, int, error) {
			sl, err := s.getSlot(ctx, s.tx.conn(ctx), r.SlotID, false)
			if err != nil {
				return false, 0, err
			}
			if !sl.IsCheckInOpen(now) {
				return false, 0, slot.ErrCheckInNotOpen
			}
			if err := r.CheckIn(now); err != nil {
				return false, 0, err
			}
			return true, -1, nil
		})
		out = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// transition は予約行をロックしてドメインの遷移を適用し、version 付きで書き戻す
// apply は (変更の有無, 枠の予約数の増減, エラー) を返す
func (s *LedgerStore) transition(
	ctx context.Context,
	id string,
	apply func(r *reservation.Reservation) (bool, int, error),
) (*reservation.Reservation, bool, error) {
	var (
		result  *reservation.Reservation
		changed bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		q := s.tx.conn(ctx)

		r, err := s.getReservation(ctx, q, `id = $1`, id, true)
		if err != nil {
			return err
		}
		version := r.Version

		ok, delta, err := apply(r)
		if err != nil {
			return err
		}
		if !ok {
			result = r
			return nil
		}

		res, err := q.ExecContext(ctx,
			`UPDATE reservations
			 SET state = $1, payment_ref = $2, confirmed_at = $3, closed_at = $4, updated_at = $5, version = version + 1
			 WHERE id = $6 AND version = $7`,
			string(r.State), r.PaymentRef, r.ConfirmedAt, r.ClosedAt, r.UpdatedAt, r.ID, version)
		if err != nil {
			return fmt.Errorf("予約更新に失敗: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ledger.ErrVersionConflict
		}
		r.Version = version + 1

		if delta != 0 {
			if err := adjustReserved(ctx, q, r.SlotID, delta, r.UpdatedAt); err != nil {
				return err
			}
		}

		result = r
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

func (s *LedgerStore) getSlot(ctx context.Context, q querier, id string, forUpdate bool) (*slot.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row slotRow
	if err := q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, slot.ErrSlotNotFound
		}
		return nil, fmt.Errorf("枠取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (s *LedgerStore) getReservation(ctx context.Context, q querier, where string, arg any, forUpdate bool) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE ` + where
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row reservationRow
	if err := q.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (s *LedgerStore) selectReservations(ctx context.Context, query string, args ...any) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	if err := s.tx.conn(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func insertReservation(ctx context.Context, q querier, r *reservation.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := q.ExecContext(ctx, query,
		r.ID, r.SlotID, r.HolderID, string(r.State), r.HoldDeadline, r.PaymentRef,
		r.Amount, r.Currency, r.Version, r.ConfirmedAt, r.ClosedAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func adjustReserved(ctx context.Context, q querier, slotID string, delta int, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE slots SET reserved = reserved + $1, version = version + 1, updated_at = $2 WHERE id = $3`,
		delta, now, slotID)
	if err != nil {
		return fmt.Errorf("枠の予約数更新に失敗: %w", err)
	}
	return nil
}

// limitOrAll は 0 以下の limit を LIMIT ALL として扱う
// stateArray は空なら NULL になる text[] パラメータを返す
func stateArray(states []reservation.State) pq.StringArray {
	if len(states) == 0 {
		return nil
	}
	return lo.Map(states, func(st reservation.State, _ int) string { return string(st) })
}

func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func (r *slotRow) toEntity() *slot.Slot {
	return &slot.Slot{
		ID: r.ID, ResourceID: r.ResourceID, Name: r.Name,
		StartAt: r.StartAt, EndAt: r.EndAt,
		Capacity: r.Capacity, Reserved: r.Reserved,
		Price: r.Price, Currency: r.Currency, Version: r.Version,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, SlotID: r.SlotID, HolderID: r.HolderID,
		State: reservation.State(r.State), HoldDeadline: r.HoldDeadline,
		PaymentRef: r.PaymentRef, Amount: r.Amount, Currency: r.Currency,
		Version: r.Version, ConfirmedAt: r.ConfirmedAt, ClosedAt: r.ClosedAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}
