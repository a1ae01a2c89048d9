package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
)

type compensationRow struct {
	ID            string    `db:"id"`
	ReservationID string    `db:"reservation_id"`
	IntentRef     string    `db:"intent_ref"`
	Amount        int64     `db:"amount"`
	Currency      string    `db:"currency"`
	Reason        string    `db:"reason"`
	Status        string    `db:"status"`
	Attempts      int       `db:"attempts"`
	LastError     string    `db:"last_error"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const compensationColumns = `id, reservation_id, intent_ref, amount, currency, reason, status, attempts, last_error, created_at, updated_at`

// CompensationRepository は PostgreSQL による payment.CompensationRepository 実装
type CompensationRepository struct {
	tx *TxManager
}

var _ payment.CompensationRepository = (*CompensationRepository)(nil)

// NewCompensationRepository は新しい CompensationRepository を作成する
func NewCompensationRepository(tx *TxManager) *CompensationRepository {
	return &CompensationRepository{tx: tx}
}

func (r *CompensationRepository) Create(ctx context.Context, c *payment.Compensation) error {
	_, err := r.tx.conn(ctx).ExecContext(ctx,
		`INSERT INTO compensations (`+compensationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.ReservationID, c.IntentRef, c.Amount, c.Currency, c.Reason,
		string(c.Status), c.Attempts, c.LastError, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return payment.ErrCompensationExists
		}
		return fmt.Errorf("返金記録作成に失敗: %w", err)
	}
	return nil
}

func (r *CompensationRepository) GetByID(ctx context.Context, id string) (*payment.Compensation, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *CompensationRepository) GetByIntentRef(ctx context.Context, ref string) (*payment.Compensation, error) {
	return r.get(ctx, `intent_ref = $1`, ref)
}

func (r *CompensationRepository) List(ctx context.Context, status payment.CompensationStatus, limit, offset int) ([]*payment.Compensation, error) {
	var rows []compensationRow
	query := `SELECT ` + compensationColumns + ` FROM compensations
		WHERE ($1::text = '' OR status = $1) ORDER BY created_at, id LIMIT $2 OFFSET $3`
	if err := r.tx.conn(ctx).SelectContext(ctx, &rows, query, string(status), limitOrAll(limit), offset); err != nil {
		return nil, fmt.Errorf("返金記録一覧取得に失敗: %w", err)
	}
	result := make([]*payment.Compensation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *CompensationRepository) Update(ctx context.Context, c *payment.Compensation) error {
	res, err := r.tx.conn(ctx).ExecContext(ctx,
		`UPDATE compensations SET status = $1, attempts = $2, last_error = $3, updated_at = $4 WHERE id = $5`,
		string(c.Status), c.Attempts, c.LastError, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("返金記録更新に失敗: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.ErrCompensationNotFound
	}
	return nil
}

func (r *CompensationRepository) get(ctx context.Context, where string, arg any) (*payment.Compensation, error) {
	var row compensationRow
	if err := r.tx.conn(ctx).GetContext(ctx, &row, `SELECT `+compensationColumns+` FROM compensations WHERE `+where, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrCompensationNotFound
		}
		return nil, fmt.Errorf("返金記録取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *compensationRow) toEntity() *payment.Compensation {
	return &payment.Compensation{
		ID: r.ID, ReservationID: r.ReservationID, IntentRef: r.IntentRef,
		Amount: r.Amount, Currency: r.Currency, Reason: r.Reason,
		Status: payment.CompensationStatus(r.Status), Attempts: r.Attempts, LastError: r.LastError,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}
