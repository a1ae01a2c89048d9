package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/event"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/retry"
)

// 決済結果の処理結果
const (
	OutcomeConfirmed   = "confirmed"
	OutcomeDuplicate   = "duplicate"
	OutcomeHoldExpired = "hold_expired"
	OutcomeCancelled   = "cancelled"
)

// 返金理由
const (
	refundReasonHoldExpired = "hold_expired"
	refundReasonClosed      = "reservation_closed"
)

// PaymentIntent は保有者に返す決済開始情報
type PaymentIntent struct {
	ReservationID string
	IntentRef     string
	RedirectURL   string
	Amount        int64
	Currency      string
	HoldDeadline  time.Time
}

// PaymentResult は決済プロセッサからのコールバック内容
type PaymentResult struct {
	IntentRef     string
	Success       bool
	FailureCode   string
	FailureReason string
}

// ResultOutcome は決済結果を台帳に反映した結果
// Outcome が hold_expired の場合 Err に reservation.ErrHoldExpired、Compensation に返金記録が入る
type ResultOutcome struct {
	Outcome      string
	Duplicate    bool
	Reservation  *reservation.Reservation
	Ticket       *ticket.Ticket
	Compensation *payment.Compensation
	Err          error
}

// PaymentCoordinator は決済の開始と結果反映、失効後決済の返金を扱う
type PaymentCoordinator struct {
	store         ledger.Store
	processor     payment.Processor
	compensations payment.CompensationRepository
	issuer        *CredentialIssuer
	slots         *SlotService
	events        eventEmitter
	clock         clock.Clock
	ids           clock.IDGenerator
	policy        retry.Policy
	metrics       *metrics.Metrics
}

func NewPaymentCoordinator(
	store ledger.Store,
	processor payment.Processor,
	compensations payment.CompensationRepository,
	issuer *CredentialIssuer,
	slots *SlotService,
	publisher event.Publisher,
	clk clock.Clock,
	ids clock.IDGenerator,
	policy retry.Policy,
	m *metrics.Metrics,
) *PaymentCoordinator {
	return &PaymentCoordinator{
		store:         store,
		processor:     processor,
		compensations: compensations,
		issuer:        issuer,
		slots:         slots,
		events:        newEventEmitter(publisher, m),
		clock:         clk,
		ids:           ids,
		policy:        policy,
		metrics:       m,
	}
}

// StartPayment は決済インテントを作成して予約に紐付ける
// 既に決済待ちの場合は既存のインテントを返す
func (c *PaymentCoordinator) StartPayment(ctx context.Context, reservationID, holderID string) (*PaymentIntent, error) {
	r, err := ownedReservation(ctx, c.store, reservationID, holderID)
	if err != nil {
		return nil, err
	}

	switch {
	case r.State == reservation.StateConfirmed:
		return nil, reservation.ErrAlreadyConfirmed
	case r.IsTerminal():
		return nil, reservation.ErrAlreadyTerminal
	case r.DeadlinePassed(c.clock.Now()):
		return nil, reservation.ErrHoldExpired
	case r.State == reservation.StateAwaitingPayment:
		return intentFor(r, ""), nil
	}

	// 外部呼び出しはロックや台帳のトランザクションの外で行う
	var intent *payment.Intent
	err = retry.Do(ctx, c.policy, payment.IsTransient, func(ctx context.Context) error {
		var err error
		intent, err = c.processor.CreateIntent(ctx, payment.IntentRequest{
			ReservationID: r.ID,
			Amount:        r.Amount,
			Currency:      r.Currency,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("決済インテントの作成に失敗: %w", err)
	}

	var updated *reservation.Reservation
	err = retry.Do(ctx, c.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		updated, err = c.store.AttachPayment(ctx, r.ID, intent.Ref, c.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("決済開始",
		zap.String("reservation_id", r.ID),
		zap.String("intent_ref", intent.Ref),
	)
	return intentFor(updated, intent.RedirectURL), nil
}

func intentFor(r *reservation.Reservation, redirectURL string) *PaymentIntent {
	return &PaymentIntent{
		ReservationID: r.ID,
		IntentRef:     r.PaymentReference(),
		RedirectURL:   redirectURL,
		Amount:        r.Amount,
		Currency:      r.Currency,
		HoldDeadline:  r.HoldDeadline,
	}
}

// HandleResult は決済プロセッサの結果を台帳に反映する
// コールバックは少なくとも1回届く前提で、重複は台帳の状態で吸収する
func (c *PaymentCoordinator) HandleResult(ctx context.Context, result PaymentResult) (*ResultOutcome, error) {
	if result.IntentRef == "" {
		return nil, reservation.ErrPaymentRefRequired
	}

	var r *reservation.Reservation
	err := retry.Do(ctx, c.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		r, err = c.store.GetByPaymentRef(ctx, result.IntentRef)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(
		zap.String("reservation_id", r.ID),
		zap.String("intent_ref", result.IntentRef),
	)

	if !result.Success {
		return c.handleFailure(ctx, log, r, result)
	}

	var confirmed *reservation.Reservation
	err = retry.Do(ctx, c.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		confirmed, err = c.store.Confirm(ctx, r.ID, c.clock.Now())
		return err
	})
	switch {
	case err == nil:
		c.metrics.PaymentResult(OutcomeConfirmed)
		log.Info("予約確定")
		c.events.emit(ctx, &event.ReservationConfirmed{
			ReservationID: confirmed.ID,
			SlotID:        confirmed.SlotID,
			HolderID:      confirmed.HolderID,
			PaymentRef:    result.IntentRef,
			Amount:        confirmed.Amount,
			Currency:      confirmed.Currency,
			OccurredAt:    *confirmed.ConfirmedAt,
		})
		return &ResultOutcome{
			Outcome:     OutcomeConfirmed,
			Reservation: confirmed,
			Ticket:      c.issueTicket(ctx, log, confirmed),
		}, nil

	case errors.Is(err, reservation.ErrAlreadyConfirmed):
		return c.duplicate(ctx, log, r.ID)

	case errors.Is(err, reservation.ErrHoldExpired), errors.Is(err, reservation.ErrAlreadyTerminal):
		current, getErr := c.store.Get(ctx, r.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.State == reservation.StateCheckedIn {
			return c.duplicate(ctx, log, r.ID)
		}
		return c.compensate(ctx, log, current, result.IntentRef)

	default:
		c.metrics.PaymentResult("error")
		return nil, fmt.Errorf("予約の確定に失敗: %w", err)
	}
}

func (c *PaymentCoordinator) duplicate(ctx context.Context, log *zap.Logger, reservationID string) (*ResultOutcome, error) {
	c.metrics.PaymentResult(OutcomeDuplicate)
	log.Info("重複した決済結果を無視")

	r, err := c.store.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	// 前回の処理がチケット発行前に中断していた場合に備えて発行を保証する
	return &ResultOutcome{
		Outcome:     OutcomeDuplicate,
		Duplicate:   true,
		Reservation: r,
		Ticket:      c.issueTicket(ctx, log, r),
	}, nil
}

// issueTicket はチケットを発行する。失敗してもチケット取得時に再発行されるため結果は返さない
func (c *PaymentCoordinator) issueTicket(ctx context.Context, log *zap.Logger, r *reservation.Reservation) *ticket.Ticket {
	if c.issuer == nil {
		return nil
	}
	t, _, err := c.issuer.issue(ctx, r)
	if err != nil {
		log.Error("チケット発行に失敗", zap.Error(err))
		return nil
	}
	return t
}

// compensate は仮押さえを失った後に成立した決済の返金を記録する
func (c *PaymentCoordinator) compensate(ctx context.Context, log *zap.Logger, r *reservation.Reservation, intentRef string) (*ResultOutcome, error) {
	now := c.clock.Now()

	if r.IsPending() && r.DeadlinePassed(now) {
		updated, released, err := c.store.Release(ctx, r.ID, reservation.StateExpired, now)
		if err != nil {
			return nil, fmt.Errorf("仮押さえの失効に失敗: %w", err)
		}
		if released {
			r = updated
			c.slots.invalidate(ctx, r.SlotID)
			c.events.emit(ctx, &event.ReservationExpired{
				ReservationID: r.ID,
				SlotID:        r.SlotID,
				HolderID:      r.HolderID,
				HoldDeadline:  r.HoldDeadline,
				OccurredAt:    now,
			})
		}
	}

	reason := refundReasonHoldExpired
	if r.State == reservation.StateCancelled {
		reason = refundReasonClosed
	}

	comp := payment.NewCompensation(c.ids.NewID(), r.ID, intentRef, r.Amount, r.Currency, reason, now)
	err := c.compensations.Create(ctx, comp)
	switch {
	case err == nil:
		c.metrics.Compensation(string(payment.CompensationPending))
		log.Warn("失効後の決済成立のため返金を予定",
			zap.String("compensation_id", comp.ID),
			zap.String("reason", reason),
		)
		c.events.emit(ctx, &event.RefundScheduled{
			CompensationID: comp.ID,
			ReservationID:  r.ID,
			IntentRef:      intentRef,
			Amount:         comp.Amount,
			Currency:       comp.Currency,
			OccurredAt:     now,
		})
	case errors.Is(err, payment.ErrCompensationExists):
		// 重複コールバック。返金記録は決済ごとに1件
		comp, err = c.compensations.GetByIntentRef(ctx, intentRef)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("返金記録の作成に失敗: %w", err)
	}

	c.metrics.PaymentResult(OutcomeHoldExpired)
	return &ResultOutcome{
		Outcome:      OutcomeHoldExpired,
		Reservation:  r,
		Compensation: comp,
		Err:          reservation.ErrHoldExpired,
	}, nil
}

func (c *PaymentCoordinator) handleFailure(ctx context.Context, log *zap.Logger, r *reservation.Reservation, result PaymentResult) (*ResultOutcome, error) {
	var (
		updated  *reservation.Reservation
		released bool
	)
	err := retry.Do(ctx, c.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		updated, released, err = c.store.Release(ctx, r.ID, reservation.StateCancelled, c.clock.Now())
		return err
	})
	if err != nil {
		c.metrics.PaymentResult("error")
		return nil, fmt.Errorf("予約の取消に失敗: %w", err)
	}

	c.metrics.PaymentResult(OutcomeCancelled)
	if !released {
		log.Info("決済失敗を受信したが予約は既に確定または終了済み", zap.String("state", string(updated.State)))
		return &ResultOutcome{Outcome: OutcomeCancelled, Duplicate: true, Reservation: updated}, nil
	}

	log.Info("決済失敗により予約を取消",
		zap.String("failure_code", result.FailureCode),
		zap.String("failure_reason", result.FailureReason),
	)
	c.slots.invalidate(ctx, updated.SlotID)
	c.events.emit(ctx, &event.ReservationCancelled{
		ReservationID: updated.ID,
		SlotID:        updated.SlotID,
		HolderID:      updated.HolderID,
		Reason:        "payment_failed:" + result.FailureCode,
		OccurredAt:    c.clock.Now(),
	})
	return &ResultOutcome{Outcome: OutcomeCancelled, Reservation: updated}, nil
}

// Cancel は保有者による取消
func (c *PaymentCoordinator) Cancel(ctx context.Context, reservationID, holderID string) (*reservation.Reservation, error) {
	r, err := ownedReservation(ctx, c.store, reservationID, holderID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	var (
		updated  *reservation.Reservation
		released bool
	)
	err = retry.Do(ctx, c.policy, ledger.IsRetryable, func(ctx context.Context) error {
		var err error
		updated, released, err = c.store.Release(ctx, r.ID, reservation.StateCancelled, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !released {
		if updated.State == reservation.StateConfirmed {
			return nil, reservation.ErrAlreadyConfirmed
		}
		return nil, reservation.ErrAlreadyTerminal
	}

	c.slots.invalidate(ctx, updated.SlotID)
	c.events.emit(ctx, &event.ReservationCancelled{
		ReservationID: updated.ID,
		SlotID:        updated.SlotID,
		HolderID:      updated.HolderID,
		Reason:        "cancelled_by_holder",
		OccurredAt:    now,
	})
	return updated, nil
}

// ProcessRefund は返金を1回実行する（一時的エラーのみ短時間リトライ）
// 失敗した返金は自動では再試行せず、オペレーターが RetryRefund で再実行する
func (c *PaymentCoordinator) ProcessRefund(ctx context.Context, compensationID string) (*payment.Compensation, error) {
	comp, err := c.compensations.GetByID(ctx, compensationID)
	if err != nil {
		return nil, err
	}
	if !comp.CanProcess() {
		return comp, nil
	}

	log := logger.FromContext(ctx).With(
		zap.String("compensation_id", comp.ID),
		zap.String("intent_ref", comp.IntentRef),
	)

	refundErr := retry.Do(ctx, c.policy, payment.IsTransient, func(ctx context.Context) error {
		return c.processor.Refund(ctx, payment.RefundRequest{
			IntentRef:      comp.IntentRef,
			Amount:         comp.Amount,
			Currency:       comp.Currency,
			IdempotencyKey: comp.IdempotencyKey(),
		})
	})

	now := c.clock.Now()
	if refundErr != nil {
		comp.MarkFailed(refundErr, now)
	} else {
		comp.MarkRefunded(now)
	}
	if err := c.compensations.Update(ctx, comp); err != nil {
		return nil, fmt.Errorf("返金記録の更新に失敗: %w", err)
	}

	c.metrics.Compensation(string(comp.Status))
	if refundErr != nil {
		log.Error("返金に失敗", zap.Int("attempts", comp.Attempts), zap.Error(refundErr))
		return comp, fmt.Errorf("返金に失敗: %w", refundErr)
	}
	log.Info("返金完了")
	return comp, nil
}

// RetryRefund はオペレーターによる返金の再実行
func (c *PaymentCoordinator) RetryRefund(ctx context.Context, compensationID string) (*payment.Compensation, error) {
	comp, err := c.compensations.GetByID(ctx, compensationID)
	if err != nil {
		return nil, err
	}
	if comp.Status == payment.CompensationRefunded {
		return nil, payment.ErrAlreadyRefunded
	}
	return c.ProcessRefund(ctx, compensationID)
}

func (c *PaymentCoordinator) ListCompensations(ctx context.Context, status payment.CompensationStatus, limit, offset int) ([]*payment.Compensation, error) {
	return c.compensations.List(ctx, status, clampLimit(limit, defaultPageSize), max(offset, 0))
}
