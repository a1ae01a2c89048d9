package payment

import (
	"context"
	"sync"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
)

// Sandbox はローカル開発とテスト用のプロセス内決済プロセッサ
// 決済結果は呼び出し側がコールバックとして送る
type Sandbox struct {
	mu        sync.Mutex
	ids       clock.IDGenerator
	intents   map[string]string // reservationID -> ref
	refunds   map[string]payment.RefundRequest
	intentErr []error
	refundErr []error
}

var _ payment.Processor = (*Sandbox)(nil)

// NewSandbox は新しい Sandbox を作成する
func NewSandbox(ids clock.IDGenerator) *Sandbox {
	return &Sandbox{
		ids:     ids,
		intents: make(map[string]string),
		refunds: make(map[string]payment.RefundRequest),
	}
}

// FailNextIntents は次の CreateIntent 呼び出しで順に errs を返すようにする
func (s *Sandbox) FailNextIntents(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intentErr = append(s.intentErr, errs...)
}

// FailNextRefunds は次の Refund 呼び出しで順に errs を返すようにする
func (s *Sandbox) FailNextRefunds(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refundErr = append(s.refundErr, errs...)
}

func (s *Sandbox) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.intentErr) > 0 {
		err := s.intentErr[0]
		s.intentErr = s.intentErr[1:]
		return nil, err
	}
	ref, ok := s.intents[req.ReservationID]
	if !ok {
		ref = "pi_" + s.ids.NewID()
		s.intents[req.ReservationID] = ref
	}
	return &payment.Intent{Ref: ref, RedirectURL: "https://sandbox.invalid/pay/" + ref}, nil
}

func (s *Sandbox) Refund(_ context.Context, req payment.RefundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.refundErr) > 0 {
		err := s.refundErr[0]
		s.refundErr = s.refundErr[1:]
		return err
	}
	s.refunds[req.IdempotencyKey] = req
	return nil
}

// Refunds は受け付けた返金要求を冪等キーごとに返す
func (s *Sandbox) Refunds() map[string]payment.RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]payment.RefundRequest, len(s.refunds))
	for k, v := range s.refunds {
		out[k] = v
	}
	return out
}
