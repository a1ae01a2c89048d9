package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
)

// HTTPProcessor は外部決済プロセッサの JSON/HTTP クライアント
//
// 5xx・429・通信エラー・タイムアウトは payment.ErrProcessorUnavailable、
// それ以外の 4xx は payment.ErrProcessorRejected として返す。
type HTTPProcessor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ payment.Processor = (*HTTPProcessor)(nil)

// NewHTTPProcessor は新しい HTTPProcessor を作成する
func NewHTTPProcessor(cfg config.PaymentConfig) *HTTPProcessor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProcessor{
		baseURL: strings.TrimRight(cfg.ProcessorURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createIntentRequest struct {
	ReservationID string `json:"reservation_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type createIntentResponse struct {
	Ref         string `json:"ref"`
	RedirectURL string `json:"redirect_url"`
}

type refundRequest struct {
	IntentRef string `json:"intent_ref"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// CreateIntent は決済インテントを作成する
// 予約IDを冪等キーにするため、リトライしても同じインテントが返る
func (p *HTTPProcessor) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	var resp createIntentResponse
	err := p.do(ctx, "/intents", "intent-"+req.ReservationID, createIntentRequest{
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Ref == "" {
		return nil, fmt.Errorf("%w: 決済参照が空です", payment.ErrProcessorRejected)
	}
	return &payment.Intent{Ref: resp.Ref, RedirectURL: resp.RedirectURL}, nil
}

// Refund は返金を要求する
func (p *HTTPProcessor) Refund(ctx context.Context, req payment.RefundRequest) error {
	return p.do(ctx, "/refunds", req.IdempotencyKey, refundRequest{
		IntentRef: req.IntentRef,
		Amount:    req.Amount,
		Currency:  req.Currency,
	}, nil)
}

func (p *HTTPProcessor) do(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", payment.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status=%d", payment.ErrProcessorUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status=%d body=%s", payment.ErrProcessorRejected, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}
	return nil
}
