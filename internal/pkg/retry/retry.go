package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy は一時的エラーに対する指数バックオフのリトライ方針
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy は最大3回、合計2秒までのリトライ方針を返す
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  2 * time.Second,
	}
}

// NoRetry は1回だけ実行する方針（テスト用）
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// Classifier はエラーがリトライ対象（一時的）かどうかを判定する
type Classifier func(err error) bool

// Do は op を実行し、isTransient が true を返すエラーの場合のみリトライする
// それ以外のエラーは即座に返す。リトライを使い切った場合は最後のエラーを返す
func Do(ctx context.Context, p Policy, isTransient Classifier, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = p.MaxElapsedTime

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if isTransient == nil || !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
