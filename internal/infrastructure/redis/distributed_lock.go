package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

const lockKeyPrefix = "lock:"

// 所有者トークンが一致する場合のみ削除する
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DistributedLock は取得済みのロック
// token は取得ごとに発行し、他者のロックを誤って解放しないために使う
type DistributedLock struct {
	client redis.Scripter
	key    string
	token  string
}

// LockManager は SET NX PX による分散ロックを発行する
type LockManager struct {
	client redis.UniversalClient
}

func NewLockManager(client redis.UniversalClient) *LockManager {
	return &LockManager{client: client}
}

// Acquire はロックを1回だけ試みる
func (m *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (*DistributedLock, error) {
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &DistributedLock{client: m.client, key: key, token: token}, nil
}

// AcquireWithRetry は競合時のみ一定間隔で再試行する
// attempts は初回を含む試行回数。Redis 自体のエラーは再試行しない
func (m *LockManager) AcquireWithRetry(ctx context.Context, name string, ttl time.Duration, attempts int, delay time.Duration) (*DistributedLock, error) {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	return backoff.RetryWithData(func() (*DistributedLock, error) {
		lock, err := m.Acquire(ctx, name, ttl)
		if err != nil && !errors.Is(err, ErrLockNotAcquired) {
			return nil, backoff.Permanent(err)
		}
		return lock, err
	}, b)
}

// Key はロックキーを返す
func (l *DistributedLock) Key() string {
	return l.key
}

// Release はロックを解放する
// TTL 切れで他者に渡っていた場合は ErrLockNotOwned
func (l *DistributedLock) Release(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}
