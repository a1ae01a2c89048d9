package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// SlotCache は枠の空き状況のキャッシュを管理する
type SlotCache struct {
	client redis.UniversalClient
}

// NewSlotCache は新しいSlotCacheインスタンスを作成する
func NewSlotCache(client redis.UniversalClient) *SlotCache {
	return &SlotCache{client: client}
}

// GetAvailability は枠の空き状況をキャッシュから取得する
func (c *SlotCache) GetAvailability(ctx context.Context, slotID string) (*slot.Availability, error) {
	res := c.client.HGetAll(ctx, c.availabilityKey(slotID))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, ErrCacheMiss
	}
	var a slot.Availability
	if err := res.Scan(&a); err != nil {
		return nil, fmt.Errorf("キャッシュの読み取りに失敗: %w", err)
	}
	return &a, nil
}

// SetAvailability は枠の空き状況をキャッシュに保存する
func (c *SlotCache) SetAvailability(ctx context.Context, a slot.Availability, ttl time.Duration) error {
	key := c.availabilityKey(a.SlotID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, a)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は枠のキャッシュを無効化する
func (c *SlotCache) Invalidate(ctx context.Context, slotID string) error {
	err := c.client.Del(ctx, c.availabilityKey(slotID)).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *SlotCache) availabilityKey(slotID string) string {
	return fmt.Sprintf("slots:availability:%s", slotID)
}
