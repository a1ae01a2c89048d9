package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

func TestSlotCache(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewSlotCache(client)
	ctx := context.Background()
	slotID := "venuego-test-slot-123"
	t.Cleanup(func() { _ = cache.Invalidate(ctx, slotID) })

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, err := cache.GetAvailability(ctx, slotID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("キャッシュにセットした値を取得できる", func(t *testing.T) {
		want := slot.Availability{SlotID: slotID, Capacity: 10, Reserved: 3, Available: 7}
		require.NoError(t, cache.SetAvailability(ctx, want, 30*time.Second))

		got, err := cache.GetAvailability(ctx, slotID)
		require.NoError(t, err)
		assert.Equal(t, want, *got)

		ttl, err := client.TTL(ctx, cache.availabilityKey(slotID)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("無効化後はキャッシュミス", func(t *testing.T) {
		require.NoError(t, cache.Invalidate(ctx, slotID))
		_, err := cache.GetAvailability(ctx, slotID)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}
