package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
)

const clientName = "venuego"

// NewClient はRedisクライアントを作成する
// ロック取得は短いタイムアウトで失敗させ、台帳側の原子性に委ねる
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// Ping はRedis接続を確認する
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis(%s)に接続できません: %w", clientName, err)
	}
	return nil
}
