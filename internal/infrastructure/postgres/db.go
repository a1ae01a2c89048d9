package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute

	// 起動直後のコンテナを待つ上限
	connectTimeout = 30 * time.Second
)

// unique_violation
const uniqueViolation = "23505"

// NewConnection はPostgreSQLへ接続する
// DB の起動待ちのため ctx が切れるか connectTimeout まで指数バックオフで再試行する
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout

	db, err := backoff.RetryNotifyWithData(
		func() (*sqlx.DB, error) { return sqlx.ConnectContext(ctx, "postgres", cfg.DSN()) },
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			logger.Warn("データベース接続を再試行します", zap.Error(err), zap.Duration("wait", wait))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// Ping はヘルスチェック用
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
