package ledger

import "errors"

// Ledger のエラー定義
var (
	ErrCapacityExceeded = errors.New("枠の定員に達しています")
	ErrVersionConflict  = errors.New("楽観的ロックの競合が発生しました")
)

// IsRetryable は時間をおいて再試行すれば成功しうるエラーかを返す
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
