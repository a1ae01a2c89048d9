package payment

import "errors"

// Payment ドメインのエラー定義
var (
	// ErrProcessorUnavailable はタイムアウトや5xxなど一時的な失敗
	ErrProcessorUnavailable = errors.New("決済プロセッサが利用できません")
	// ErrProcessorRejected は要求自体が拒否された失敗
	ErrProcessorRejected    = errors.New("決済プロセッサに拒否されました")
	ErrCompensationNotFound = errors.New("返金記録が見つかりません")
	ErrCompensationExists   = errors.New("返金記録は既に存在します")
	ErrAlreadyRefunded      = errors.New("既に返金済みです")
)

// IsTransient はリトライ対象となるエラーかを返す
func IsTransient(err error) bool {
	return errors.Is(err, ErrProcessorUnavailable)
}
