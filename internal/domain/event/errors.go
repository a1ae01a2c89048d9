package event

import "errors"

// Event のエラー定義
var (
	ErrUnknownEvent = errors.New("未知のイベントです")
)
