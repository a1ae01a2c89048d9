package application

import "errors"

// アプリケーション層のエラー定義
var (
	ErrSlotFull             = errors.New("枠が満席です")
	ErrNotReservationHolder = errors.New("この予約の保有者ではありません")
)
