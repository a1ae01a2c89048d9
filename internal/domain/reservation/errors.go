package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound   = errors.New("予約が見つかりません")
	ErrAlreadyTerminal       = errors.New("予約は既に終了しています")
	ErrAlreadyConfirmed      = errors.New("予約は既に確定されています")
	ErrHoldExpired           = errors.New("仮押さえの有効期限が切れています")
	ErrNotConfirmed          = errors.New("予約は確定されていません")
	ErrAlreadyCheckedIn      = errors.New("予約は既に入場済みです")
	ErrPaymentAlreadyStarted = errors.New("別の決済が既に開始されています")
	ErrPaymentRefRequired    = errors.New("決済参照は必須です")
	ErrInvalidTransition     = errors.New("不正な状態遷移です")
	ErrSlotIDRequired        = errors.New("枠IDは必須です")
	ErrHolderIDRequired      = errors.New("予約者IDは必須です")
	ErrInvalidAmount         = errors.New("金額は0以上である必要があります")
	ErrInvalidState          = errors.New("不正な予約状態です")
)
