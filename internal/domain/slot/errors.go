package slot

import "errors"

// Slot ドメインのエラー定義
var (
	ErrSlotNotFound       = errors.New("枠が見つかりません")
	ErrSlotAlreadyExists  = errors.New("枠は既に存在します")
	ErrSlotClosed         = errors.New("枠の予約受付は終了しています")
	ErrCheckInNotOpen     = errors.New("入場受付はまだ開始していません")
	ErrResourceIDRequired = errors.New("会場IDは必須です")
	ErrInvalidCapacity    = errors.New("定員は1以上である必要があります")
	ErrInvalidSlotTime    = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidPrice       = errors.New("価格は0以上である必要があります")
	ErrReservedOutOfRange = errors.New("予約数が定員の範囲外です")
)
