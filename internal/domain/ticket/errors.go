package ticket

import "errors"

// Ticket ドメインのエラー定義
var (
	ErrTicketNotFound        = errors.New("チケットが見つかりません")
	ErrTicketAlreadyExists   = errors.New("チケットは既に発行されています")
	ErrTicketAlreadyConsumed = errors.New("チケットは既に使用されています")
	ErrPayloadMismatch       = errors.New("チケット内容が一致しません")
	ErrMalformedToken        = errors.New("チケットトークンの形式が不正です")
	ErrInvalidSignature      = errors.New("チケットの署名が不正です")
	ErrUnknownKey            = errors.New("署名鍵が不明です")
)
