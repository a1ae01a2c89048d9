package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/api"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する
// エラーハンドラーも本番と同じものを使う
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}
