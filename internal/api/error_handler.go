package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

const internalErrorMessage = "内部サーバーエラー"

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CustomHTTPErrorHandler は全エラーを ErrorResponse で返す
// ドメインエラーはハンドラ側で echo.HTTPError に変換済みの前提で、それ以外は500
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	body := newErrorResponse(err)
	log := logger.FromContext(c.Request().Context())
	if body.Code >= http.StatusInternalServerError {
		log.Error("サーバーエラー",
			zap.Int("status", body.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	var sendErr error
	if c.Request().Method == http.MethodHead {
		sendErr = c.NoContent(body.Code)
	} else {
		sendErr = c.JSON(body.Code, body)
	}
	if sendErr != nil {
		log.Error("エラーレスポンス送信失敗", zap.Error(sendErr))
	}
}

// newErrorResponse は内部エラーの詳細を 5xx では外に出さない
func newErrorResponse(err error) ErrorResponse {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return ErrorResponse{Error: internalErrorMessage, Code: http.StatusInternalServerError}
	}

	res := ErrorResponse{Code: he.Code, Error: http.StatusText(he.Code)}
	if msg, ok := he.Message.(string); ok {
		res.Error = msg
	}
	if he.Internal != nil && he.Code < http.StatusInternalServerError {
		res.Details = he.Internal.Error()
	}
	return res
}
