package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
)

// HeaderUserID は認証済みの保有者IDを運ぶヘッダー（IDプロバイダが付与する）
const HeaderUserID = "X-User-ID"

// RequestLogger はリクエストの構造化ログを出力するミドルウェア
// リクエストIDを付けたロガーをリクエストのコンテキストに載せ、
// ハンドラーやサービスは logger.FromContext で同じIDを引き継ぐ
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			scoped := logger.Get().With(zap.String("request_id", requestIDOf(c)))
			if holder := req.Header.Get(HeaderUserID); holder != "" {
				scoped = scoped.With(zap.String("holder_id", holder))
			}
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), scoped)))

			err := next(c)
			if err != nil {
				// ステータスを確定させてからログに出す
				c.Error(err)
			}

			logAccess(c, time.Since(start), err)
			return nil
		}
	}
}

func requestIDOf(c echo.Context) string {
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func logAccess(c echo.Context, latency time.Duration, err error) {
	req, res := c.Request(), c.Response()
	log := logger.FromContext(req.Context()).With(
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", res.Status),
		zap.Duration("latency", latency),
	)

	switch {
	case res.Status >= 500:
		log.Error("server error", zap.Error(err), zap.String("remote_ip", c.RealIP()))
	case res.Status >= 400:
		log.Warn("client error", zap.Error(err))
	default:
		log.Info("request completed",
			zap.String("query", req.URL.RawQuery),
			zap.Int64("size", res.Size),
			zap.String("user_agent", req.UserAgent()),
		)
	}
}
