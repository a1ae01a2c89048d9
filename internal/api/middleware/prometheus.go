package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

// PrometheusMiddleware はHTTPメトリクスを収集するミドルウェア
// /metrics 自身のスクレイプは記録しない
func PrometheusMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			m.HTTPRequest(c.Request().Method, routeLabel(c), responseStatus(c, err), time.Since(start))
			return err
		}
	}
}

// routeLabel はルート定義（/slots/:id など）を返す
// 未一致のパスはラベルが増え続けないよう1つにまとめる
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

// responseStatus はエラーハンドラーが書き込む前のステータスを推定する
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 500
}
