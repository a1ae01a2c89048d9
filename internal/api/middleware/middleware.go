package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを外側から順に積む
// m が nil の場合は HTTP メトリクスを収集しない
func SetupMiddleware(e *echo.Echo, serviceName string, m *metrics.Metrics) {
	chain := []echo.MiddlewareFunc{
		RequestIDMiddleware(),
		otelecho.Middleware(serviceName),
		RequestLogger(),
		middleware.Recover(),
	}
	if m != nil {
		chain = append(chain, PrometheusMiddleware(m))
	}
	chain = append(chain, middleware.CORSWithConfig(corsConfig()))

	e.Use(chain...)
}

// corsConfig はブラウザから保有者IDヘッダーを送れるようにする
func corsConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.POST, echo.DELETE},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID, HeaderUserID},
	}
}
