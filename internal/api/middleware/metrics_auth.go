package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
)

const metricsRealm = "venuego-metrics"

// MetricsBasicAuth は /metrics 用の Basic 認証
// 認証情報が未設定ならスキップする（ローカル開発用）
func MetricsBasicAuth(cfg config.MetricsConfig) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(echo.Context) bool { return !cfg.AuthEnabled() },
		Realm:   metricsRealm,
		Validator: func(user, pass string, _ echo.Context) (bool, error) {
			return constantTimeEqual(user, cfg.User) && constantTimeEqual(pass, cfg.Password), nil
		},
	})
}

func constantTimeEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
