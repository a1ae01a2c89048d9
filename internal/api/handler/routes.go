package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/api/middleware"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
)

// Handlers はHTTPハンドラー一式
type Handlers struct {
	Health      *HealthHandler
	Slot        *SlotHandler
	Reservation *ReservationHandler
	Payment     *PaymentHandler
	CheckIn     *CheckInHandler

	// Gatherer が nil の場合は /metrics を登録しない
	Gatherer      prometheus.Gatherer
	MetricsConfig config.MetricsConfig
}

// Register はルーティングを登録する
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.Health.Check)
	if h.Gatherer != nil {
		e.GET("/metrics",
			echo.WrapHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})),
			middleware.MetricsBasicAuth(h.MetricsConfig),
		)
	}

	v1 := e.Group("/api/v1")

	v1.POST("/slots", h.Slot.Create)
	v1.GET("/slots", h.Slot.List)
	v1.GET("/slots/:id", h.Slot.GetByID)
	v1.GET("/slots/:id/availability", h.Slot.Availability)
	v1.POST("/slots/:id/claims", h.Reservation.Claim)

	v1.GET("/reservations", h.Reservation.List)
	v1.GET("/reservations/:id", h.Reservation.GetByID)
	v1.POST("/reservations/:id/payment", h.Reservation.StartPayment)
	v1.POST("/reservations/:id/cancel", h.Reservation.Cancel)
	v1.GET("/reservations/:id/ticket", h.Reservation.Ticket)

	v1.POST("/payments/callback", h.Payment.Callback)
	v1.GET("/compensations", h.Payment.ListCompensations)
	v1.POST("/compensations/:id/retry", h.Payment.RetryRefund)

	v1.POST("/checkin", h.CheckIn.CheckIn)
}
