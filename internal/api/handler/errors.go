package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/api/middleware"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

// statusByError はドメインエラーとHTTPステータスの対応
var statusByError = []struct {
	err    error
	status int
}{
	{slot.ErrResourceIDRequired, http.StatusBadRequest},
	{slot.ErrInvalidCapacity, http.StatusBadRequest},
	{slot.ErrInvalidSlotTime, http.StatusBadRequest},
	{slot.ErrInvalidPrice, http.StatusBadRequest},
	{reservation.ErrSlotIDRequired, http.StatusBadRequest},
	{reservation.ErrHolderIDRequired, http.StatusBadRequest},
	{reservation.ErrPaymentRefRequired, http.StatusBadRequest},
	{reservation.ErrInvalidState, http.StatusBadRequest},
	{ticket.ErrMalformedToken, http.StatusBadRequest},

	{application.ErrNotReservationHolder, http.StatusForbidden},

	{slot.ErrSlotNotFound, http.StatusNotFound},
	{reservation.ErrReservationNotFound, http.StatusNotFound},
	{ticket.ErrTicketNotFound, http.StatusNotFound},
	{payment.ErrCompensationNotFound, http.StatusNotFound},

	{application.ErrSlotFull, http.StatusConflict},
	{slot.ErrSlotAlreadyExists, http.StatusConflict},
	{reservation.ErrAlreadyConfirmed, http.StatusConflict},
	{reservation.ErrAlreadyTerminal, http.StatusConflict},
	{reservation.ErrPaymentAlreadyStarted, http.StatusConflict},
	{reservation.ErrNotConfirmed, http.StatusConflict},
	{reservation.ErrInvalidTransition, http.StatusConflict},
	{payment.ErrAlreadyRefunded, http.StatusConflict},
	{payment.ErrCompensationExists, http.StatusConflict},

	{reservation.ErrHoldExpired, http.StatusGone},
	{slot.ErrSlotClosed, http.StatusUnprocessableEntity},

	{payment.ErrProcessorRejected, http.StatusBadGateway},
	{payment.ErrProcessorUnavailable, http.StatusServiceUnavailable},
}

// toHTTPError はドメインエラーを echo.HTTPError に変換する
// 対応のないエラーは内部エラーとして扱い、詳細はレスポンスに含めない
func toHTTPError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, m.err.Error()).SetInternal(err)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "内部サーバーエラー").SetInternal(err)
}

func holderID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(middleware.HeaderUserID)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return id, nil
}
