package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
)

type CheckInHandler struct {
	validator CheckInValidatorInterface
}

func NewCheckInHandler(v CheckInValidatorInterface) *CheckInHandler {
	return &CheckInHandler{validator: v}
}

// CheckInRequest は token か payload + signature のどちらかを受け付ける
// いずれも base64url（パディングなし）
type CheckInRequest struct {
	Token     string `json:"token" validate:"required_without=Payload"`
	Payload   string `json:"payload" validate:"required_without=Token"`
	Signature string `json:"signature" validate:"required_with=Payload"`
}

type CheckInResponse struct {
	Outcome       string `json:"outcome" example:"admit"`
	Code          int    `json:"code" example:"0"`
	ReservationID string `json:"reservation_id,omitempty"`
}

// CheckIn godoc
// @Summary 入場検証
// @Description チケットを検証して消費します。判定結果はすべて200で返します。枠の開始前は not_yet_open でチケットは消費しません
// @Tags checkin
// @Accept json
// @Produce json
// @Param request body CheckInRequest true "チケット"
// @Success 200 {object} CheckInResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /checkin [post]
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	var req CheckInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	var (
		res *application.CheckInResult
		err error
	)
	if req.Token != "" {
		res, err = h.validator.ValidateToken(ctx, req.Token)
	} else {
		payload, perr := base64.RawURLEncoding.DecodeString(req.Payload)
		sig, serr := base64.RawURLEncoding.DecodeString(req.Signature)
		if perr != nil || serr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "payload / signature は base64url である必要があります")
		}
		res, err = h.validator.Validate(ctx, payload, sig)
	}
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, CheckInResponse{
		Outcome:       res.Outcome.String(),
		Code:          int(res.Outcome),
		ReservationID: res.ReservationID,
	})
}
