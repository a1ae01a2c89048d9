package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
)

type PaymentHandler struct {
	service PaymentCoordinatorInterface
}

func NewPaymentHandler(s PaymentCoordinatorInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type PaymentCallbackRequest struct {
	IntentRef     string `json:"intent_ref" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=succeeded failed"`
	FailureCode   string `json:"failure_code"`
	FailureReason string `json:"failure_reason"`
}

type PaymentCallbackResponse struct {
	Outcome        string `json:"outcome" example:"confirmed"`
	Duplicate      bool   `json:"duplicate"`
	ReservationID  string `json:"reservation_id"`
	State          string `json:"state"`
	CompensationID string `json:"compensation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type CompensationResponse struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	IntentRef     string    `json:"intent_ref"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Reason        string    `json:"reason"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toCompensationResponse(c *payment.Compensation) CompensationResponse {
	return CompensationResponse{
		ID: c.ID, ReservationID: c.ReservationID, IntentRef: c.IntentRef,
		Amount: c.Amount, Currency: c.Currency, Reason: c.Reason,
		Status: string(c.Status), Attempts: c.Attempts, LastError: c.LastError,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// Callback godoc
// @Summary 決済結果コールバック
// @Description 決済プロセッサからの結果通知。重複通知も200で応答します。5xxの場合はプロセッサが再送します
// @Tags payments
// @Accept json
// @Produce json
// @Param request body PaymentCallbackRequest true "決済結果"
// @Success 200 {object} PaymentCallbackResponse
// @Failure 404 {object} api.ErrorResponse "未知のインテント"
// @Router /payments/callback [post]
func (h *PaymentHandler) Callback(c echo.Context) error {
	var req PaymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	out, err := h.service.HandleResult(c.Request().Context(), application.PaymentResult{
		IntentRef:     req.IntentRef,
		Success:       req.Status == "succeeded",
		FailureCode:   req.FailureCode,
		FailureReason: req.FailureReason,
	})
	if err != nil {
		return toHTTPError(err)
	}

	resp := PaymentCallbackResponse{Outcome: out.Outcome, Duplicate: out.Duplicate}
	if out.Reservation != nil {
		resp.ReservationID = out.Reservation.ID
		resp.State = string(out.Reservation.State)
	}
	if out.Compensation != nil {
		resp.CompensationID = out.Compensation.ID
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// ListCompensations godoc
// @Summary 返金記録一覧を取得
// @Tags compensations
// @Produce json
// @Param status query string false "pending / refunded / failed"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} CompensationResponse
// @Router /compensations [get]
func (h *PaymentHandler) ListCompensations(c echo.Context) error {
	status := payment.CompensationStatus(c.QueryParam("status"))
	switch status {
	case "", payment.CompensationPending, payment.CompensationRefunded, payment.CompensationFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "不正なステータスです")
	}
	limit, offset := pageParams(c)
	comps, err := h.service.ListCompensations(c.Request().Context(), status, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(comps, func(cp *payment.Compensation, _ int) CompensationResponse {
		return toCompensationResponse(cp)
	}))
}

// RetryRefund godoc
// @Summary 返金を再実行
// @Tags compensations
// @Produce json
// @Param id path string true "返金記録ID"
// @Success 200 {object} CompensationResponse
// @Failure 409 {object} api.ErrorResponse "返金済み"
// @Failure 502 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /compensations/{id}/retry [post]
func (h *PaymentHandler) RetryRefund(c echo.Context) error {
	comp, err := h.service.RetryRefund(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toCompensationResponse(comp))
}
