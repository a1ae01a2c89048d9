package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/reservation"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
)

type ReservationHandler struct {
	allocator AllocatorInterface
	payments  PaymentCoordinatorInterface
	tickets   CredentialIssuerInterface
}

func NewReservationHandler(a AllocatorInterface, p PaymentCoordinatorInterface, t CredentialIssuerInterface) *ReservationHandler {
	return &ReservationHandler{allocator: a, payments: p, tickets: t}
}

type ReservationResponse struct {
	ID           string     `json:"id"`
	SlotID       string     `json:"slot_id"`
	HolderID     string     `json:"holder_id"`
	State        string     `json:"state" example:"held"`
	HoldDeadline time.Time  `json:"hold_deadline"`
	PaymentRef   *string    `json:"payment_ref,omitempty"`
	Amount       int64      `json:"amount" example:"50000"`
	Currency     string     `json:"currency" example:"INR"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID: r.ID, SlotID: r.SlotID, HolderID: r.HolderID,
		State: string(r.State), HoldDeadline: r.HoldDeadline, PaymentRef: r.PaymentRef,
		Amount: r.Amount, Currency: r.Currency,
		ConfirmedAt: r.ConfirmedAt, ClosedAt: r.ClosedAt, CreatedAt: r.CreatedAt,
	}
}

type PaymentIntentResponse struct {
	ReservationID string    `json:"reservation_id"`
	IntentRef     string    `json:"intent_ref"`
	RedirectURL   string    `json:"redirect_url,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	HoldDeadline  time.Time `json:"hold_deadline"`
}

type TicketResponse struct {
	ReservationID string     `json:"reservation_id"`
	Token         string     `json:"token"`
	Payload       string     `json:"payload"`
	Signature     string     `json:"signature"`
	IssuedAt      time.Time  `json:"issued_at"`
	Consumed      bool       `json:"consumed"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
}

func toTicketResponse(t *ticket.Ticket) TicketResponse {
	return TicketResponse{
		ReservationID: t.ReservationID,
		Token:         t.Token(),
		Payload:       base64.RawURLEncoding.EncodeToString(t.Payload),
		Signature:     base64.RawURLEncoding.EncodeToString(t.Signature),
		IssuedAt:      t.IssuedAt,
		Consumed:      t.Consumed,
		ConsumedAt:    t.ConsumedAt,
	}
}

// Claim godoc
// @Summary 枠を仮押さえ
// @Description 枠を1つ仮押さえします。同じ保有者の再要求は既存の仮押さえを返します
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param id path string true "枠ID"
// @Success 201 {object} ReservationResponse
// @Success 200 {object} ReservationResponse "既存の仮押さえ"
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "満席"
// @Failure 422 {object} api.ErrorResponse "受付終了"
// @Router /slots/{id}/claims [post]
func (h *ReservationHandler) Claim(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	res, err := h.allocator.Claim(c.Request().Context(), application.ClaimInput{
		SlotID:   c.Param("id"),
		HolderID: holder,
	})
	if err != nil {
		return toHTTPError(err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, toReservationResponse(res.Reservation))
}

// List godoc
// @Summary 保有者の予約一覧を取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param state query string false "状態で絞り込み（カンマ区切り）" example(confirmed,checked_in)
// @Param limit query int false "取得件数" default(15)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /reservations [get]
func (h *ReservationHandler) List(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	states, err := reservation.ParseStates(c.QueryParam("state"))
	if err != nil {
		return toHTTPError(err)
	}
	limit, offset := pageParams(c)
	reservations, err := h.allocator.ListHolderReservations(c.Request().Context(), holder, states, limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(reservations, func(r *reservation.Reservation, _ int) ReservationResponse {
		return toReservationResponse(r)
	}))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	r, err := h.allocator.GetReservation(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// StartPayment godoc
// @Summary 決済を開始
// @Description 仮押さえ中の予約に決済インテントを作成します。再要求は同じインテントを返します
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param id path string true "予約ID"
// @Success 200 {object} PaymentIntentResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 410 {object} api.ErrorResponse "仮押さえ期限切れ"
// @Failure 503 {object} api.ErrorResponse
// @Router /reservations/{id}/payment [post]
func (h *ReservationHandler) StartPayment(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	intent, err := h.payments.StartPayment(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, PaymentIntentResponse{
		ReservationID: intent.ReservationID,
		IntentRef:     intent.IntentRef,
		RedirectURL:   intent.RedirectURL,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		HoldDeadline:  intent.HoldDeadline,
	})
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 決済完了前の予約をキャンセルし、枠を解放します
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	r, err := h.payments.Cancel(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Ticket godoc
// @Summary チケットを取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "保有者ID"
// @Param id path string true "予約ID"
// @Success 200 {object} TicketResponse
// @Failure 409 {object} api.ErrorResponse "未確定"
// @Router /reservations/{id}/ticket [get]
func (h *ReservationHandler) Ticket(c echo.Context) error {
	holder, err := holderID(c)
	if err != nil {
		return err
	}
	t, err := h.tickets.TicketFor(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTicketResponse(t))
}
