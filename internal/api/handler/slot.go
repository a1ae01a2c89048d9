package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/slot"
)

type SlotHandler struct {
	service SlotServiceInterface
}

func NewSlotHandler(s SlotServiceInterface) *SlotHandler {
	return &SlotHandler{service: s}
}

type CreateSlotRequest struct {
	ResourceID string    `json:"resource_id" validate:"required" example:"hall-a"`
	Name       string    `json:"name" validate:"max=255" example:"朝の部"`
	StartAt    time.Time `json:"start_at" validate:"required"`
	EndAt      time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Capacity   int       `json:"capacity" validate:"required,min=1" example:"100"`
	Price      int64     `json:"price" validate:"min=0" example:"50000"`
	Currency   string    `json:"currency" validate:"omitempty,len=3" example:"INR"`
}

type SlotResponse struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Name       string    `json:"name"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	Capacity   int       `json:"capacity"`
	Reserved   int       `json:"reserved"`
	Available  int       `json:"available"`
	Price      int64     `json:"price"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

func toSlotResponse(s *slot.Slot) SlotResponse {
	return SlotResponse{
		ID: s.ID, ResourceID: s.ResourceID, Name: s.Name,
		StartAt: s.StartAt, EndAt: s.EndAt,
		Capacity: s.Capacity, Reserved: s.Reserved, Available: s.Available(),
		Price: s.Price, Currency: s.Currency, CreatedAt: s.CreatedAt,
	}
}

// Create godoc
// @Summary 枠を作成
// @Tags slots
// @Accept json
// @Produce json
// @Param request body CreateSlotRequest true "枠情報"
// @Success 201 {object} SlotResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "同一会場・同一時間帯の枠が既に存在"
// @Router /slots [post]
func (h *SlotHandler) Create(c echo.Context) error {
	var req CreateSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	s, err := h.service.CreateSlot(c.Request().Context(), application.CreateSlotInput{
		ResourceID: req.ResourceID,
		Name:       req.Name,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Capacity:   req.Capacity,
		Price:      req.Price,
		Currency:   req.Currency,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toSlotResponse(s))
}

// List godoc
// @Summary 枠一覧を取得
// @Tags slots
// @Produce json
// @Param resource_id query string false "会場ID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} SlotResponse
// @Router /slots [get]
func (h *SlotHandler) List(c echo.Context) error {
	limit, offset := pageParams(c)
	slots, err := h.service.ListSlots(c.Request().Context(), c.QueryParam("resource_id"), limit, offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(slots, func(s *slot.Slot, _ int) SlotResponse {
		return toSlotResponse(s)
	}))
}

// GetByID godoc
// @Summary 枠を取得
// @Tags slots
// @Produce json
// @Param id path string true "枠ID"
// @Success 200 {object} SlotResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /slots/{id} [get]
func (h *SlotHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSlot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSlotResponse(s))
}

// Availability godoc
// @Summary 空き状況を取得
// @Description キャッシュ経由で返すため数秒程度遅れることがある
// @Tags slots
// @Produce json
// @Param id path string true "枠ID"
// @Success 200 {object} slot.Availability
// @Failure 404 {object} api.ErrorResponse
// @Router /slots/{id}/availability [get]
func (h *SlotHandler) Availability(c echo.Context) error {
	a, err := h.service.Availability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// pageParams は limit / offset を読み取る
// 不正な値は0として扱い、上限と既定値はサービス側で決める
func pageParams(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
