package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/game-station-rental/internal/engine"
	"github.com/iliyamo/game-station-rental/internal/model"
)

// BookingHandler exposes the booking engine's command surface over HTTP.
// It does no business logic of its own: requests are bound and forwarded to
// the engine, and the engine's sentinel errors are translated into HTTP
// status codes with errors.Is.
type BookingHandler struct {
	Engine *engine.Engine
}

// NewBookingHandler constructs a BookingHandler.  The engine must be non-nil.
func NewBookingHandler(e *engine.Engine) *BookingHandler {
	if e == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: e}
}

// CreateBooking handles POST /v1/bookings.  The body carries the customer
// name, game, tier key and an optional explicit device.  It responds with
// 201 when the session started immediately and 202 when the booking was
// queued; the body names the device either way.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var body struct {
		CustomerName string `json:"customer_name"`
		Game         string `json:"game"`
		Tier         string `json:"tier"`
		DeviceID     string `json:"device_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Engine.Assign(c.Request().Context(), engine.AssignRequest{
		CustomerName: body.CustomerName,
		Game:         body.Game,
		Tier:         model.TierKey(body.Tier),
		DeviceID:     body.DeviceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, engine.ErrUnsupportedGame):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, engine.ErrNoDeviceSupportsGame), errors.Is(err, engine.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	status := http.StatusCreated
	if res.Outcome == engine.OutcomeQueued {
		status = http.StatusAccepted
	}
	return c.JSON(status, echo.Map{
		"outcome":    res.Outcome,
		"device_id":  res.DeviceID,
		"booking_id": res.Booking.ID,
		"price":      res.Booking.Price,
	})
}

// CancelBooking handles DELETE /v1/devices/:id/bookings/:bookingId.  It
// cancels the device's active booking and refunds its price.  404 means the
// booking was already gone, which callers may treat as resolved.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	err := h.Engine.Cancel(c.Request().Context(), c.Param("id"), c.Param("bookingId"))
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": true})
}

// RemoveQueued handles DELETE /v1/devices/:id/queue/:bookingId.  Removing a
// booking that is no longer queued succeeds silently.
func (h *BookingHandler) RemoveQueued(c echo.Context) error {
	if err := h.Engine.RemoveFromQueue(c.Request().Context(), c.Param("id"), c.Param("bookingId")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": true})
}

// DecidePromotion handles POST /v1/devices/:id/promotion.  The body carries
// the operator's decision: "promote" starts the queue head, "defer"
// dismisses the signal.  404 means no signal is pending for the device.
func (h *BookingHandler) DecidePromotion(c echo.Context) error {
	var body struct {
		Decision string `json:"decision"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var decision engine.PromotionDecision
	switch body.Decision {
	case "promote":
		decision = engine.DecisionPromote
	case "defer":
		decision = engine.DecisionDefer
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be \"promote\" or \"defer\""})
	}
	booking, err := h.Engine.DecidePromotion(c.Request().Context(), c.Param("id"), decision)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, engine.ErrDeviceBusy), errors.Is(err, engine.ErrEmptyQueue):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "promotion failed"})
	}
	if booking == nil {
		return c.JSON(http.StatusOK, echo.Map{"decision": "defer"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"decision":      "promote",
		"booking_id":    booking.ID,
		"customer_name": booking.CustomerName,
		"price":         booking.Price,
	})
}

// UpdateTier handles PUT /v1/tiers/:key.  Only future bookings pick up the
// new duration and price.
func (h *BookingHandler) UpdateTier(c echo.Context) error {
	var body struct {
		Minutes int `json:"minutes"`
		Price   int `json:"price"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	key := model.TierKey(c.Param("key"))
	if err := h.Engine.UpdateTier(c.Request().Context(), key, body.Minutes, body.Price); err != nil {
		if errors.Is(err, engine.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tier update failed"})
	}
	tier, _ := h.Engine.Tiers().ByKey(key)
	return c.JSON(http.StatusOK, echo.Map{
		"tier":    key,
		"minutes": tier.Minutes,
		"price":   tier.Price,
	})
}

// GetBoard handles GET /v1/devices.  It returns every device with its
// active session (including remaining time), queue (including estimated
// waits) and promotion state, the data the operator's board renders.
func (h *BookingHandler) GetBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Engine.Board()})
}

// GetRevenue handles GET /v1/revenue.
func (h *BookingHandler) GetRevenue(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"total": h.Engine.Revenue()})
}

// GetPromotions handles GET /v1/promotions.  It lists devices whose
// promotion-pending signal has not been consumed yet.
func (h *BookingHandler) GetPromotions(c echo.Context) error {
	pending := h.Engine.PendingPromotions()
	if pending == nil {
		pending = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": pending})
}

// GetTiers handles GET /v1/tiers.
func (h *BookingHandler) GetTiers(c echo.Context) error {
	tiers := h.Engine.Tiers()
	return c.JSON(http.StatusOK, echo.Map{
		"first":  echo.Map{"minutes": tiers.First.Minutes, "price": tiers.First.Price},
		"second": echo.Map{"minutes": tiers.Second.Minutes, "price": tiers.Second.Price},
	})
}
