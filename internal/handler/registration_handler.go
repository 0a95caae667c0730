package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eventhub-gh/registration-service/internal/dto"
	"github.com/eventhub-gh/registration-service/internal/models"
	"github.com/eventhub-gh/registration-service/internal/service"
	"github.com/labstack/echo/v4"
)

type RegistrationHandler struct {
	svc service.RegistrationService
}

func NewRegistrationHandler(svc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func (h *RegistrationHandler) RegisterRoutes(e *echo.Echo) {
	events := e.Group("/api/v1/events")
	events.GET("/:id/status", h.GetEventStatus)
	events.POST("/:id/registrations", h.Register)
	events.GET("/:id/registrations", h.ListRegistrations)

	e.GET("/api/v1/registrations/:id", h.GetRegistration)
	e.POST("/api/v1/registrations/:id/checkin", h.CheckIn)
}

func (h *RegistrationHandler) Register(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AttendeeEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "attendee_email is required")
	}

	attendee := service.AttendeeInfo{
		Name:  req.AttendeeName,
		Email: req.AttendeeEmail,
		Phone: req.AttendeePhone,
	}

	// Drain the attempt's transition stream; the last transition is
	// the terminal outcome.
	var final service.Transition
	for tr := range h.svc.Register(c.Request().Context(), uint(eventID), attendee) {
		final = tr
	}

	switch {
	case final.State == service.StateSucceeded && errors.Is(final.Err, service.ErrAlreadyRegistered):
		// Lost the create race, but the attendee holds a seat.
		resp := dto.RegisterOutcomeResponse{Outcome: "already_registered"}
		if final.Registration != nil {
			r := dto.ToRegistrationResponse(final.Registration)
			resp.Registration = &r
		}
		return c.JSON(http.StatusOK, resp)

	case final.State == service.StateSucceeded:
		r := dto.ToRegistrationResponse(final.Registration)
		return c.JSON(http.StatusCreated, dto.RegisterOutcomeResponse{Outcome: "succeeded", Registration: &r})

	case final.State == service.StateIdle && final.Err == nil:
		// Payer abandoned the gateway flow; nothing happened.
		return c.JSON(http.StatusOK, dto.RegisterOutcomeResponse{Outcome: "cancelled"})
	}

	return h.registerError(c, final.Err)
}

func (h *RegistrationHandler) registerError(c echo.Context, err error) error {
	if err == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "registration ended without an outcome")
	}

	var pbu *service.PaidButUnrecordedError
	switch {
	case errors.As(err, &pbu):
		// Money moved without a durable record. Distinct body with the
		// gateway reference; the client must go to support, not retry.
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Message:          "your payment was captured but the registration could not be recorded; contact support with the payment reference",
			PaymentReference: pbu.Reference,
		})
	case errors.Is(err, service.ErrPaymentIndeterminate):
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Message: "payment status is unknown; contact support before retrying to avoid a double charge",
		})
	case errors.Is(err, service.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRegistrationClosed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyRegistered):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRetryableStore):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	reg, err := h.svc.GetRegistration(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	var status *models.RegistrationStatus
	if s := c.QueryParam("status"); s != "" {
		rs := models.RegistrationStatus(s)
		status = &rs
	}

	regs, err := h.svc.ListRegistrations(c.Request().Context(), uint(eventID), status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.RegistrationResponse, len(regs))
	for i, r := range regs {
		resp[i] = dto.ToRegistrationResponse(&r)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) GetEventStatus(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	event, confirmed, err := h.svc.EventStatus(c.Request().Context(), uint(eventID))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.EventStatusResponse{
		ID:        event.ID,
		Name:      event.Name,
		Price:     event.Price,
		Currency:  event.Currency,
		Status:    event.Status,
		Published: event.Published,
		Capacity:  event.Capacity,
		Confirmed: confirmed,
	})
}

func (h *RegistrationHandler) CheckIn(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid registration id")
	}

	reg, err := h.svc.CheckIn(c.Request().Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrInvalidRequest):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}
