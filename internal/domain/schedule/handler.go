package schedule

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medsched/medsched/internal/platform/auth"
	"github.com/medsched/medsched/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, doctor, registrar
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "registrar"))
	readGroup.GET("/doctors/:id/slots", h.GetAvailableSlots)
	readGroup.GET("/doctors/:id/schedule", h.GetSchedule)
	readGroup.GET("/doctors/:id/exceptions", h.ListExceptions)

	// Booking endpoints – registrars act on behalf of patients
	bookGroup := api.Group("", auth.RequireRole("admin", "doctor", "registrar"))
	bookGroup.POST("/doctors/:id/bookings", h.BookSlot)
	bookGroup.DELETE("/doctors/:id/bookings", h.ReleaseSlot)

	// Schedule management – the doctor or an admin
	manageGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	manageGroup.POST("/doctors/:id/schedule", h.InitializeSchedule)
	manageGroup.PUT("/doctors/:id/schedule/days/:weekday", h.UpdateDaySchedule)
	manageGroup.PUT("/doctors/:id/schedule/preferences", h.UpdatePreferences)
	manageGroup.POST("/doctors/:id/exceptions", h.AddException)
	manageGroup.DELETE("/doctors/:id/exceptions/:exceptionId", h.RemoveException)
}

func doctorID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	return id, nil
}

// domainStatus maps domain errors onto HTTP status codes shared by every
// endpoint in this package.
func domainStatus(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrConfigNotFound),
		errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrSlotNotFound),
		errors.Is(err, ErrExceptionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrDailyLimitReached),
		errors.Is(err, ErrConfigExists),
		errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidScheduleConfig),
		errors.Is(err, ErrInvalidException):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseDateParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" query parameter is required")
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" date, expected YYYY-MM-DD")
	}
	return d, nil
}

// -- Schedule --

func (h *Handler) InitializeSchedule(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	cfg, err := h.svc.InitializeDefault(c.Request().Context(), id)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusCreated, cfg)
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	cfg, err := h.svc.GetConfig(c.Request().Context(), id)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateDaySchedule(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	day, ok := ParseWeekday(c.Param("weekday"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid weekday")
	}
	var req DaySchedule
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Day = day
	cfg, displaced, err := h.svc.UpdateDaySchedule(c.Request().Context(), id, req)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"schedule":        cfg,
		"displaced_slots": displaced,
	})
}

func (h *Handler) UpdatePreferences(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	var prefs Preferences
	if err := c.Bind(&prefs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cfg, err := h.svc.UpdatePreferences(c.Request().Context(), id, prefs)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// -- Slots & bookings --

func (h *Handler) GetAvailableSlots(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	date, err := parseDateParam(c, "date")
	if err != nil {
		return err
	}
	slots, err := h.svc.GetAvailableSlots(c.Request().Context(), id, date)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"doctor_id": id,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

type bookRequest struct {
	Date          string    `json:"date"`
	Start         TimeOfDay `json:"start"`
	AppointmentID uuid.UUID `json:"appointment_id"`
}

func (h *Handler) BookSlot(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	if req.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}
	slot, err := h.svc.BookSlot(c.Request().Context(), id, date, req.Start, req.AppointmentID)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusCreated, slot)
}

func (h *Handler) ReleaseSlot(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	date, err := parseDateParam(c, "date")
	if err != nil {
		return err
	}
	start, err := ParseTimeOfDay(c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start, expected HH:MM")
	}
	released, err := h.svc.ReleaseSlot(c.Request().Context(), id, date, start)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// -- Exceptions --

func (h *Handler) AddException(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	var ex Exception
	if err := c.Bind(&ex); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.AddException(c.Request().Context(), id, ex)
	if err != nil {
		return domainStatus(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListExceptions(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	var from, to time.Time
	if raw := c.QueryParam("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
	}
	if raw := c.QueryParam("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
	}
	items, err := h.svc.ListExceptions(c.Request().Context(), id, from, to)
	if err != nil {
		return domainStatus(err)
	}
	pg := pagination.FromContext(c)
	total := len(items)
	if pg.Offset < len(items) {
		items = items[pg.Offset:]
	} else {
		items = nil
	}
	if pg.Limit < len(items) {
		items = items[:pg.Limit]
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RemoveException(c echo.Context) error {
	id, err := doctorID(c)
	if err != nil {
		return err
	}
	exID, err := uuid.Parse(c.Param("exceptionId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid exception id")
	}
	if err := h.svc.RemoveException(c.Request().Context(), id, exID); err != nil {
		return domainStatus(err)
	}
	return c.NoContent(http.StatusNoContent)
}
