package scheduling

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints: admin, receptionist, physician, nurse
	readGroup := api.Group("", auth.RequireRole("receptionist", "physician", "nurse"))
	readGroup.GET("/appointments", h.ListAppointments)
	readGroup.GET("/appointments/:id", h.GetAppointment)
	readGroup.GET("/doctors", h.ListDoctors)
	readGroup.GET("/doctors/:id/availability", h.GetAvailability)
	readGroup.GET("/slots", h.ListSlots)

	// Write endpoints: admin, receptionist, nurse
	writeGroup := api.Group("", auth.RequireRole("receptionist", "nurse"))
	writeGroup.POST("/appointments", h.CreateAppointment)
	writeGroup.PATCH("/appointments/:id/status", h.UpdateStatus)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var b Booking
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.Book(c.Request().Context(), b)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		DoctorID:  c.QueryParam("doctor_id"),
		PatientID: c.QueryParam("patient_id"),
		Date:      c.QueryParam("date"),
		Status:    Status(c.QueryParam("status")),
		Query:     c.QueryParam("q"),
		Sort:      c.QueryParam("sort"),
		Limit:     pg.Limit,
		Offset:    pg.Offset,
	}
	if f.Status != "" && !f.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}
	switch f.Sort {
	case "", "date", "-date", "patient", "doctor":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid sort: use date, -date, patient or doctor")
	}
	items, total, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// -- Directory Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors := h.svc.Doctors()
	if doctors == nil {
		doctors = []Doctor{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	slots, err := h.svc.Availability(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": c.Param("id"),
		"date":      date,
		"slots":     slots,
	})
}

func (h *Handler) ListSlots(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Catalog())
}

// httpError maps scheduling errors to HTTP errors carrying the message the
// console shows to the user.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSlotConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownDoctor):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case IsRejection(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
