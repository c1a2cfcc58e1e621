package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	store := newTestStore(WithRoster(testRoster(t)))
	h := NewHandler(NewService(store, zerolog.Nop()))
	return h, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, httpErr.Code, httpErr.Message)
	}
	return httpErr
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, e := newTestHandler(t)
	body := `{"patient_id":"P-1","patient_name":"Ada Lovelace","doctor_id":"dr-smith","date":"2026-03-02","time":"09:00 AM","type":"Telemedicine"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)

	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var got Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == uuid.Nil || got.Status != StatusScheduled || got.Type != TypeTelemedicine {
		t.Errorf("unexpected appointment %+v", got)
	}
	if got.DoctorName != "Sarah Smith" || got.Department != "Cardiology" {
		t.Errorf("expected roster snapshot, got %q / %q", got.DoctorName, got.Department)
	}
}

func TestHandler_CreateAppointment_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"malformed json", `{"patient_id":`, http.StatusBadRequest, ""},
		{"missing patient", `{"doctor_id":"dr-smith","date":"2026-03-02","time":"09:00 AM"}`, http.StatusBadRequest, "please select a patient"},
		{"missing doctor", `{"patient_id":"P-9","date":"2026-03-02","time":"09:00 AM"}`, http.StatusBadRequest, "please select a doctor"},
		{"unknown doctor", `{"patient_id":"P-9","doctor_id":"dr-who","date":"2026-03-02","time":"09:00 AM"}`, http.StatusUnprocessableEntity, ""},
		{"overlong patient id", `{"patient_id":"` + strings.Repeat("p", MaxIDLength+1) + `","doctor_id":"dr-smith","date":"2026-03-02","time":"09:30 AM"}`, http.StatusBadRequest, ""},
		{"overlong doctor id", `{"patient_id":"P-9","doctor_id":"` + strings.Repeat("d", MaxIDLength+1) + `","date":"2026-03-02","time":"09:30 AM"}`, http.StatusBadRequest, ""},
		{"missing slot", `{"patient_id":"P-9","doctor_id":"dr-smith","date":"2026-03-02"}`, http.StatusBadRequest, "please select a time slot"},
		{"off catalog slot", `{"patient_id":"P-9","doctor_id":"dr-smith","date":"2026-03-02","time":"12:00 PM"}`, http.StatusBadRequest, ""},
		{"bad date", `{"patient_id":"P-9","doctor_id":"dr-smith","date":"03/02/2026","time":"09:00 AM"}`, http.StatusBadRequest, ""},
		{"taken slot", `{"patient_id":"P-9","doctor_id":"dr-smith","date":"2026-03-02","time":"09:00 AM"}`, http.StatusConflict, "This slot is already booked for Dr. Sarah Smith."},
	}

	h, e := newTestHandler(t)
	if _, err := h.svc.Book(context.Background(), booking("P-1", "dr-smith", "2026-03-02", "09:00 AM")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(jsonRequest(http.MethodPost, tt.body), httptest.NewRecorder())
			httpErr := expectHTTPError(t, h.CreateAppointment(c), tt.code)
			if tt.msg != "" && httpErr.Message != tt.msg {
				t.Errorf("expected message %q, got %v", tt.msg, httpErr.Message)
			}
		})
	}
}

func TestHandler_GetAppointment(t *testing.T) {
	h, e := newTestHandler(t)
	a, _ := h.svc.Book(context.Background(), booking("P-1", "dr-jones", "2026-03-02", "10:00 AM"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetAppointment_NotFound(t *testing.T) {
	h, e := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.GetAppointment(c), http.StatusNotFound)
}

func TestHandler_GetAppointment_InvalidID(t *testing.T) {
	h, e := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectHTTPError(t, h.GetAppointment(c), http.StatusBadRequest)
}

func TestHandler_ListAppointments(t *testing.T) {
	h, e := newTestHandler(t)
	ctx := context.Background()
	h.svc.Book(ctx, booking("P-1", "dr-smith", "2026-03-02", "09:00 AM"))
	h.svc.Book(ctx, booking("P-2", "dr-smith", "2026-03-02", "09:30 AM"))
	h.svc.Book(ctx, booking("P-3", "dr-jones", "2026-03-02", "09:00 AM"))

	req := httptest.NewRequest(http.MethodGet, "/?doctor_id=dr-smith&limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []Appointment `json:"data"`
		Total   int           `json:"total"`
		Limit   int           `json:"limit"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || len(page.Data) != 1 || !page.HasMore || page.Limit != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if page.Data[0].PatientID != "P-1" {
		t.Errorf("expected insertion order, got %s first", page.Data[0].PatientID)
	}
}

func TestHandler_ListAppointments_DefaultLimit(t *testing.T) {
	h, e := newTestHandler(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Limit != pagination.DefaultLimit || page.Total != 0 {
		t.Errorf("unexpected page %+v", page)
	}
}

func TestHandler_ListAppointments_BadQuery(t *testing.T) {
	h, e := newTestHandler(t)
	for _, q := range []string{"status=Pending", "sort=price"} {
		t.Run(q, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
			expectHTTPError(t, h.ListAppointments(c), http.StatusBadRequest)
		})
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, e := newTestHandler(t)
	a, _ := h.svc.Book(context.Background(), booking("P-1", "dr-smith", "2026-03-02", "09:00 AM"))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, `{"status":"Cancelled"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.UpdateStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCancelled {
		t.Errorf("expected Cancelled, got %s", got.Status)
	}
}

func TestHandler_UpdateStatus_Errors(t *testing.T) {
	h, e := newTestHandler(t)
	ctx := context.Background()
	cancelled, _ := h.svc.Book(ctx, booking("P-1", "dr-smith", "2026-03-02", "09:00 AM"))
	h.svc.UpdateStatus(ctx, cancelled.ID, StatusCancelled)
	h.svc.Book(ctx, booking("P-2", "dr-smith", "2026-03-02", "09:00 AM"))

	tests := []struct {
		name string
		id   string
		body string
		code int
	}{
		{"invalid id", "nope", `{"status":"Completed"}`, http.StatusBadRequest},
		{"unknown status", cancelled.ID.String(), `{"status":"Lost"}`, http.StatusBadRequest},
		{"missing", uuid.New().String(), `{"status":"Completed"}`, http.StatusNotFound},
		{"reactivate taken slot", cancelled.ID.String(), `{"status":"Scheduled"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(jsonRequest(http.MethodPatch, tt.body), httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			expectHTTPError(t, h.UpdateStatus(c), tt.code)
		})
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, e := newTestHandler(t)
	rec := httptest.NewRecorder()
	if err := h.ListDoctors(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doctors []Doctor
	json.Unmarshal(rec.Body.Bytes(), &doctors)
	if len(doctors) != 2 || doctors[0].ID != "dr-smith" {
		t.Errorf("unexpected roster %+v", doctors)
	}

	bare := NewHandler(NewService(newTestStore(), zerolog.Nop()))
	rec = httptest.NewRecorder()
	bare.ListDoctors(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty array without a roster, got %s", body)
	}
}

func TestHandler_GetAvailability(t *testing.T) {
	h, e := newTestHandler(t)
	h.svc.Book(context.Background(), booking("P-1", "dr-jones", "2026-03-02", "09:30 AM"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?date=2026-03-02", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("dr-jones")
	if err := h.GetAvailability(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		DoctorID string             `json:"doctor_id"`
		Date     string             `json:"date"`
		Slots    []SlotAvailability `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DoctorID != "dr-jones" || len(resp.Slots) != len(DefaultSlotCatalog) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Slots[0].Status != SlotFree || resp.Slots[1].Status != SlotTaken {
		t.Errorf("unexpected first slots %+v", resp.Slots[:2])
	}
}

func TestHandler_GetAvailability_MissingDate(t *testing.T) {
	h, e := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("dr-jones")
	expectHTTPError(t, h.GetAvailability(c), http.StatusBadRequest)
}

func TestHandler_ListSlots(t *testing.T) {
	h, e := newTestHandler(t)
	rec := httptest.NewRecorder()
	if err := h.ListSlots(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var slots []string
	json.Unmarshal(rec.Body.Bytes(), &slots)
	if len(slots) != 12 || slots[0] != "09:00 AM" || slots[11] != "04:30 PM" {
		t.Errorf("unexpected catalog %v", slots)
	}
}

func TestHandler_RegisterRoutes_Roles(t *testing.T) {
	h, e := newTestHandler(t)
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := strings.Split(c.Request().Header.Get("X-Test-Roles"), ",")
			ctx := auth.WithIdentity(c.Request().Context(), "tester", roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(api)

	tests := []struct {
		method string
		path   string
		roles  string
		code   int
	}{
		{http.MethodGet, "/api/v1/slots", "physician", http.StatusOK},
		{http.MethodGet, "/api/v1/doctors", "nurse", http.StatusOK},
		{http.MethodGet, "/api/v1/appointments", "billing", http.StatusForbidden},
		{http.MethodPost, "/api/v1/appointments", "physician", http.StatusForbidden},
		{http.MethodPost, "/api/v1/appointments", "receptionist", http.StatusCreated},
		{http.MethodPost, "/api/v1/appointments", "admin", http.StatusConflict},
	}
	body := `{"patient_id":"P-1","doctor_id":"dr-smith","date":"2026-03-02","time":"09:00 AM"}`
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+tt.roles, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set("X-Test-Roles", tt.roles)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}
