package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

var tracer = otel.Tracer("clinicdesk/scheduling")

// Event types published after successful mutations.
const (
	EventAppointmentBooked        = "appointment.booked"
	EventAppointmentStatusChanged = "appointment.status_changed"
)

// Recorder receives booking and status-update outcomes.
type Recorder interface {
	ObserveBooking(outcome string, seconds float64)
	ObserveStatusUpdate(status, outcome string)
}

// Publisher fans appointment changes out to listeners such as open consoles.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	store   *Store
	logger  zerolog.Logger
	metrics Recorder
	events  Publisher
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption { return func(s *Service) { s.metrics = r } }

func WithPublisher(p Publisher) ServiceOption { return func(s *Service) { s.events = p } }

func NewService(store *Store, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: logger.With().Str("component", "scheduling").Logger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -- Booking --

func (s *Service) Book(ctx context.Context, b Booking) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Book", trace.WithAttributes(
		attribute.String("doctor_id", b.DoctorID),
		attribute.String("date", b.Date),
		attribute.String("time", b.Time),
	))
	defer span.End()

	start := time.Now()
	appt, err := s.store.Add(ctx, b)
	outcome := "booked"
	if err != nil {
		outcome = ErrorKind(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveBooking(outcome, time.Since(start).Seconds())
	}

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		evt := s.logger.Warn()
		if !IsRejection(err) {
			evt = s.logger.Error()
			span.RecordError(err)
		}
		evt.Err(err).
			Str("kind", outcome).
			Str("patient_id", b.PatientID).
			Str("doctor_id", b.DoctorID).
			Str("date", b.Date).
			Str("time", b.Time).
			Msg("booking rejected")
		return nil, err
	}

	span.SetAttributes(attribute.String("appointment_id", appt.ID.String()))
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID).
		Str("date", appt.Date).
		Str("time", appt.Time).
		Msg("appointment booked")
	s.publish(ctx, EventAppointmentBooked, appt)
	return appt, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.UpdateStatus", trace.WithAttributes(
		attribute.String("appointment_id", id.String()),
		attribute.String("status", string(status)),
	))
	defer span.End()

	appt, err := s.store.UpdateStatus(ctx, id, status)
	if s.metrics != nil {
		outcome := "updated"
		if err != nil {
			outcome = ErrorKind(err)
		}
		s.metrics.ObserveStatusUpdate(string(status), outcome)
	}
	if err != nil {
		span.SetStatus(codes.Error, ErrorKind(err))
		s.logger.Warn().Err(err).
			Str("appointment_id", id.String()).
			Str("status", string(status)).
			Msg("status update rejected")
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("status", string(status)).
		Msg("appointment status changed")
	s.publish(ctx, EventAppointmentStatusChanged, appt)
	return appt, nil
}

func (s *Service) publish(ctx context.Context, eventType string, appt *Appointment) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, appt); err != nil {
		s.logger.Error().Err(err).
			Str("event", eventType).
			Str("appointment_id", appt.ID.String()).
			Msg("publish appointment event")
	}
}

// -- Reads --

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Availability(ctx context.Context, doctorID, date string) ([]SlotAvailability, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Availability", trace.WithAttributes(
		attribute.String("doctor_id", doctorID),
		attribute.String("date", date),
	))
	defer span.End()
	return s.store.Availability(ctx, doctorID, date)
}

func (s *Service) Doctors() []Doctor { return s.store.Roster().Doctors() }

func (s *Service) Catalog() SlotCatalog { return s.store.Catalog() }

// ListFilter narrows and orders an appointment listing. Zero values mean "no
// filter"; Limit <= 0 returns everything from Offset on.
type ListFilter struct {
	DoctorID  string
	PatientID string
	Date      string
	Status    Status
	Query     string
	// Sort is one of "", "date", "-date", "patient", "doctor". The empty
	// value keeps insertion order.
	Sort   string
	Limit  int
	Offset int
}

// ListAppointments returns one page of matching appointments and the total
// number of matches.
func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	items := make([]Appointment, 0, len(all))
	for _, a := range all {
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if q != "" && !matchesQuery(&a, q) {
			continue
		}
		items = append(items, a)
	}

	sortAppointments(items, f.Sort)

	start, end := pagination.Params{Limit: f.Limit, Offset: f.Offset}.Bounds(len(items))
	return items[start:end], len(items), nil
}

func matchesQuery(a *Appointment, q string) bool {
	for _, field := range []string{a.PatientName, a.PatientID, a.DoctorName, a.Department, a.ID.String()} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func sortAppointments(items []Appointment, key string) {
	chronological := func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return slotMinutes(items[i].Time) < slotMinutes(items[j].Time)
	}
	switch key {
	case "date":
		sort.SliceStable(items, chronological)
	case "-date":
		sort.SliceStable(items, func(i, j int) bool { return chronological(j, i) })
	case "patient":
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].PatientName) < strings.ToLower(items[j].PatientName)
		})
	case "doctor":
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].DoctorName) < strings.ToLower(items[j].DoctorName)
		})
	}
}
