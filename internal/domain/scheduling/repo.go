package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository is the backing collection behind a Store. Only the
// Store calls it; implementations return copies, never shared pointers into
// their own state.
type AppointmentRepository interface {
	Insert(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// List returns every appointment in insertion order.
	List(ctx context.Context) ([]Appointment, error)
	// ListByDoctorAndDate includes cancelled appointments.
	ListByDoctorAndDate(ctx context.Context, doctorID, date string) ([]Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
}
