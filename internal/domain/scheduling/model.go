package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCheckedIn Status = "Checked-In"
	StatusCompleted Status = "Completed"
	StatusNoShow    Status = "No-Show"
	StatusCancelled Status = "Cancelled"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusCheckedIn: true, StatusCompleted: true,
	StatusNoShow: true, StatusCancelled: true,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool { return validStatuses[s] }

// AppointmentType is the kind of encounter being booked.
type AppointmentType string

const (
	TypeInPerson     AppointmentType = "In-Person"
	TypeTelemedicine AppointmentType = "Telemedicine"
	TypeFollowUp     AppointmentType = "Follow-up"
	TypeWalkIn       AppointmentType = "Walk-In"
)

var validTypes = map[AppointmentType]bool{
	TypeInPerson: true, TypeTelemedicine: true, TypeFollowUp: true, TypeWalkIn: true,
}

// Valid reports whether t is one of the known appointment types.
func (t AppointmentType) Valid() bool { return validTypes[t] }

// DefaultDuration is used when a booking does not specify one.
const DefaultDuration = 30

// DateLayout is the ISO 8601 calendar date format used for Appointment.Date.
const DateLayout = "2006-01-02"

// Appointment is a scheduled clinical encounter. Patient and doctor fields are
// snapshots taken at booking time.
type Appointment struct {
	ID          uuid.UUID       `json:"id"`
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name,omitempty"`
	DoctorID    string          `json:"doctor_id"`
	DoctorName  string          `json:"doctor_name,omitempty"`
	Department  string          `json:"department,omitempty"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	Duration    int             `json:"duration"`
	Status      Status          `json:"status"`
	Type        AppointmentType `json:"type"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Active reports whether the appointment still holds its slot.
func (a *Appointment) Active() bool { return a.Status != StatusCancelled }

// Occupies reports whether a holds the given doctor/date/slot triple.
func (a *Appointment) Occupies(doctorID, date, slot string) bool {
	return a.Active() && a.DoctorID == doctorID && a.Date == date && a.Time == slot
}

// Booking is a candidate appointment as submitted by a caller.
type Booking struct {
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name,omitempty"`
	DoctorID    string          `json:"doctor_id"`
	DoctorName  string          `json:"doctor_name,omitempty"`
	Department  string          `json:"department,omitempty"`
	Date        string          `json:"date"`
	Time        string          `json:"time"`
	Type        AppointmentType `json:"type,omitempty"`
	Duration    int             `json:"duration,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Doctor is a roster entry. ID is the scheduling key; Name and Department are
// display data copied onto appointments.
type Doctor struct {
	ID         string `json:"id" mapstructure:"id"`
	Name       string `json:"name" mapstructure:"name"`
	Department string `json:"department" mapstructure:"department"`
}
