package scheduling

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxIDLength bounds patient and doctor ids; storage columns hold no more.
const MaxIDLength = 64

// Validator decides whether a booking may be committed. It never mutates
// anything: Validate is a function of the candidate and the snapshot of
// appointments it is given.
type Validator struct {
	catalog SlotCatalog
	roster  *Roster
	newID   func() uuid.UUID
}

// NewValidator returns a validator for the given slot catalog. roster may be
// nil, in which case doctor ids are not checked against a directory.
func NewValidator(catalog SlotCatalog, roster *Roster) *Validator {
	return &Validator{catalog: catalog, roster: roster, newID: uuid.New}
}

// Validate checks b against existing, which must hold at least every
// appointment of b's doctor on b's date. Checks run in a fixed order and the
// first failure is returned:
//
//	patient, doctor, roster membership, time slot, date, type, slot conflict
//
// On success the returned appointment has a fresh id and status Scheduled.
// Timestamps are left for the store to fill in.
func (v *Validator) Validate(b Booking, existing []Appointment) (*Appointment, error) {
	patientID := strings.TrimSpace(b.PatientID)
	if patientID == "" {
		return nil, ErrMissingPatient
	}
	if utf8.RuneCountInString(patientID) > MaxIDLength {
		return nil, fmt.Errorf("%w: id longer than %d characters", ErrMissingPatient, MaxIDLength)
	}
	doctorID := strings.TrimSpace(b.DoctorID)
	if doctorID == "" {
		return nil, ErrMissingDoctor
	}
	if utf8.RuneCountInString(doctorID) > MaxIDLength {
		return nil, fmt.Errorf("%w: id longer than %d characters", ErrMissingDoctor, MaxIDLength)
	}

	doctorName, department := b.DoctorName, b.Department
	if !v.roster.Empty() {
		d, ok := v.roster.Lookup(doctorID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDoctor, doctorID)
		}
		doctorName, department = d.Name, d.Department
	}

	if b.Time == "" {
		return nil, ErrMissingTimeSlot
	}
	if !v.catalog.Contains(b.Time) {
		return nil, fmt.Errorf("%w: %q is not an offered slot", ErrMissingTimeSlot, b.Time)
	}

	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return nil, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, b.Date)
	}

	typ := b.Type
	if typ == "" {
		typ = TypeInPerson
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, typ)
	}

	for i := range existing {
		if existing[i].Occupies(doctorID, b.Date, b.Time) {
			name := doctorName
			if name == "" {
				name = existing[i].DoctorName
			}
			return nil, &SlotConflictError{DoctorID: doctorID, DoctorName: name, Date: b.Date, Time: b.Time}
		}
	}

	duration := b.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	return &Appointment{
		ID:          v.newID(),
		PatientID:   patientID,
		PatientName: b.PatientName,
		DoctorID:    doctorID,
		DoctorName:  doctorName,
		Department:  department,
		Date:        b.Date,
		Time:        b.Time,
		Duration:    duration,
		Status:      StatusScheduled,
		Type:        typ,
		Notes:       b.Notes,
	}, nil
}

// conflictFor returns the conflict that reactivating a would cause against
// existing, or nil.
func conflictFor(a *Appointment, existing []Appointment) error {
	for i := range existing {
		if existing[i].ID == a.ID {
			continue
		}
		if existing[i].Occupies(a.DoctorID, a.Date, a.Time) {
			return &SlotConflictError{DoctorID: a.DoctorID, DoctorName: a.DoctorName, Date: a.Date, Time: a.Time}
		}
	}
	return nil
}
