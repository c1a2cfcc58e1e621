package scheduling

import (
	"errors"
	"fmt"
)

// Booking and status-update rejections. All of them are expected outcomes of
// user input; none is transient.
var (
	ErrMissingPatient  = errors.New("please select a patient")
	ErrMissingDoctor   = errors.New("please select a doctor")
	ErrMissingTimeSlot = errors.New("please select a time slot")
	ErrInvalidDate     = errors.New("invalid appointment date")
	ErrInvalidType     = errors.New("invalid appointment type")
	ErrInvalidStatus   = errors.New("invalid appointment status")
	ErrUnknownDoctor   = errors.New("unknown doctor")
	ErrSlotConflict    = errors.New("slot is already booked")
	ErrNotFound        = errors.New("appointment not found")
)

// SlotConflictError reports that a doctor already holds a non-cancelled
// appointment at the requested date and slot.
type SlotConflictError struct {
	DoctorID   string
	DoctorName string
	Date       string
	Time       string
}

func (e *SlotConflictError) Error() string {
	name := e.DoctorName
	if name == "" {
		name = e.DoctorID
	}
	return fmt.Sprintf("This slot is already booked for Dr. %s.", name)
}

func (e *SlotConflictError) Is(target error) bool { return target == ErrSlotConflict }

// NotFoundError reports a status update or lookup for an unknown appointment.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("appointment %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ErrorKind returns a stable short label for a scheduling error, used for
// metrics and log fields. Unrecognised errors are reported as "error".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingPatient):
		return "missing_patient"
	case errors.Is(err, ErrMissingDoctor):
		return "missing_doctor"
	case errors.Is(err, ErrUnknownDoctor):
		return "unknown_doctor"
	case errors.Is(err, ErrMissingTimeSlot):
		return "missing_time_slot"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// IsRejection reports whether err is a business-rule rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	k := ErrorKind(err)
	return k != "ok" && k != "error"
}
