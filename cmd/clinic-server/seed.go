package main

import (
	"context"
	"errors"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
)

// demoDoctors is used when no roster file is configured.
var demoDoctors = []scheduling.Doctor{
	{ID: "dr-smith", Name: "Sarah Smith", Department: "Cardiology"},
	{ID: "dr-patel", Name: "Raj Patel", Department: "General Medicine"},
	{ID: "dr-garcia", Name: "Elena Garcia", Department: "Pediatrics"},
}

type demoBooking struct {
	patientID, patientName string
	doctor                 int
	dayOffset              int
	slot                   int
	kind                   scheduling.AppointmentType
	status                 scheduling.Status
}

var demoBookings = []demoBooking{
	{"P-1001", "John Carter", 0, 0, 0, scheduling.TypeInPerson, scheduling.StatusCheckedIn},
	{"P-1002", "Maria Lopez", 0, 0, 1, scheduling.TypeFollowUp, scheduling.StatusScheduled},
	{"P-1003", "Wei Chen", 0, 0, 2, scheduling.TypeTelemedicine, scheduling.StatusCancelled},
	{"P-1004", "Amara Okafor", 1, 0, 0, scheduling.TypeInPerson, scheduling.StatusScheduled},
	{"P-1005", "Liam Murphy", 2, 0, 6, scheduling.TypeWalkIn, scheduling.StatusScheduled},
	{"P-1001", "John Carter", 0, 1, 3, scheduling.TypeFollowUp, scheduling.StatusScheduled},
	{"P-1006", "Sofia Rossi", 1, 1, 7, scheduling.TypeInPerson, scheduling.StatusScheduled},
}

// seedDemo books a small fixed set of appointments around day. Bookings that
// collide with existing ones are skipped, so seeding twice is harmless.
func seedDemo(ctx context.Context, store *scheduling.Store, day time.Time) (int, error) {
	doctors := store.Roster().Doctors()
	if len(doctors) == 0 {
		doctors = demoDoctors
	}
	catalog := store.Catalog()

	seeded := 0
	var errs []error
	for _, d := range demoBookings {
		if len(catalog) == 0 {
			break
		}
		doc := doctors[d.doctor%len(doctors)]
		appt, err := store.Add(ctx, scheduling.Booking{
			PatientID:   d.patientID,
			PatientName: d.patientName,
			DoctorID:    doc.ID,
			DoctorName:  doc.Name,
			Department:  doc.Department,
			Date:        day.AddDate(0, 0, d.dayOffset).Format(scheduling.DateLayout),
			Time:        catalog[d.slot%len(catalog)],
			Type:        d.kind,
		})
		if errors.Is(err, scheduling.ErrSlotConflict) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seeded++
		if d.status != scheduling.StatusScheduled {
			if _, err := store.UpdateStatus(ctx, appt.ID, d.status); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return seeded, errors.Join(errs...)
}
