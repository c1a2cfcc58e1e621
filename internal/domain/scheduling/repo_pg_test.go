package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

var apptColumns = []string{
	"id", "patient_id", "patient_name", "doctor_id", "doctor_name", "department",
	"appt_date", "slot_time", "duration_minutes", "status", "appt_type", "notes", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (AppointmentRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewAppointmentRepoPG(mock), mock
}

func sampleAppointment() *Appointment {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return &Appointment{
		ID:          uuid.MustParse("7d0b6a52-1f1e-4a8e-9d43-3c9b8f1f0a01"),
		PatientID:   "P-1",
		PatientName: "Ann Lee",
		DoctorID:    "dr-smith",
		DoctorName:  "Sarah Smith",
		Department:  "Cardiology",
		Date:        "2026-03-02",
		Time:        "09:00 AM",
		Duration:    30,
		Status:      StatusScheduled,
		Type:        TypeInPerson,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func addRow(rows *pgxmock.Rows, a *Appointment) *pgxmock.Rows {
	return rows.AddRow(a.ID.String(), a.PatientID, a.PatientName, a.DoctorID, a.DoctorName, a.Department,
		a.Date, a.Time, a.Duration, string(a.Status), string(a.Type), a.Notes, a.CreatedAt, a.UpdatedAt)
}

// insertArgs is the argument list repo.Insert sends for a.
func insertArgs(a *Appointment) []interface{} {
	return []interface{}{a.ID, a.PatientID, a.PatientName, a.DoctorID, a.DoctorName, a.Department,
		a.Date, a.Time, a.Duration, string(a.Status), string(a.Type), a.Notes, a.CreatedAt, a.UpdatedAt}
}

func expectMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRepoPG_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()

	mock.ExpectExec("INSERT INTO appointment").
		WithArgs(insertArgs(a)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	expectMet(t, mock)
}

func TestRepoPG_InsertUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()

	mock.ExpectExec("INSERT INTO appointment").
		WithArgs(insertArgs(a)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointment_active_slot_uniq"})

	err := repo.Insert(context.Background(), a)
	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	if conflict.Error() != "This slot is already booked for Dr. Sarah Smith." {
		t.Errorf("unexpected message %q", conflict.Error())
	}
	expectMet(t, mock)
}

func TestRepoPG_InsertOtherError(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()
	mock.ExpectExec("INSERT INTO appointment").
		WithArgs(insertArgs(a)...).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), a)
	if err == nil || errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected plain error, got %v", err)
	}
	expectMet(t, mock)
}

func TestRepoPG_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()

	mock.ExpectQuery("FROM appointment WHERE id = ").
		WithArgs(a.ID).
		WillReturnRows(addRow(mock.NewRows(apptColumns), a))

	got, err := repo.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *a {
		t.Errorf("got %+v, want %+v", got, a)
	}
	expectMet(t, mock)
}

func TestRepoPG_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("FROM appointment WHERE id = ").
		WithArgs(id).
		WillReturnRows(mock.NewRows(apptColumns))

	_, err := repo.Get(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestRepoPG_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()
	b := sampleAppointment()
	b.ID = uuid.MustParse("7d0b6a52-1f1e-4a8e-9d43-3c9b8f1f0a02")
	b.Time = "09:30 AM"
	b.Status = StatusCancelled

	rows := mock.NewRows(apptColumns)
	addRow(rows, a)
	addRow(rows, b)
	mock.ExpectQuery("FROM appointment ORDER BY seq").WillReturnRows(rows)

	items, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].ID != a.ID || items[1].Status != StatusCancelled {
		t.Errorf("unexpected items %+v", items)
	}
	expectMet(t, mock)
}

func TestRepoPG_ListByDoctorAndDate(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()

	mock.ExpectQuery("WHERE doctor_id = \\$1 AND appt_date = \\$2::date").
		WithArgs("dr-smith", "2026-03-02").
		WillReturnRows(addRow(mock.NewRows(apptColumns), a))

	items, err := repo.ListByDoctorAndDate(context.Background(), "dr-smith", "2026-03-02")
	if err != nil {
		t.Fatalf("ListByDoctorAndDate: %v", err)
	}
	if len(items) != 1 || items[0].Time != "09:00 AM" {
		t.Errorf("unexpected items %+v", items)
	}
	expectMet(t, mock)
}

func TestRepoPG_ListByDoctorAndDate_InvalidDate(t *testing.T) {
	repo, mock := newMockRepo(t)

	items, err := repo.ListByDoctorAndDate(context.Background(), "dr-smith", "not-a-date")
	if err != nil || items != nil {
		t.Errorf("expected no query and no rows, got %v, %v", items, err)
	}
	expectMet(t, mock)
}

func TestRepoPG_SetStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE appointment SET status").
		WithArgs(id, "Checked-In", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetStatus(context.Background(), id, StatusCheckedIn, at); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	expectMet(t, mock)
}

func TestRepoPG_SetStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE appointment SET status").
		WithArgs(id, "Completed", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetStatus(context.Background(), id, StatusCompleted, at)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestRepoPG_SetStatusUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE appointment SET status").
		WithArgs(id, "Scheduled", at).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.SetStatus(context.Background(), id, StatusScheduled, at)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestStore_PostgresReactivationConflictGetsFullMessage(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment()
	a.Status = StatusCancelled
	at := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	s := NewStore(repo, DefaultSlotCatalog, WithClock(func() time.Time { return at }))

	mock.ExpectQuery("FROM appointment WHERE id = ").
		WithArgs(a.ID).
		WillReturnRows(addRow(mock.NewRows(apptColumns), a))
	mock.ExpectQuery("WHERE doctor_id = ").
		WithArgs(a.DoctorID, a.Date).
		WillReturnRows(addRow(mock.NewRows(apptColumns), a))
	mock.ExpectExec("UPDATE appointment SET status").
		WithArgs(a.ID, "Scheduled", at).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.UpdateStatus(context.Background(), a.ID, StatusScheduled)
	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	if conflict.Error() != "This slot is already booked for Dr. Sarah Smith." {
		t.Errorf("unexpected message %q", conflict.Error())
	}
	expectMet(t, mock)
}
