package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool used by the postgres repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// uniqueViolation is the SQLSTATE raised by appointment_active_slot_uniq.
const uniqueViolation = "23505"

type appointmentRepoPG struct{ db Querier }

// NewAppointmentRepoPG returns a repository backed by the appointment table.
// The table's partial unique index enforces the one-active-appointment-per-slot
// rule across every process sharing the database.
func NewAppointmentRepoPG(db Querier) AppointmentRepository { return &appointmentRepoPG{db: db} }

const apptCols = `id::text, patient_id, patient_name, doctor_id, doctor_name, department,
	appt_date::text, slot_time, duration_minutes, status, appt_type, notes, created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		id           string
		status, kind string
	)
	err := row.Scan(&id, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName, &a.Department,
		&a.Date, &a.Time, &a.Duration, &status, &kind, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse appointment id %q: %w", id, err)
	}
	a.ID = parsed
	a.Status = Status(status)
	a.Type = AppointmentType(kind)
	return &a, nil
}

func (r *appointmentRepoPG) Insert(ctx context.Context, a *Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment (id, patient_id, patient_name, doctor_id, doctor_name, department,
			appt_date, slot_time, duration_minutes, status, appt_type, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::date,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.PatientID, a.PatientName, a.DoctorID, a.DoctorName, a.Department,
		a.Date, a.Time, a.Duration, string(a.Status), string(a.Type), a.Notes, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return &SlotConflictError{DoctorID: a.DoctorID, DoctorName: a.DoctorName, Date: a.Date, Time: a.Time}
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppointment(r.db.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) List(ctx context.Context) ([]Appointment, error) {
	return r.query(ctx, `SELECT `+apptCols+` FROM appointment ORDER BY seq`)
}

func (r *appointmentRepoPG) ListByDoctorAndDate(ctx context.Context, doctorID, date string) ([]Appointment, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		// Not a storable date, so nothing can match.
		return nil, nil
	}
	return r.query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND appt_date = $2::date ORDER BY seq`, doctorID, date)
}

func (r *appointmentRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE appointment SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at)
	if isUniqueViolation(err) {
		return ErrSlotConflict
	}
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{ID: id.String()}
	}
	return nil
}

func (r *appointmentRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()
	var items []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
