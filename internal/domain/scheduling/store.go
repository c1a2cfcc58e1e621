package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlotLocker serializes bookings of one doctor/date/slot across processes.
// Lock reports acquired=false when another holder owns the key.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, acquired bool, err error)
}

// Store is the sole owner and mutator of the appointment collection. Check
// and commit happen under one mutex, so concurrent callers can never both pass
// the conflict check for the same slot.
type Store struct {
	mu        sync.Mutex
	repo      AppointmentRepository
	validator *Validator
	catalog   SlotCatalog
	roster    *Roster
	locker    SlotLocker
	logger    zerolog.Logger
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRoster checks doctor ids against r and snapshots names from it.
func WithRoster(r *Roster) StoreOption { return func(s *Store) { s.roster = r } }

// WithSlotLocker adds a cross-process lock around check-and-commit.
func WithSlotLocker(l SlotLocker) StoreOption { return func(s *Store) { s.locker = l } }

// WithLogger sets the logger used for lock release failures.
func WithLogger(l zerolog.Logger) StoreOption { return func(s *Store) { s.logger = l } }

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) StoreOption { return func(s *Store) { s.now = now } }

// NewStore returns a store over repo using catalog as the bookable slots.
func NewStore(repo AppointmentRepository, catalog SlotCatalog, opts ...StoreOption) *Store {
	s := &Store{repo: repo, catalog: catalog, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(catalog, s.roster)
	return s
}

// Catalog returns a copy of the active slot catalog.
func (s *Store) Catalog() SlotCatalog { return append(SlotCatalog(nil), s.catalog...) }

// Roster returns the configured doctor roster, possibly nil.
func (s *Store) Roster() *Roster { return s.roster }

// List returns every appointment in insertion order.
func (s *Store) List(ctx context.Context) ([]Appointment, error) {
	return s.repo.List(ctx)
}

// Get returns one appointment.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

// ForDoctorAndDate returns the doctor's appointments on date, cancelled ones
// included.
func (s *Store) ForDoctorAndDate(ctx context.Context, doctorID, date string) ([]Appointment, error) {
	doctorID = strings.TrimSpace(doctorID)
	return s.repo.ListByDoctorAndDate(ctx, doctorID, date)
}

// Availability classifies every catalog slot for doctorID on date.
func (s *Store) Availability(ctx context.Context, doctorID, date string) ([]SlotAvailability, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, ErrMissingDoctor
	}
	if !s.roster.Empty() {
		if _, ok := s.roster.Lookup(doctorID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDoctor, doctorID)
		}
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, date)
	}
	day, err := s.repo.ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return Availability(s.catalog, day), nil
}

// Add validates b against the current appointments of its doctor and date and
// appends it on success. Nothing is stored when an error is returned.
func (s *Store) Add(ctx context.Context, b Booking) (*Appointment, error) {
	b.DoctorID = strings.TrimSpace(b.DoctorID)

	// Field rejections must win over a busy slot lock.
	if _, err := s.validator.Validate(b, nil); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var appt *Appointment
	err := s.withSlotLock(ctx, b.DoctorID, b.Date, b.Time, func() error {
		existing, err := s.repo.ListByDoctorAndDate(ctx, b.DoctorID, b.Date)
		if err != nil {
			return err
		}
		a, err := s.validator.Validate(b, existing)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		a.CreatedAt, a.UpdatedAt = now, now
		if err := s.repo.Insert(ctx, a); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// UpdateStatus moves an appointment to status. Reactivating a cancelled
// appointment is refused when its slot has since been booked again.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	apply := func() error {
		at := s.now().UTC()
		err := s.repo.SetStatus(ctx, id, status, at)
		if errors.Is(err, ErrSlotConflict) {
			return &SlotConflictError{DoctorID: current.DoctorID, DoctorName: current.DoctorName, Date: current.Date, Time: current.Time}
		}
		if err != nil {
			return err
		}
		current.Status, current.UpdatedAt = status, at
		return nil
	}

	if current.Active() || status == StatusCancelled {
		if err := apply(); err != nil {
			return nil, err
		}
		return current, nil
	}

	err = s.withSlotLock(ctx, current.DoctorID, current.Date, current.Time, func() error {
		existing, err := s.repo.ListByDoctorAndDate(ctx, current.DoctorID, current.Date)
		if err != nil {
			return err
		}
		reactivated := *current
		reactivated.Status = status
		if err := conflictFor(&reactivated, existing); err != nil {
			return err
		}
		return apply()
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// withSlotLock runs fn while holding the distributed lock for the slot, when
// a locker is configured and the slot is fully specified.
func (s *Store) withSlotLock(ctx context.Context, doctorID, date, slot string, fn func() error) error {
	if s.locker == nil || doctorID == "" || date == "" || slot == "" {
		return fn()
	}
	unlock, acquired, err := s.locker.Lock(ctx, SlotKey(doctorID, date, slot))
	if err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}
	if !acquired {
		name := doctorID
		if d, ok := s.roster.Lookup(doctorID); ok {
			name = d.Name
		}
		return &SlotConflictError{DoctorID: doctorID, DoctorName: name, Date: date, Time: slot}
	}
	defer func() {
		// fn's outcome stands; a lost lease is only reported.
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("key", SlotKey(doctorID, date, slot)).Msg("slot lock release failed")
		}
	}()
	return fn()
}

// SlotKey is the lock key for one doctor/date/slot triple.
func SlotKey(doctorID, date, slot string) string {
	return doctorID + ":" + date + ":" + slot
}
