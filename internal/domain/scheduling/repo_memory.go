package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepo keeps appointments in a process-lifetime slice. Restarting the
// process loses every booking.
type memoryRepo struct {
	mu    sync.RWMutex
	items []Appointment
	index map[uuid.UUID]int // appointment ID -> position in items
}

// NewMemoryRepo returns an empty in-memory repository.
func NewMemoryRepo() AppointmentRepository {
	return &memoryRepo{index: make(map[uuid.UUID]int)}
}

func (r *memoryRepo) Insert(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.index[a.ID]; dup {
		return fmt.Errorf("appointment %s already exists", a.ID)
	}
	r.index[a.ID] = len(r.items)
	r.items = append(r.items, *a)
	return nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.index[id]
	if !ok {
		return nil, &NotFoundError{ID: id.String()}
	}
	a := r.items[pos]
	return &a, nil
}

func (r *memoryRepo) List(_ context.Context) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *memoryRepo) ListByDoctorAndDate(_ context.Context, doctorID, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.items {
		if a.DoctorID == doctorID && a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetStatus(_ context.Context, id uuid.UUID, status Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.index[id]
	if !ok {
		return &NotFoundError{ID: id.String()}
	}
	r.items[pos].Status = status
	r.items[pos].UpdatedAt = at
	return nil
}
