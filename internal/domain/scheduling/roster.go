package scheduling

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Roster is the read-only doctor directory supplied by configuration.
// A nil or empty roster accepts any doctor id and keeps caller-supplied
// display fields.
type Roster struct {
	doctors []Doctor
	byID    map[string]Doctor
}

// NewRoster indexes doctors by id. Ids must be non-empty and unique.
func NewRoster(doctors []Doctor) (*Roster, error) {
	r := &Roster{byID: make(map[string]Doctor, len(doctors))}
	for _, d := range doctors {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("roster entry %q has no id", d.Name)
		}
		if utf8.RuneCountInString(d.ID) > MaxIDLength {
			return nil, fmt.Errorf("roster id %q longer than %d characters", d.ID, MaxIDLength)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate doctor id %q in roster", d.ID)
		}
		r.byID[d.ID] = d
		r.doctors = append(r.doctors, d)
	}
	return r, nil
}

// Empty reports whether the roster has no entries.
func (r *Roster) Empty() bool { return r == nil || len(r.doctors) == 0 }

// Lookup returns the doctor with the given id.
func (r *Roster) Lookup(id string) (Doctor, bool) {
	if r == nil {
		return Doctor{}, false
	}
	d, ok := r.byID[id]
	return d, ok
}

// Doctors returns the roster in configuration order.
func (r *Roster) Doctors() []Doctor {
	if r == nil {
		return nil
	}
	out := make([]Doctor, len(r.doctors))
	copy(out, r.doctors)
	return out
}
