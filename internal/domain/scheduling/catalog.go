package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// slotLayout is the printable form of a slot label, e.g. "09:30 AM".
const slotLayout = "03:04 PM"

// SlotCatalog is the ordered set of bookable daily slot labels.
type SlotCatalog []string

// DefaultSlotCatalog holds twelve half-hour slots with a lunch gap.
var DefaultSlotCatalog = SlotCatalog{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}

// NewSlotCatalog builds a catalog from configured labels, keeping their order.
// An empty list yields DefaultSlotCatalog.
func NewSlotCatalog(labels []string) (SlotCatalog, error) {
	var out SlotCatalog
	seen := make(map[string]bool, len(labels))
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		if _, err := time.Parse(slotLayout, label); err != nil {
			return nil, fmt.Errorf("invalid slot label %q: want format like \"09:30 AM\"", label)
		}
		if seen[label] {
			return nil, fmt.Errorf("duplicate slot label %q", label)
		}
		seen[label] = true
		out = append(out, label)
	}
	if len(out) == 0 {
		return append(SlotCatalog(nil), DefaultSlotCatalog...), nil
	}
	return out, nil
}

// Contains reports whether label is a bookable slot.
func (c SlotCatalog) Contains(label string) bool {
	for _, l := range c {
		if l == label {
			return true
		}
	}
	return false
}

// slotMinutes converts a slot label to minutes after midnight for ordering.
// Labels that do not parse sort after every valid label.
func slotMinutes(label string) int {
	t, err := time.Parse(slotLayout, label)
	if err != nil {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}
