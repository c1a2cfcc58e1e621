package scheduling

// SlotState classifies a catalog slot for one doctor and date.
type SlotState string

const (
	SlotFree  SlotState = "Free"
	SlotTaken SlotState = "Taken"
)

// SlotAvailability is one row of a doctor's day.
type SlotAvailability struct {
	Time   string    `json:"time"`
	Status SlotState `json:"status"`
}

// Availability classifies each catalog slot as free or taken, in catalog
// order. day must hold the appointments of a single doctor and date, as
// returned by Store.ForDoctorAndDate. Cancelled appointments never take a slot,
// and appointments whose label is not in the catalog are ignored.
func Availability(catalog SlotCatalog, day []Appointment) []SlotAvailability {
	out := make([]SlotAvailability, 0, len(catalog))
	for _, label := range catalog {
		state := SlotFree
		for i := range day {
			if day[i].Active() && day[i].Time == label {
				state = SlotTaken
				break
			}
		}
		out = append(out, SlotAvailability{Time: label, Status: state})
	}
	return out
}
