package mapper

import "github.com/omriShneor/room_booking_agent/internal/booking"

// Requirement describes how to recognize the control for one booking field
type Requirement struct {
	Name     string
	Keywords []string
	// Types are the field types that can hold the value
	Types []string
	// NativeBonus rewards a field type built for exactly this value
	NativeBonus map[string]float64
	// Fallbacks are broader CSS selectors tried when scoring finds nothing
	Fallbacks []string
}

// Requirements in mapping priority order
var Requirements = []Requirement{
	{
		Name:        booking.FieldDate,
		Keywords:    []string{"date", "day", "when", "calendar"},
		Types:       []string{"date", "text"},
		NativeBonus: map[string]float64{"date": 0.4},
		Fallbacks: []string{
			"input[type='date']",
			"input[name*='date' i]",
			"input[id*='date' i]",
			"input[placeholder*='date' i]",
			"input[class*='date' i]",
		},
	},
	{
		Name:        booking.FieldStartTime,
		Keywords:    []string{"start", "from", "begin", "starting"},
		Types:       []string{"time", "select", "text"},
		NativeBonus: map[string]float64{"time": 0.3},
		Fallbacks: []string{
			"input[name*='start' i]",
			"select[name*='start' i]",
			"input[id*='start' i]",
			"select[id*='start' i]",
		},
	},
	{
		Name:        booking.FieldEndTime,
		Keywords:    []string{"end", "to", "until", "ending", "finish"},
		Types:       []string{"time", "select", "text"},
		NativeBonus: map[string]float64{"time": 0.3},
		Fallbacks: []string{
			"input[name*='end' i]",
			"select[name*='end' i]",
			"input[id*='end' i]",
			"select[id*='end' i]",
		},
	},
	{
		Name:     booking.FieldDuration,
		Keywords: []string{"duration", "length", "hours", "minutes"},
		Types:    []string{"select", "text", "number"},
		Fallbacks: []string{
			"select[name*='duration' i]",
			"input[name*='duration' i]",
		},
	},
	{
		Name:        booking.FieldCapacity,
		Keywords:    []string{"capacity", "people", "attendees", "size", "occupancy", "seats"},
		Types:       []string{"number", "select", "text"},
		NativeBonus: map[string]float64{"number": 0.2},
		Fallbacks: []string{
			"input[name*='capacity' i]",
			"input[name*='attendee' i]",
			"select[name*='capacity' i]",
			"input[type='number']",
		},
	},
	{
		Name:     booking.FieldLocation,
		Keywords: []string{"location", "building", "where", "place", "room"},
		Types:    []string{"select", "text"},
		Fallbacks: []string{
			"select[name*='building' i]",
			"select[name*='location' i]",
			"input[name*='location' i]",
		},
	},
	{
		Name:     booking.FieldPurpose,
		Keywords: []string{"purpose", "reason", "description", "title", "event", "meeting"},
		Types:    []string{"text", "textarea"},
		Fallbacks: []string{
			"textarea[name*='purpose' i]",
			"input[name*='purpose' i]",
			"input[name*='title' i]",
		},
	},
}

// Lookup returns the requirement with the given name
func Lookup(name string) (Requirement, bool) {
	for _, r := range Requirements {
		if r.Name == name {
			return r, true
		}
	}
	return Requirement{}, false
}
