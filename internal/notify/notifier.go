package notify

import (
	"context"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// Report is what a finished booking run tells its recipient
type Report struct {
	RunID    string           `json:"run_id"`
	Request  string           `json:"request"`
	Criteria booking.Criteria `json:"criteria"`
	Outcome  booking.Outcome  `json:"outcome"`
}

// Notifier sends run reports to a specific recipient
type Notifier interface {
	// Send sends a report to the specified recipient
	Send(ctx context.Context, report Report, recipient string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
