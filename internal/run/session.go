package run

import (
	"github.com/rs/zerolog"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

// Session is the context one booking run hands to every component. It is
// created when the run starts and owned by the goroutine driving the run.
type Session struct {
	RunID    string
	Request  string
	Criteria booking.Criteria
	Page     browser.Page
	Logger   zerolog.Logger

	// Interactive runs may suspend on checkpoints for a human
	Interactive bool
}
