package agent

import (
	"context"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// Extractor turns a free-text request into structured booking details.
// *llm.Client implements it.
type Extractor interface {
	// Extract makes a single model call for the request
	Extract(ctx context.Context, request string) (*booking.Extraction, error)

	// IsConfigured returns true if the extraction backend has credentials
	IsConfigured() bool
}
