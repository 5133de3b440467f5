package submission

import (
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

var (
	successIndicators = []string{
		"booking confirmed",
		"reservation successful",
		"booking complete",
		"reserved successfully",
		"confirmation number",
		"booking reference",
	}
	resultIndicators = []string{"available room", "search result"}
	errorIndicators  = []string{"error", "not available", "conflict", "invalid"}
)

// Classify buckets page text by keyword, checking success, then search
// results, then errors.
func Classify(text string) booking.OutcomeKind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, successIndicators):
		return booking.OutcomeSuccess
	case containsAny(lower, resultIndicators):
		return booking.OutcomeSearchResults
	case containsAny(lower, errorIndicators):
		return booking.OutcomeError
	default:
		return booking.OutcomeUnknown
	}
}

// IsAmbiguous reports whether a success page also carries error wording
func IsAmbiguous(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, successIndicators) && containsAny(lower, errorIndicators)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
