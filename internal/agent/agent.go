package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/normalize"
)

const disabledNote = "AI processing disabled - OpenAI API key not configured"

// Agent fronts the extraction backend and the criteria normalizer
type Agent struct {
	extractor  Extractor
	normalizer *normalize.Normalizer
	logger     zerolog.Logger
}

// New creates an Agent. extractor may be nil, in which case every request
// gets the "AI processing disabled" note.
func New(extractor Extractor, normalizer *normalize.Normalizer) *Agent {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &Agent{
		extractor:  extractor,
		normalizer: normalizer,
		logger:     log.With().Str("component", "agent").Logger(),
	}
}

// IsConfigured returns true if requests reach a language model
func (a *Agent) IsConfigured() bool {
	return a.extractor != nil && a.extractor.IsConfigured()
}

// ProcessRequest extracts booking details from text. A missing backend is
// reported through the Extraction's Note rather than as an error.
func (a *Agent) ProcessRequest(ctx context.Context, text string) (*booking.Extraction, error) {
	if !a.IsConfigured() {
		a.logger.Warn().Msg("OpenAI API key not configured - AI features disabled")
		return &booking.Extraction{
			Message: fmt.Sprintf("Received request: %s", text),
			Status:  "received",
			Note:    disabledNote,
		}, nil
	}

	extraction, err := a.extractor.Extract(ctx, text)
	if err != nil {
		a.logger.Error().Err(err).Msg("error processing request")
		return nil, fmt.Errorf("failed to process request: %w", err)
	}
	return extraction, nil
}

// Criteria normalizes whatever the extraction produced
func (a *Agent) Criteria(extraction *booking.Extraction) booking.Criteria {
	return a.normalizer.Criteria(extraction.Details())
}

// GenerateResponse renders an extraction as a chat reply
func GenerateResponse(extraction *booking.Extraction) string {
	if extraction == nil {
		return "I've processed your request. Please provide more specific details to help me find the perfect room for you."
	}

	if extraction.Note != "" {
		return fmt.Sprintf("I received your request: '%s'. %s", extraction.Message, extraction.Note)
	}

	if extraction.ExtractedDetails == nil {
		return "I've processed your request. Please provide more specific details to help me find the perfect room for you."
	}

	details := extraction.Details()
	var understood []string
	add := func(label string, v booking.Text) {
		if v.String() != "" {
			understood = append(understood, fmt.Sprintf("%s: %s", label, v.String()))
		}
	}
	add("date", details.Date)
	add("time", details.StartTime)
	add("duration", details.Duration)
	if details.Capacity != nil && details.Capacity != "" {
		understood = append(understood, fmt.Sprintf("capacity: %v people", details.Capacity))
	}
	add("location", details.Location)
	if equipment := normalize.Equipment(details.Equipment); len(equipment) > 0 {
		understood = append(understood, fmt.Sprintf("equipment: %s", strings.Join(equipment, ", ")))
	}
	add("purpose", details.Purpose)

	var parts []string
	if len(understood) > 0 {
		parts = append(parts, fmt.Sprintf("I understand you need a room booking with: %s.", strings.Join(understood, ", ")))
	}
	if len(extraction.MissingInfo) > 0 {
		parts = append(parts, fmt.Sprintf("To complete your booking, I still need: %s.", strings.Join(extraction.MissingInfo, ", ")))
	}
	if s := extraction.Suggestions.String(); s != "" {
		parts = append(parts, s)
	}
	if s := extraction.NextSteps.String(); s != "" {
		parts = append(parts, s)
	}

	return strings.Join(parts, " ")
}

// ErrorResponse renders a processing failure as a chat reply
func ErrorResponse(err error) string {
	return fmt.Sprintf("I encountered an issue: %v", err)
}
