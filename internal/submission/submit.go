// Package submission clicks the form's submit control and classifies the
// page that comes back.
package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

var submitKeywords = []string{"book", "reserve", "submit", "search", "find"}

// Submitter finds and clicks the control that submits a form
type Submitter struct {
	// Wait is the fixed delay after clicking, for the portal to respond
	Wait   time.Duration
	logger zerolog.Logger
}

func NewSubmitter(wait time.Duration) *Submitter {
	return &Submitter{
		Wait:   wait,
		logger: log.With().Str("component", "submitter").Logger(),
	}
}

// WithLogger returns a copy logging through logger
func (s *Submitter) WithLogger(logger zerolog.Logger) *Submitter {
	c := *s
	c.logger = logger.With().Str("component", "submitter").Logger()
	return &c
}

// Submit clicks the best submit candidate on page and waits
func (s *Submitter) Submit(ctx context.Context, page browser.Page) (booking.Element, error) {
	elements, err := page.Elements(ctx, 0)
	if err != nil {
		return booking.Element{}, fmt.Errorf("failed to enumerate buttons: %w", err)
	}

	var buttons []booking.Element
	for _, el := range elements {
		if el.Visible && isButton(el) {
			buttons = append(buttons, el)
		}
	}

	button, ok := ChooseSubmit(buttons)
	if !ok {
		return booking.Element{}, apperr.NewSelectorMiss("no submit button found")
	}

	s.logger.Info().
		Str("selector", button.Selector).
		Str("text", buttonText(button)).
		Msg("Submitting form")

	if err := page.Click(ctx, button.Selector); err != nil {
		return button, fmt.Errorf("failed to click submit button: %w", err)
	}
	if err := browser.Pause(ctx, s.Wait); err != nil {
		return button, err
	}
	return button, nil
}

// BookRoom clicks the Book control of the first room that has one
func (s *Submitter) BookRoom(ctx context.Context, page browser.Page, rooms []booking.Room) (booking.Room, error) {
	for _, room := range rooms {
		if room.BookSelector == "" {
			continue
		}
		s.logger.Info().Str("room", room.Name).Msg("Booking room")
		if err := page.Click(ctx, room.BookSelector); err != nil {
			return room, fmt.Errorf("failed to click book control for %s: %w", room.Name, err)
		}
		return room, browser.Pause(ctx, s.Wait)
	}
	return booking.Room{}, apperr.NewSelectorMiss("no room with a book control")
}

// ChooseSubmit prefers submit-typed controls, then controls whose text reads
// like booking or searching, then the first control.
func ChooseSubmit(buttons []booking.Element) (booking.Element, bool) {
	if len(buttons) == 0 {
		return booking.Element{}, false
	}
	for _, b := range buttons {
		if strings.EqualFold(b.Type, "submit") {
			return b, true
		}
	}
	for _, b := range buttons {
		if containsAny(strings.ToLower(buttonText(b)), submitKeywords) {
			return b, true
		}
	}
	return buttons[0], true
}

func isButton(el booking.Element) bool {
	switch el.FieldType() {
	case "button", "submit", "image":
		return true
	}
	return false
}

func buttonText(el booking.Element) string {
	if t := strings.TrimSpace(el.Text); t != "" {
		return t
	}
	return strings.TrimSpace(el.Value)
}
