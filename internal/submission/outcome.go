package submission

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

// Selectors scraped from result pages
const (
	ConfirmationTextSelector = "span, div, p, td, strong, b, li, h1, h2, h3"
	BookingInfoSelector      = "[class*='booking'], [class*='confirmation']"
	RoomSelector             = "div[class*='room'], tr[class*='room'], div[class*='result'], table.results tr"
	BookControlSelector      = "button, a"

	maxRooms        = 10
	maxBookButtons  = 5
	maxBookingInfo  = 5
	maxQueryResults = 200
)

var (
	confirmationLabels = []string{"Confirmation", "Reference", "Number"}
	confirmationCode   = regexp.MustCompile(`(?i)(?:confirmation|reference)(?:\s*(?:number|no\.?|#))?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`)
	// either "Capacity: 12" or "12 people", never across a line break
	capacityPattern = regexp.MustCompile(`(?i)capacity[: \t]*(\d+)|(\d+)[ \t]*(?:people|persons|seats)`)
)

// Classifier reads the page reached after a submission
type Classifier struct {
	logger zerolog.Logger
}

func NewClassifier() *Classifier {
	return &Classifier{logger: log.With().Str("component", "classifier").Logger()}
}

// WithLogger returns a copy logging through logger
func (c *Classifier) WithLogger(logger zerolog.Logger) *Classifier {
	cp := *c
	cp.logger = logger.With().Str("component", "classifier").Logger()
	return &cp
}

// Outcome classifies the current page and scrapes what its kind carries
func (c *Classifier) Outcome(ctx context.Context, page browser.Page) (booking.Outcome, error) {
	text, err := page.Text(ctx)
	if err != nil {
		return booking.Outcome{Kind: booking.OutcomeError, Message: fmt.Sprintf("Error processing response: %v", err)},
			fmt.Errorf("failed to read result page: %w", err)
	}

	outcome := booking.Outcome{Kind: Classify(text), URL: page.URL()}
	c.logger.Info().Str("kind", string(outcome.Kind)).Str("url", outcome.URL).Msg("Classified result page")

	switch outcome.Kind {
	case booking.OutcomeSuccess:
		if IsAmbiguous(text) {
			ambiguity := apperr.NewMisclassification("The page reads as a success but also mentions an error")
			outcome.Ambiguous = true
			outcome.Message = ambiguity.Message
			c.logger.Warn().Err(ambiguity).Str("url", outcome.URL).Msg("Result page matched both success and error wording")
		}
		outcome.Confirmation = c.confirmation(ctx, page, text)
	case booking.OutcomeSearchResults:
		outcome.Rooms = c.rooms(ctx, page)
	case booking.OutcomeError:
		outcome.Message = "Booking or search encountered an error"
	default:
		outcome.Message = "Could not determine response type"
	}
	return outcome, nil
}

func (c *Classifier) confirmation(ctx context.Context, page browser.Page, pageText string) *booking.Confirmation {
	conf := &booking.Confirmation{}

	frags, err := page.Query(ctx, ConfirmationTextSelector, maxQueryResults)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Confirmation text query failed")
	}
	var label string
	for _, want := range confirmationLabels {
		for _, f := range frags {
			if strings.Contains(f.Text, want) {
				label = strings.TrimSpace(f.Text)
				break
			}
		}
		if label != "" {
			break
		}
	}

	for _, source := range []string{label, pageText} {
		if m := confirmationCode.FindStringSubmatch(source); m != nil {
			conf.Number = m[1]
			break
		}
	}
	if label != "" {
		conf.Details = append(conf.Details, label)
	}

	info, err := page.Query(ctx, BookingInfoSelector, maxBookingInfo)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Booking info query failed")
	}
	for _, f := range info {
		if t := strings.TrimSpace(f.Text); t != "" && t != label {
			conf.Details = append(conf.Details, t)
		}
	}
	return conf
}

func (c *Classifier) rooms(ctx context.Context, page browser.Page) []booking.Room {
	frags, err := page.Query(ctx, RoomSelector, maxRooms)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Room query failed")
	}

	var rooms []booking.Room
	for _, f := range frags {
		room, ok := parseRoom(f)
		if !ok {
			continue
		}
		room.ID = strconv.Itoa(len(rooms) + 1)
		room.BookSelector = c.bookControl(ctx, page, f.Selector)
		rooms = append(rooms, room)
	}
	if len(rooms) > 0 {
		return rooms
	}

	for i, sel := range c.bookControls(ctx, page, BookControlSelector, maxBookButtons) {
		rooms = append(rooms, booking.Room{
			ID:           strconv.Itoa(i + 1),
			Name:         fmt.Sprintf("Room Option %d", i+1),
			BookSelector: sel,
		})
	}
	return rooms
}

func parseRoom(f browser.Fragment) (booking.Room, bool) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return booking.Room{}, false
	}
	name, _, _ := strings.Cut(text, "\n")
	room := booking.Room{Name: strings.TrimSpace(name), Details: text}
	room.Capacity = parseCapacity(text)
	return room, room.Name != ""
}

func parseCapacity(text string) int {
	m := capacityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, _ := strconv.Atoi(digits)
	return n
}

func (c *Classifier) bookControl(ctx context.Context, page browser.Page, rowSelector string) string {
	if rowSelector == "" {
		return ""
	}
	sel := fmt.Sprintf("%s button, %s a", rowSelector, rowSelector)
	if controls := c.bookControls(ctx, page, sel, 1); len(controls) > 0 {
		return controls[0]
	}
	return ""
}

func (c *Classifier) bookControls(ctx context.Context, page browser.Page, selector string, limit int) []string {
	frags, err := page.Query(ctx, selector, maxQueryResults)
	if err != nil {
		c.logger.Debug().Err(err).Str("selector", selector).Msg("Book control query failed")
		return nil
	}
	var out []string
	for _, f := range frags {
		if strings.Contains(f.Text, "Book") {
			out = append(out, f.Selector)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
