// Package browser is the single handle a booking run drives. Page abstracts
// one live tab so the pipeline can run against playwright or a fake.
package browser

import (
	"context"
	"time"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// Link is an anchor visible on the page
type Link struct {
	Text     string `json:"text"`
	Href     string `json:"href"`
	Selector string `json:"selector"`
}

// Fragment is any element matched by a CSS query
type Fragment struct {
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	Class    string `json:"class"`
	Selector string `json:"selector"`
}

// Page is a live browser tab. Selectors are CSS selectors, usually the ones
// reported by Elements, Links or Query during the same page load.
type Page interface {
	Goto(ctx context.Context, url string) error
	URL() string
	Title(ctx context.Context) (string, error)

	// Elements snapshots input, select, textarea and button nodes, visible
	// or not. Select options are capped at maxOptions.
	Elements(ctx context.Context, maxOptions int) ([]booking.Element, error)
	Links(ctx context.Context) ([]Link, error)
	Query(ctx context.Context, selector string, limit int) ([]Fragment, error)
	// Text is the rendered text of the whole page
	Text(ctx context.Context) (string, error)

	Fill(ctx context.Context, selector, value string) error
	InputValue(ctx context.Context, selector string) (string, error)
	// SelectOption selects the option with the given value attribute
	SelectOption(ctx context.Context, selector, value string) error
	Dispatch(ctx context.Context, selector string, events ...string) error
	// Click scrolls the element into view and clicks it. If the click opens
	// a new tab, the page follows it.
	Click(ctx context.Context, selector string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	Close() error
}

// Pause is the fixed settle delay between page transitions. It returns early
// when ctx is cancelled.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
