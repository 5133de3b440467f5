// Package navigate moves a fresh browser session from the SharePoint entry
// point into the booking portal, logging in when credentials are available.
package navigate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

var (
	linkKeywords  = []string{"room", "reserv", "book", "meeting", "conference", "momentus"}
	entryKeywords = []string{"launch", "open", "access", "enter"}

	// FallbackPaths are appended to the current URL when no link fits
	FallbackPaths = []string{
		"/reservations",
		"/booking",
		"/rooms",
		"/calendar",
		"/meeting-rooms",
		"/_layouts/15/Booking",
		"/Sites/RoomReservations",
		"/momentus",
	}
)

// InterfaceSelector matches controls that only exist once the portal's
// search form has rendered
const InterfaceSelector = "input[type='date'], select[name*='room'], select[id*='room'], form[class*='booking'], form[class*='reservation']"

// ScoreLink rates how likely a link leads to room reservations. Zero means
// not at all.
func ScoreLink(l browser.Link) int {
	text := strings.ToLower(l.Text + " " + l.Href)
	score := 0
	for _, kw := range linkKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	if score == 0 {
		return 0
	}
	if strings.Contains(text, "room") && (strings.Contains(text, "reserv") || strings.Contains(text, "book")) {
		score += 2
	}
	if strings.Contains(text, "momentus") {
		score += 3
	}
	return score
}

// BestLink returns the highest scoring link, the first one on ties
func BestLink(links []browser.Link) (browser.Link, int, bool) {
	var best browser.Link
	bestScore := 0
	for _, l := range links {
		if s := ScoreLink(l); s > bestScore {
			best, bestScore = l, s
		}
	}
	return best, bestScore, bestScore > 0
}

// InMomentus reports whether url and title belong to the booking portal
func InMomentus(url, title string) bool {
	u, t := strings.ToLower(url), strings.ToLower(title)
	return strings.Contains(u, "momentus") ||
		strings.Contains(t, "momentus") ||
		(strings.Contains(t, "room") && strings.Contains(t, "book")) ||
		(strings.Contains(t, "reservation") && strings.Contains(t, "system"))
}

// Navigator walks from the entry page to the booking form
type Navigator struct {
	// Settle is the fixed wait after each click or navigation
	Settle time.Duration
	// Timeout bounds waiting for the portal interface
	Timeout time.Duration
	logger  zerolog.Logger
}

func New(settle, timeout time.Duration) *Navigator {
	return &Navigator{
		Settle:  settle,
		Timeout: timeout,
		logger:  log.With().Str("component", "navigate").Logger(),
	}
}

// WithLogger returns a copy logging through logger
func (n *Navigator) WithLogger(logger zerolog.Logger) *Navigator {
	c := *n
	c.logger = logger.With().Str("component", "navigate").Logger()
	return &c
}

// ToBookingPage follows the best reservation link from the current page.
// Without one it probes FallbackPaths under the current URL.
func (n *Navigator) ToBookingPage(ctx context.Context, page browser.Page) error {
	title, _ := page.Title(ctx)
	if InMomentus(page.URL(), title) {
		n.logger.Info().Str("url", page.URL()).Msg("Already in booking portal")
		n.waitForInterface(ctx, page)
		return nil
	}

	links, err := page.Links(ctx)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}

	link, score, ok := BestLink(links)
	if ok {
		n.logger.Info().
			Str("text", link.Text).
			Str("href", link.Href).
			Int("score", score).
			Msg("Following room reservation link")
		err := n.follow(ctx, page, link)
		if err == nil {
			return nil
		}
		n.logger.Warn().Err(err).Msg("Reservation link did not lead anywhere")
	}

	n.logger.Warn().Msg("No room reservation link found, trying common URL patterns")
	return n.tryFallbackPaths(ctx, page)
}

func (n *Navigator) follow(ctx context.Context, page browser.Page, link browser.Link) error {
	before := page.URL()
	if err := page.Click(ctx, link.Selector); err != nil {
		return err
	}
	if err := browser.Pause(ctx, n.Settle); err != nil {
		return err
	}

	title, _ := page.Title(ctx)
	if InMomentus(page.URL(), title) {
		n.logger.Info().Str("url", page.URL()).Msg("Navigated to booking portal")
		n.waitForInterface(ctx, page)
		return nil
	}
	if page.URL() == before {
		return apperr.NewNavigationTimeout("click did not result in navigation", nil)
	}

	// an intermediate page; look for a second hop into the portal
	if entry, ok := n.entryPoint(ctx, page); ok {
		n.logger.Info().Str("text", entry.Text).Msg("Following portal entry point")
		if err := page.Click(ctx, entry.Selector); err == nil {
			if err := browser.Pause(ctx, n.Settle); err != nil {
				return err
			}
			n.waitForInterface(ctx, page)
		}
	}
	return nil
}

func (n *Navigator) entryPoint(ctx context.Context, page browser.Page) (browser.Link, bool) {
	links, err := page.Links(ctx)
	if err != nil {
		return browser.Link{}, false
	}
	for _, l := range links {
		text := strings.ToLower(l.Text)
		for _, kw := range entryKeywords {
			if strings.Contains(text, kw) {
				return l, true
			}
		}
	}
	for _, l := range links {
		if strings.Contains(strings.ToLower(l.Href), "momentus") {
			return l, true
		}
	}
	return browser.Link{}, false
}

func (n *Navigator) tryFallbackPaths(ctx context.Context, page browser.Page) error {
	base := page.URL()
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimRight(base, "/")

	for _, path := range FallbackPaths {
		candidate := base + path
		n.logger.Debug().Str("url", candidate).Msg("Trying URL")
		if err := page.Goto(ctx, candidate); err != nil {
			continue
		}
		if err := browser.Pause(ctx, n.Settle); err != nil {
			return err
		}
		title, _ := page.Title(ctx)
		lower := strings.ToLower(title)
		if strings.Contains(lower, "404") || strings.Contains(lower, "error") || strings.Contains(lower, "not found") {
			continue
		}
		n.logger.Info().Str("url", candidate).Str("title", title).Msg("Reached reservation page by URL pattern")
		return nil
	}
	return apperr.NewSelectorMiss("could not find room reservation section")
}

func (n *Navigator) waitForInterface(ctx context.Context, page browser.Page) {
	if err := page.WaitFor(ctx, InterfaceSelector, n.Timeout); err != nil {
		n.logger.Warn().Err(err).Msg("Booking interface may not be fully loaded, continuing")
	}
}
