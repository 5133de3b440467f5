// Package probe inventories the interactive controls of the current page.
// Every call re-walks the live DOM; nothing is cached between pages.
package probe

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

// DefaultMaxOptions caps how many options are kept per select
const DefaultMaxOptions = 10

var (
	dateKeywords = []string{"date", "day", "calendar"}
	timeKeywords = []string{"time", "start", "end", "hour", "from", "until"}

	clockPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}:\d{2}(\s*[ap]\.?m\.?)?|\d{1,2}\s*[ap]\.?m\.?)\s*$`)
)

// Inventory is a snapshot of one page load
type Inventory struct {
	URL   string `json:"url"`
	Title string `json:"title"`

	Inputs    []booking.Element `json:"inputs"`
	Selects   []booking.Element `json:"selects"`
	Textareas []booking.Element `json:"textareas"`
	Buttons   []booking.Element `json:"buttons"`

	DateFields []booking.Element `json:"date_fields"`
	TimeFields []booking.Element `json:"time_fields"`
}

// Fillable returns inputs, selects and textareas in document order
func (inv *Inventory) Fillable() []booking.Element {
	all := make([]booking.Element, 0, len(inv.Inputs)+len(inv.Selects)+len(inv.Textareas))
	all = append(all, inv.Inputs...)
	all = append(all, inv.Selects...)
	all = append(all, inv.Textareas...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all
}

// Empty reports whether the page has nothing to fill
func (inv *Inventory) Empty() bool {
	return len(inv.Inputs) == 0 && len(inv.Selects) == 0 && len(inv.Textareas) == 0
}

// Summary is a one-line count for logs
func (inv *Inventory) Summary() string {
	return fmt.Sprintf("%d inputs, %d selects, %d textareas, %d buttons (%d date, %d time)",
		len(inv.Inputs), len(inv.Selects), len(inv.Textareas), len(inv.Buttons),
		len(inv.DateFields), len(inv.TimeFields))
}

// Prober builds inventories
type Prober struct {
	MaxOptions int
	logger     zerolog.Logger
}

func New() *Prober {
	return &Prober{
		MaxOptions: DefaultMaxOptions,
		logger:     log.With().Str("component", "probe").Logger(),
	}
}

// Inspect snapshots the visible controls of page and categorizes them
func (p *Prober) Inspect(ctx context.Context, page browser.Page) (*Inventory, error) {
	maxOptions := p.MaxOptions
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}

	elements, err := page.Elements(ctx, maxOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate page elements: %w", err)
	}

	inv := &Inventory{URL: page.URL()}
	if title, err := page.Title(ctx); err == nil {
		inv.Title = title
	}

	for _, el := range elements {
		if !el.Visible {
			continue
		}
		if len(el.Options) > maxOptions {
			el.Options = el.Options[:maxOptions]
		}
		switch el.FieldType() {
		case "select":
			inv.Selects = append(inv.Selects, el)
		case "textarea":
			inv.Textareas = append(inv.Textareas, el)
		case "button", "submit", "reset", "image":
			inv.Buttons = append(inv.Buttons, el)
		case "hidden":
		default:
			inv.Inputs = append(inv.Inputs, el)
		}
	}
	categorize(inv)

	p.logger.Debug().
		Str("url", inv.URL).
		Str("title", inv.Title).
		Msg("Page inspected: " + inv.Summary())
	return inv, nil
}

func categorize(inv *Inventory) {
	for _, el := range inv.Inputs {
		switch {
		case el.FieldType() == "date" || el.FieldType() == "datetime-local":
			inv.DateFields = append(inv.DateFields, el)
		case el.FieldType() == "time":
			inv.TimeFields = append(inv.TimeFields, el)
		case hasKeyword(el, dateKeywords):
			inv.DateFields = append(inv.DateFields, el)
		case hasKeyword(el, timeKeywords):
			inv.TimeFields = append(inv.TimeFields, el)
		}
	}

	typedTime := false
	for _, el := range inv.TimeFields {
		if el.FieldType() == "time" {
			typedTime = true
			break
		}
	}

	for _, el := range inv.Selects {
		switch {
		case hasKeyword(el, dateKeywords):
			inv.DateFields = append(inv.DateFields, el)
		case hasKeyword(el, timeKeywords):
			inv.TimeFields = append(inv.TimeFields, el)
		case !typedTime && HasClockOptions(el):
			inv.TimeFields = append(inv.TimeFields, el)
		}
	}
}

// keywords are only looked up in identifying attributes, not nearby text
func hasKeyword(el booking.Element, keywords []string) bool {
	text := strings.ToLower(strings.Join([]string{el.Name, el.ID, el.Class, el.Placeholder}, " "))
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// HasClockOptions reports whether a select lists times of day
func HasClockOptions(el booking.Element) bool {
	matches := 0
	for _, opt := range el.Options {
		if clockPattern.MatchString(opt.Text) {
			matches++
		}
	}
	return matches > 0 && matches*2 >= len(el.Options)
}
