package testutil

import (
	"fmt"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// ElementBuilder builds page elements for inventories
type ElementBuilder struct {
	el booking.Element
}

// NewInput creates a visible input builder of the given type
func NewInput(inputType string) *ElementBuilder {
	return &ElementBuilder{el: booking.Element{Tag: "input", Type: inputType, Visible: true}}
}

// NewSelect creates a visible select builder whose option values equal their text
func NewSelect(options ...string) *ElementBuilder {
	opts := make([]booking.Option, len(options))
	for i, o := range options {
		opts[i] = booking.Option{Text: o, Value: o}
	}
	return &ElementBuilder{el: booking.Element{Tag: "select", Type: "select", Options: opts, Visible: true}}
}

// NewTextarea creates a visible textarea builder
func NewTextarea() *ElementBuilder {
	return &ElementBuilder{el: booking.Element{Tag: "textarea", Visible: true}}
}

// NewButton creates a visible button builder
func NewButton(text string) *ElementBuilder {
	return &ElementBuilder{el: booking.Element{Tag: "button", Type: "button", Text: text, Visible: true}}
}

func (b *ElementBuilder) WithName(name string) *ElementBuilder {
	b.el.Name = name
	return b
}

func (b *ElementBuilder) WithID(id string) *ElementBuilder {
	b.el.ID = id
	return b
}

func (b *ElementBuilder) WithType(t string) *ElementBuilder {
	b.el.Type = t
	return b
}

func (b *ElementBuilder) WithLabel(label string) *ElementBuilder {
	b.el.Label = label
	return b
}

func (b *ElementBuilder) WithClass(class string) *ElementBuilder {
	b.el.Class = class
	return b
}

func (b *ElementBuilder) WithPlaceholder(p string) *ElementBuilder {
	b.el.Placeholder = p
	return b
}

func (b *ElementBuilder) WithNearbyText(text string) *ElementBuilder {
	b.el.NearbyText = text
	return b
}

func (b *ElementBuilder) WithSelector(selector string) *ElementBuilder {
	b.el.Selector = selector
	return b
}

// WithOptions replaces the options, keeping distinct text and values
func (b *ElementBuilder) WithOptions(opts ...booking.Option) *ElementBuilder {
	b.el.Options = opts
	return b
}

func (b *ElementBuilder) Hidden() *ElementBuilder {
	b.el.Visible = false
	return b
}

func (b *ElementBuilder) Required() *ElementBuilder {
	b.el.Required = true
	return b
}

// Build returns the element, deriving a selector when none was set
func (b *ElementBuilder) Build() booking.Element {
	el := b.el
	if el.Selector == "" {
		switch {
		case el.ID != "":
			el.Selector = "#" + el.ID
		case el.Name != "":
			el.Selector = fmt.Sprintf("%s[name=%q]", el.Tag, el.Name)
		default:
			el.Selector = fmt.Sprintf("%s.fixture-%p", el.Tag, b)
		}
	}
	return el
}

// HourlyTimeOptions lists "8:00 AM" through "6:00 PM"
func HourlyTimeOptions() []string {
	var opts []string
	for h := 8; h <= 18; h++ {
		suffix := "AM"
		display := h
		if h >= 12 {
			suffix = "PM"
		}
		if h > 12 {
			display = h - 12
		}
		opts = append(opts, fmt.Sprintf("%d:00 %s", display, suffix))
	}
	return opts
}

// BookingFormElements is the portal search form most tests run against: a
// native date input, start and end time dropdowns, a numeric capacity input
// and a search button.
func BookingFormElements() []booking.Element {
	return []booking.Element{
		NewInput("date").WithID("bookingDate").Build(),
		NewSelect(HourlyTimeOptions()...).WithID("startTime").WithName("start_time").WithLabel("Start Time").Build(),
		NewSelect(HourlyTimeOptions()...).WithID("endTime").WithName("end_time").WithLabel("End Time").Build(),
		NewInput("number").WithID("capacity").WithName("capacity").WithLabel("Attendees").Build(),
		NewButton("Search").WithID("searchBtn").WithType("submit").Build(),
	}
}
