package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
)

// FakePage simulates a browser tab for testing. Actions against selectors
// that match no element fail the way a live page would.
type FakePage struct {
	mu sync.Mutex

	CurrentURL string
	PageTitle  string
	Els        []booking.Element
	LinkList   []browser.Link
	Fragments  map[string][]browser.Fragment
	BodyText   string

	// AcceptFill decides whether a widget keeps a filled value. Nil accepts everything.
	AcceptFill func(selector, value string) bool
	// OnClick runs after a click is recorded, to move the page to its next state
	OnClick func(p *FakePage, selector string) error
	// OnGoto runs after navigation is recorded
	OnGoto func(p *FakePage, url string) error

	values  map[string]string
	events  map[string][]string
	clicks  []string
	visited []string
	closed  bool
}

// NewFakePage creates a fake tab at url showing elements
func NewFakePage(url string, elements ...booking.Element) *FakePage {
	return &FakePage{
		CurrentURL: url,
		Els:        elements,
		Fragments:  make(map[string][]browser.Fragment),
		values:     make(map[string]string),
		events:     make(map[string][]string),
	}
}

func (p *FakePage) find(selector string) (booking.Element, bool) {
	for _, el := range p.Els {
		if el.Selector == selector {
			return el, true
		}
	}
	return booking.Element{}, false
}

// SetPage replaces the page contents, as a navigation would
func (p *FakePage) SetPage(url, title, body string, elements ...booking.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentURL = url
	p.PageTitle = title
	p.BodyText = body
	p.Els = elements
	p.values = make(map[string]string)
}

func (p *FakePage) Goto(ctx context.Context, url string) error {
	p.mu.Lock()
	p.visited = append(p.visited, url)
	p.CurrentURL = url
	hook := p.OnGoto
	p.mu.Unlock()

	if hook != nil {
		return hook(p, url)
	}
	return nil
}

func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *FakePage) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageTitle, nil
}

func (p *FakePage) Elements(ctx context.Context, maxOptions int) ([]booking.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]booking.Element, len(p.Els))
	for i, el := range p.Els {
		el.Index = i
		if len(el.Options) > maxOptions {
			el.Options = append([]booking.Option(nil), el.Options[:maxOptions]...)
		}
		if v, ok := p.values[el.Selector]; ok {
			el.Value = v
		}
		out[i] = el
	}
	return out, nil
}

func (p *FakePage) Links(ctx context.Context) ([]browser.Link, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Link(nil), p.LinkList...), nil
}

func (p *FakePage) Query(ctx context.Context, selector string, limit int) ([]browser.Fragment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frags := p.Fragments[selector]
	if len(frags) > limit {
		frags = frags[:limit]
	}
	return append([]browser.Fragment(nil), frags...), nil
}

func (p *FakePage) Text(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.BodyText, nil
}

func (p *FakePage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.find(selector); !ok {
		return apperr.NewSelectorMiss(fmt.Sprintf("no element matches %s", selector))
	}
	if p.AcceptFill != nil && !p.AcceptFill(selector, value) {
		p.values[selector] = ""
		return nil
	}
	p.values[selector] = value
	return nil
}

func (p *FakePage) InputValue(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.find(selector); !ok {
		return "", apperr.NewSelectorMiss(fmt.Sprintf("no element matches %s", selector))
	}
	return p.values[selector], nil
}

func (p *FakePage) SelectOption(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, ok := p.find(selector)
	if !ok || el.FieldType() != "select" {
		return apperr.NewSelectorMiss(fmt.Sprintf("no select matches %s", selector))
	}
	for _, opt := range el.Options {
		if opt.Value == value {
			p.values[selector] = value
			return nil
		}
	}
	return fmt.Errorf("option %q not found in %s", value, selector)
}

func (p *FakePage) Dispatch(ctx context.Context, selector string, events ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.find(selector); !ok {
		return apperr.NewSelectorMiss(fmt.Sprintf("no element matches %s", selector))
	}
	p.events[selector] = append(p.events[selector], events...)
	return nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	_, found := p.find(selector)
	if !found {
		for _, l := range p.LinkList {
			if l.Selector == selector {
				found = true
				break
			}
		}
	}
	if !found {
		for _, frags := range p.Fragments {
			for _, f := range frags {
				if f.Selector == selector {
					found = true
				}
			}
		}
	}
	if !found {
		p.mu.Unlock()
		return apperr.NewSelectorMiss(fmt.Sprintf("no element matches %s", selector))
	}
	p.clicks = append(p.clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		return hook(p, selector)
	}
	return nil
}

func (p *FakePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.find(selector); ok && el.Visible {
		return nil
	}
	return apperr.NewNavigationTimeout(fmt.Sprintf("waiting for %s", selector), context.DeadlineExceeded)
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Value returns what was last written to selector
func (p *FakePage) Value(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[selector]
}

// Events returns the events dispatched on selector
func (p *FakePage) Events(selector string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events[selector]...)
}

// Clicks returns every clicked selector in order
func (p *FakePage) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Visited returns every URL passed to Goto
func (p *FakePage) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// IsClosed reports whether Close was called
func (p *FakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ browser.Page = (*FakePage)(nil)
