// Package driver writes normalized criteria into the controls chosen by the
// mapper. Writes are not transactional: a failed field is logged, counted and
// skipped.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

// DateFormats are tried in order on text date widgets until one is kept
var DateFormats = []string{"2006-01-02", "01/02/2006", "01-02-2006"}

// OptionChooser picks a literal option for a value no matching rule found.
// Implementations must only return one of options when ok is true.
type OptionChooser interface {
	ChooseOption(ctx context.Context, field, value string, options []string) (string, bool, error)
}

// Failure records one field that could not be written
type Failure struct {
	Field    string `json:"field"`
	Selector string `json:"selector"`
	Reason   string `json:"reason"`
}

// Report summarizes one Fill call
type Report struct {
	Attempted int       `json:"attempted"`
	Filled    int       `json:"filled"`
	Fields    []string  `json:"fields"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Success reports whether at least one field was written
func (r Report) Success() bool {
	return r.Filled >= 1
}

type Driver struct {
	chooser OptionChooser
	logger  zerolog.Logger
}

// New creates a driver. chooser may be nil.
func New(chooser OptionChooser) *Driver {
	return &Driver{
		chooser: chooser,
		logger:  log.With().Str("component", "driver").Logger(),
	}
}

// WithLogger returns a copy logging through logger
func (d *Driver) WithLogger(logger zerolog.Logger) *Driver {
	c := *d
	c.logger = logger.With().Str("component", "driver").Logger()
	return &c
}

// Fill writes every mapped field that has a value, in priority order
func (d *Driver) Fill(ctx context.Context, page browser.Page, mapping booking.FieldMapping, criteria booking.Criteria) Report {
	var report Report

	for _, field := range booking.Fields {
		match, ok := mapping[field]
		if !ok {
			continue
		}
		value := criteria.Value(field)
		if value == "" {
			continue
		}

		report.Attempted++
		el := match.Element
		written, err := d.fillOne(ctx, page, field, value, el)
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("field", field).
				Str("selector", el.Selector).
				Msg("Failed to fill field")
			report.Failures = append(report.Failures, Failure{Field: field, Selector: el.Selector, Reason: err.Error()})
			continue
		}

		if err := page.Dispatch(ctx, el.Selector, "input", "change"); err != nil {
			d.logger.Debug().Err(err).Str("selector", el.Selector).Msg("Failed to dispatch change events")
		}

		report.Filled++
		report.Fields = append(report.Fields, field)
		d.logger.Info().
			Str("field", field).
			Str("selector", el.Selector).
			Str("value", written).
			Msg("Filled field")
	}

	return report
}

func (d *Driver) fillOne(ctx context.Context, page browser.Page, field, value string, el booking.Element) (string, error) {
	switch fieldType := el.FieldType(); {
	case fieldType == "select":
		return d.selectOption(ctx, page, field, value, el)
	case field == booking.FieldDate && fieldType != "date":
		return fillWithFormats(ctx, page, el.Selector, dateVariants(value))
	case (field == booking.FieldStartTime || field == booking.FieldEndTime) && fieldType != "time":
		return fillWithFormats(ctx, page, el.Selector, []string{value, timeutil.To12Hour(value)})
	default:
		if err := page.Fill(ctx, el.Selector, value); err != nil {
			return "", err
		}
		return value, nil
	}
}

func (d *Driver) selectOption(ctx context.Context, page browser.Page, field, value string, el booking.Element) (string, error) {
	opt, ok := matchOption(field, value, el.Options)
	if !ok {
		opt, ok = d.choose(ctx, field, value, el.Options)
	}
	if !ok {
		return "", fmt.Errorf("no option of %d matches %q", len(el.Options), value)
	}
	if err := page.SelectOption(ctx, el.Selector, opt.Value); err != nil {
		return "", err
	}
	return opt.Text, nil
}

func (d *Driver) choose(ctx context.Context, field, value string, options []booking.Option) (booking.Option, bool) {
	if d.chooser == nil || len(options) == 0 {
		return booking.Option{}, false
	}

	texts := make([]string, len(options))
	for i, o := range options {
		texts[i] = o.Text
	}
	choice, ok, err := d.chooser.ChooseOption(ctx, field, value, texts)
	if err != nil {
		d.logger.Warn().Err(err).Str("field", field).Msg("Option chooser failed")
		return booking.Option{}, false
	}
	if !ok {
		return booking.Option{}, false
	}
	for _, o := range options {
		if o.Text == choice {
			return o, true
		}
	}
	d.logger.Warn().Str("field", field).Str("choice", choice).Msg("Option chooser returned an unknown option")
	return booking.Option{}, false
}

// fillWithFormats writes each candidate until the widget keeps a value
func fillWithFormats(ctx context.Context, page browser.Page, selector string, candidates []string) (string, error) {
	var lastErr error
	for _, candidate := range candidates {
		if err := page.Fill(ctx, selector, candidate); err != nil {
			lastErr = err
			continue
		}
		got, err := page.InputValue(ctx, selector)
		if err != nil {
			lastErr = err
			continue
		}
		if got != "" {
			return candidate, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("widget rejected all %d formats", len(candidates))
}

func dateVariants(iso string) []string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return []string{iso}
	}
	out := make([]string, len(DateFormats))
	for i, layout := range DateFormats {
		out[i] = d.Format(layout)
	}
	return out
}
