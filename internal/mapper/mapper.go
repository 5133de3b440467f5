// Package mapper decides which page control holds which booking field by
// scoring every unclaimed control against each requirement.
package mapper

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/probe"
)

// Threshold is the score a control must exceed to be mapped
const Threshold = 0.5

const (
	keywordWeight = 0.3
	typeWeight    = 0.3
	optionWeight  = 0.2
)

// Score rates how likely el holds the value of req, in [0, 1]
func Score(req Requirement, el booking.Element) float64 {
	fieldType := el.FieldType()
	score := 0.0

	if containsAny(el.CombinedText(), req.Keywords) {
		score += keywordWeight
	}
	if slices.Contains(req.Types, fieldType) {
		score += typeWeight
	}
	score += req.NativeBonus[fieldType]
	if fieldType == "select" && containsAny(el.OptionText(), req.Keywords) {
		score += optionWeight
	}

	return math.Min(score, 1.0)
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Result is the outcome of one mapping pass
type Result struct {
	Mapping booking.FieldMapping
	// Unmapped lists requirements no control scored high enough for
	Unmapped []string
	// Unclaimed lists controls no requirement took
	Unclaimed []booking.Element
}

// Map assigns each requirement, in priority order, the best scoring control
// not already claimed. Ties go to the control seen first.
func Map(elements []booking.Element) Result {
	result := Result{Mapping: make(booking.FieldMapping)}
	claimed := make([]bool, len(elements))

	for _, req := range Requirements {
		best, bestScore := -1, 0.0
		for i, el := range elements {
			if claimed[i] {
				continue
			}
			if s := Score(req, el); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best >= 0 && bestScore > Threshold {
			claimed[best] = true
			result.Mapping[req.Name] = booking.Match{Element: elements[best], Score: bestScore}
			continue
		}
		result.Unmapped = append(result.Unmapped, req.Name)
	}

	for i, el := range elements {
		if !claimed[i] {
			result.Unclaimed = append(result.Unclaimed, el)
		}
	}
	return result
}

// Mapper runs the scoring pass and then asks its resolvers about
// requirements that still have a value but no control.
type Mapper struct {
	resolvers []Resolver
	logger    zerolog.Logger
}

func New(resolvers ...Resolver) *Mapper {
	return &Mapper{
		resolvers: resolvers,
		logger:    log.With().Str("component", "mapper").Logger(),
	}
}

// WithLogger returns a copy logging through logger
func (m *Mapper) WithLogger(logger zerolog.Logger) *Mapper {
	c := *m
	c.logger = logger.With().Str("component", "mapper").Logger()
	return &c
}

func (m *Mapper) Map(ctx context.Context, page browser.Page, inv *probe.Inventory, criteria booking.Criteria) Result {
	result := Map(inv.Fillable())
	for name, match := range result.Mapping {
		m.logger.Debug().
			Str("requirement", name).
			Str("element", match.Element.Describe()).
			Float64("score", match.Score).
			Msg("Mapped requirement")
	}

	var stillUnmapped []string
	for _, name := range result.Unmapped {
		if name == booking.FieldDuration {
			// a mapped end time already fixes the slot length
			if _, ok := result.Mapping[booking.FieldEndTime]; ok {
				continue
			}
		}
		if criteria.Value(name) == "" {
			stillUnmapped = append(stillUnmapped, name)
			continue
		}
		req, _ := Lookup(name)
		match, ok := m.resolve(ctx, page, req, &result)
		if !ok {
			m.logger.Warn().Str("requirement", name).Msg("No control found for requirement")
			stillUnmapped = append(stillUnmapped, name)
			continue
		}
		result.Mapping[name] = match
	}
	result.Unmapped = stillUnmapped
	return result
}

func (m *Mapper) resolve(ctx context.Context, page browser.Page, req Requirement, result *Result) (booking.Match, bool) {
	for _, r := range m.resolvers {
		el, ok, err := r.Resolve(ctx, page, req, result.Unclaimed)
		if err != nil {
			m.logger.Warn().Err(err).Str("requirement", req.Name).Msg("Resolver failed")
			continue
		}
		if !ok {
			continue
		}
		result.Unclaimed = slices.DeleteFunc(result.Unclaimed, func(e booking.Element) bool {
			return e.Selector == el.Selector
		})
		m.logger.Info().
			Str("requirement", req.Name).
			Str("selector", el.Selector).
			Msg("Requirement resolved by fallback")
		return booking.Match{Element: el, Score: Score(req, el)}, true
	}
	return booking.Match{}, false
}
