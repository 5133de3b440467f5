package mapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
)

// Resolver finds a control for a requirement the scoring pass left unmapped.
// candidates are the controls nobody claimed.
type Resolver interface {
	Resolve(ctx context.Context, page browser.Page, req Requirement, candidates []booking.Element) (booking.Element, bool, error)
}

// FallbackResolver tries the requirement's broader CSS selectors in order
type FallbackResolver struct{}

func (FallbackResolver) Resolve(ctx context.Context, page browser.Page, req Requirement, candidates []booking.Element) (booking.Element, bool, error) {
	for _, selector := range req.Fallbacks {
		frags, err := page.Query(ctx, selector, 1)
		if err != nil {
			return booking.Element{}, false, fmt.Errorf("query %s: %w", selector, err)
		}
		if len(frags) == 0 {
			continue
		}
		frag := frags[0]
		for _, c := range candidates {
			if c.Selector == frag.Selector {
				return c, true, nil
			}
		}
		// matched something the inventory filtered out or already claimed
	}
	return booking.Element{}, false, nil
}

// GateResolver asks a human to pick from the unclaimed controls
type GateResolver struct {
	Gate  checkpoint.Gate
	RunID string
}

func (g GateResolver) Resolve(ctx context.Context, page browser.Page, req Requirement, candidates []booking.Element) (booking.Element, bool, error) {
	if len(candidates) == 0 {
		return booking.Element{}, false, nil
	}

	choices := make([]string, len(candidates))
	for i, c := range candidates {
		choices[i] = c.Describe()
	}

	answer, err := g.Gate.Wait(ctx, checkpoint.Prompt{
		RunID:   g.RunID,
		Kind:    checkpoint.KindChooseField,
		Message: fmt.Sprintf("Which control on %s holds the %s?", page.URL(), req.Name),
		Choices: choices,
	})
	if err != nil {
		return booking.Element{}, false, err
	}

	idx, err := checkpoint.ChoiceIndex(answer, choices)
	if errors.Is(err, checkpoint.ErrSkipped) {
		return booking.Element{}, false, nil
	}
	if err != nil {
		return booking.Element{}, false, err
	}
	return candidates[idx], true, nil
}
