package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/cache"
)

// NoneChoice is the sentinel the model returns when no option fits
const NoneChoice = "NONE"

// ChooseOption asks the model which of the literal options best matches value
// for the given form field. The reply is validated with ValidateChoice, so the
// returned string is always one of options when ok is true.
func (c *Client) ChooseOption(ctx context.Context, field, value string, options []string) (string, bool, error) {
	if len(options) == 0 {
		return "", false, nil
	}
	if !c.IsConfigured() {
		return "", false, apperr.NewServiceUnavailable("OpenAI API key not configured", nil)
	}

	userPrompt := buildChoicePrompt(field, value, options)
	key := cache.Key("choose", c.model, userPrompt)

	raw, hit := c.cache.Get(ctx, key)
	if !hit {
		var err error
		raw, err = c.complete(ctx, ChooseOptionSystemPrompt, userPrompt)
		if err != nil {
			return "", false, err
		}
	}

	choice, ok := ValidateChoice(raw, options)
	c.logger.Debug().
		Str("field", field).
		Str("value", value).
		Str("raw", raw).
		Str("choice", choice).
		Bool("matched", ok).
		Msg("option chooser answered")

	if !hit {
		c.cache.Set(ctx, key, raw)
	}
	return choice, ok, nil
}

func buildChoicePrompt(field, value string, options []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form field: %s\n", field)
	fmt.Fprintf(&b, "Desired value: %s\n", value)
	b.WriteString("Options:\n")
	for _, opt := range options {
		fmt.Fprintf(&b, "- %s\n", opt)
	}
	b.WriteString("\nAnswer with one option from the list, or NONE.")
	return b.String()
}

// ValidateChoice maps a raw model answer onto one of options. An exact match
// (ignoring case and surrounding quotes) wins; NONE means no match; otherwise
// the longest option contained in the answer, or the first option containing
// the answer, is accepted. Anything else is rejected.
func ValidateChoice(raw string, options []string) (string, bool) {
	answer := strings.TrimSpace(raw)
	answer = strings.Trim(answer, "\"'`")
	answer = strings.TrimSpace(strings.TrimSuffix(answer, "."))
	if answer == "" || strings.EqualFold(answer, NoneChoice) {
		return "", false
	}

	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return opt, true
		}
	}

	lowerAnswer := strings.ToLower(answer)

	best := -1
	for i, opt := range options {
		o := strings.ToLower(strings.TrimSpace(opt))
		if o == "" || !strings.Contains(lowerAnswer, o) {
			continue
		}
		if best < 0 || len(o) > len(strings.TrimSpace(options[best])) {
			best = i
		}
	}
	if best >= 0 {
		return options[best], true
	}

	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt), lowerAnswer) {
			return opt, true
		}
	}
	return "", false
}
