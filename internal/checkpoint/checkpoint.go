// Package checkpoint suspends a booking run until a human acts: finishing a
// manual login, or choosing a control the mapper could not identify.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Prompt kinds
const (
	KindManualAuth  = "manual_auth"
	KindChooseField = "choose_field"
	KindChooseRoom  = "choose_room"
	KindConfirm     = "confirm"
)

// ErrSkipped is returned when the human declines to answer
var ErrSkipped = errors.New("checkpoint skipped")

// Prompt is what a suspended run is waiting on
type Prompt struct {
	RunID   string   `json:"run_id"`
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Choices []string `json:"choices,omitempty"`
}

// Gate blocks until the prompt is answered or ctx ends. The answer is free
// text; for prompts with choices it is usually a 1-based choice number.
type Gate interface {
	Wait(ctx context.Context, prompt Prompt) (string, error)
}

// ChoiceIndex turns an answer into a 0-based index into choices. Answers may
// be the choice number or the choice text.
func ChoiceIndex(answer string, choices []string) (int, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "skip") {
		return -1, ErrSkipped
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(choices) {
			return -1, fmt.Errorf("choice %d out of range 1-%d", n, len(choices))
		}
		return n - 1, nil
	}
	for i, c := range choices {
		if strings.EqualFold(c, answer) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown choice %q", answer)
}

// Auto answers every prompt immediately with a fixed answer
type Auto struct {
	Answer string
}

func (a Auto) Wait(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.Answer, nil
}
