package checkpoint

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console answers prompts on a terminal. One goroutine reads the input for
// the life of the Console, so a cancelled Wait leaves the next line to the
// next Wait.
type Console struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer

	start sync.Once
	lines chan consoleLine
}

type consoleLine struct {
	text string
	err  error
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{reader: bufio.NewReader(in), out: out, lines: make(chan consoleLine)}
}

func (c *Console) readLines() {
	defer close(c.lines)
	for {
		text, err := c.reader.ReadString('\n')
		c.lines <- consoleLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// Wait prints the prompt and reads one line. A plain Enter answers "".
func (c *Console) Wait(ctx context.Context, prompt Prompt) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s\n", prompt.Message)
	for i, choice := range prompt.Choices {
		fmt.Fprintf(c.out, "  %d. %s\n", i+1, choice)
	}
	switch {
	case len(prompt.Choices) > 0:
		fmt.Fprint(c.out, "Enter a number (or 'skip'): ")
	case prompt.Kind == KindConfirm:
		fmt.Fprint(c.out, "> ")
	default:
		fmt.Fprint(c.out, "Press Enter to continue... ")
	}

	c.start.Do(func() { go c.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", fmt.Errorf("failed to read answer: %w", io.EOF)
		}
		if l.err != nil && !(l.err == io.EOF && l.text != "") {
			return "", fmt.Errorf("failed to read answer: %w", l.err)
		}
		return strings.TrimSpace(l.text), nil
	}
}
