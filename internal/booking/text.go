package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Text is a nullable string that tolerates the shapes language models
// actually return: strings, numbers, booleans, string lists and null.
type Text struct {
	Value string
	Valid bool
}

// NewText returns a valid Text
func NewText(s string) Text {
	return Text{Value: s, Valid: true}
}

// String returns the value, or "" when null
func (t Text) String() string {
	if !t.Valid {
		return ""
	}
	return t.Value
}

// IsZero lets omitempty drop null and empty values
func (t Text) IsZero() bool {
	return !t.Valid || t.Value == ""
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Text{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		*t = NewText(v)
	case float64, bool:
		*t = NewText(fmt.Sprint(v))
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		*t = NewText(strings.Join(parts, ", "))
	default:
		*t = NewText(string(data))
	}
	return nil
}
