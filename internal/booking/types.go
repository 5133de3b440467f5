package booking

import (
	"fmt"
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

// Logical requirement names a page element can be mapped to
const (
	FieldDate      = "date"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldDuration  = "duration"
	FieldCapacity  = "capacity"
	FieldLocation  = "location"
	FieldPurpose   = "purpose"
)

// Fields lists every requirement in mapping priority order
var Fields = []string{FieldDate, FieldStartTime, FieldEndTime, FieldDuration, FieldCapacity, FieldLocation, FieldPurpose}

// Defaults applied by the normalizer
const (
	DefaultStartTime = "10:00"
	DefaultEndTime   = "11:00"
	DefaultCapacity  = 8
	DefaultDuration  = 60
)

// ExtractedDetails are the loosely formatted fields the model pulled out of a request
type ExtractedDetails struct {
	Date      Text `json:"date"`
	StartTime Text `json:"start_time"`
	Duration  Text `json:"duration"`
	Capacity  any  `json:"capacity"`
	Location  Text `json:"location"`
	Equipment any  `json:"equipment"`
	Purpose   Text `json:"purpose"`
}

// Extraction is the full extractor result. Message, Status and Note are only
// set when the extraction backend is not configured.
type Extraction struct {
	ExtractedDetails *ExtractedDetails `json:"extracted_details,omitempty"`
	MissingInfo      []string          `json:"missing_info,omitempty"`
	Suggestions      Text              `json:"suggestions,omitzero"`
	NextSteps        Text              `json:"next_steps,omitzero"`

	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Details returns the extracted details, never nil
func (e *Extraction) Details() ExtractedDetails {
	if e == nil || e.ExtractedDetails == nil {
		return ExtractedDetails{}
	}
	return *e.ExtractedDetails
}

// Criteria are the canonical booking fields. Every field holds either a
// canonical value or its documented default.
type Criteria struct {
	Date      string   `json:"date"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Capacity  int      `json:"capacity"`
	Location  string   `json:"location,omitempty"`
	Equipment []string `json:"equipment"`
	Purpose   string   `json:"purpose,omitempty"`
}

// DurationMinutes is the span between start and end, wrapping past midnight
func (c Criteria) DurationMinutes() int {
	start, err := timeutil.ParseClock(c.StartTime)
	if err != nil {
		return DefaultDuration
	}
	end, err := timeutil.ParseClock(c.EndTime)
	if err != nil {
		return DefaultDuration
	}
	d := end - start
	if d <= 0 {
		d += 24 * 60
	}
	return d
}

// Value returns the string written into a form control for a requirement
func (c Criteria) Value(field string) string {
	switch field {
	case FieldDate:
		return c.Date
	case FieldStartTime:
		return c.StartTime
	case FieldEndTime:
		return c.EndTime
	case FieldDuration:
		return fmt.Sprintf("%d", c.DurationMinutes())
	case FieldCapacity:
		return fmt.Sprintf("%d", c.Capacity)
	case FieldLocation:
		return c.Location
	case FieldPurpose:
		return c.Purpose
	}
	return ""
}

// Option is one entry of a select element
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Element describes one interactive DOM node seen during a single inspection
type Element struct {
	Index       int      `json:"index"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Class       string   `json:"class"`
	Placeholder string   `json:"placeholder"`
	Label       string   `json:"label"`
	NearbyText  string   `json:"nearby_text"`
	Text        string   `json:"text"`
	Value       string   `json:"value"`
	Selector    string   `json:"selector"`
	Options     []Option `json:"options,omitempty"`
	Visible     bool     `json:"visible"`
	Required    bool     `json:"required"`
}

// FieldType folds tag and type attribute into one kind: select, textarea,
// button, or the input's type ("text" when absent).
func (e Element) FieldType() string {
	switch strings.ToLower(e.Tag) {
	case "select":
		return "select"
	case "textarea":
		return "textarea"
	case "button":
		return "button"
	}
	t := strings.ToLower(e.Type)
	if t == "" {
		return "text"
	}
	return t
}

// CombinedText joins every attribute a keyword may appear in, lower-cased
func (e Element) CombinedText() string {
	parts := make([]string, 0, 6)
	for _, s := range []string{e.Name, e.ID, e.Placeholder, e.Label, e.Class, e.NearbyText} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// OptionText joins the visible option labels, lower-cased
func (e Element) OptionText() string {
	texts := make([]string, len(e.Options))
	for i, o := range e.Options {
		texts[i] = o.Text
	}
	return strings.ToLower(strings.Join(texts, " "))
}

// Describe is a short human-readable summary used in prompts and logs
func (e Element) Describe() string {
	var b strings.Builder
	b.WriteString(e.FieldType())
	if e.Name != "" {
		fmt.Fprintf(&b, " name=%q", e.Name)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%q", e.ID)
	}
	if e.Label != "" {
		fmt.Fprintf(&b, " label=%q", e.Label)
	}
	if e.Placeholder != "" {
		fmt.Fprintf(&b, " placeholder=%q", e.Placeholder)
	}
	return b.String()
}

// Match is a mapped element with its confidence
type Match struct {
	Element Element `json:"element"`
	Score   float64 `json:"score"`
}

// FieldMapping associates requirement names with at most one element each
type FieldMapping map[string]Match

// OutcomeKind tags a classified result page
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "booking_success"
	OutcomeSearchResults OutcomeKind = "search_results"
	OutcomeError         OutcomeKind = "error"
	OutcomeUnknown       OutcomeKind = "unknown"
)

// Confirmation is the detail scraped from a success page
type Confirmation struct {
	Number  string   `json:"number,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Room is one room-like fragment of a search results page
type Room struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity,omitempty"`
	Details      string `json:"details,omitempty"`
	BookSelector string `json:"book_selector,omitempty"`
}

// Outcome is the classified result of one submission attempt. Ambiguous is
// set when the page also matched a lower-priority category.
type Outcome struct {
	Kind         OutcomeKind   `json:"kind"`
	Confirmation *Confirmation `json:"confirmation,omitempty"`
	Rooms        []Room        `json:"rooms,omitempty"`
	Message      string        `json:"message,omitempty"`
	Ambiguous    bool          `json:"ambiguous,omitempty"`
	URL          string        `json:"url,omitempty"`
}
