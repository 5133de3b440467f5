// Package normalize turns loosely formatted extracted fields into canonical
// booking criteria. Every function here is total: unparseable input falls
// back to a documented default instead of failing.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

const isoDate = "2006-01-02"

var (
	dateLayouts = []string{
		"1/2/2006",
		"1-2-2006",
		"January 2, 2006",
		"January 2",
		"Jan 2, 2006",
		"Jan 2",
	}

	timeLayouts = []string{
		"15:04",
		"3:04 PM",
		"3 PM",
		"15",
	}

	clockPattern   = regexp.MustCompile(`(\d{1,2}):?(\d{0,2})\s*(am|pm)?`)
	digitsPattern  = regexp.MustCompile(`\d+`)
	ordinalPattern = regexp.MustCompile(`(\d)(st|nd|rd|th)\b`)
)

// Normalizer converts extracted details into criteria relative to a clock
type Normalizer struct {
	Now    func() time.Time
	Logger zerolog.Logger
}

// New creates a Normalizer using the wall clock in loc
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{
		Now:    func() time.Time { return time.Now().In(loc) },
		Logger: log.With().Str("component", "normalize").Logger(),
	}
}

func (n *Normalizer) today() time.Time {
	return timeutil.DateOnly(n.Now())
}

// Date returns s as YYYY-MM-DD. Dates without a year, or that fall before
// today, roll forward to the next matching date.
func (n *Normalizer) Date(s string) string {
	today := n.today()
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "", "null", "none", "today":
		return today.Format(isoDate)
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(isoDate)
	}

	if t, err := time.Parse(isoDate, s); err == nil {
		return t.Format(isoDate)
	}

	if d, ok := n.weekday(s, today); ok {
		return d.Format(isoDate)
	}

	cleaned := ordinalPattern.ReplaceAllString(s, "$1")
	for _, layout := range dateLayouts {
		parsed, err := time.ParseInLocation(layout, cleaned, today.Location())
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(today.Year(), 0, 0)
		}
		if parsed.Before(today) {
			parsed = time.Date(today.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, today.Location())
			if parsed.Before(today) {
				parsed = parsed.AddDate(1, 0, 0)
			}
		}
		return parsed.Format(isoDate)
	}

	n.Logger.Warn().Str("date", s).Msg("could not parse date, using today")
	return today.Format(isoDate)
}

// weekday resolves "monday" or "next monday" to the next such day after today
func (n *Normalizer) weekday(s string, today time.Time) (time.Time, bool) {
	name := strings.TrimPrefix(strings.ToLower(s), "next ")
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) != name {
			continue
		}
		delta := (int(d) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, delta), true
	}
	return time.Time{}, false
}

// Time returns s as zero-padded 24-hour "HH:MM", or "10:00" when unparseable
func (n *Normalizer) Time(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return booking.DefaultStartTime
	}

	upper := strings.ToUpper(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04")
		}
	}

	m := clockPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		n.Logger.Warn().Str("time", s).Msg("could not parse time, using default")
		return booking.DefaultStartTime
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch {
	case m[3] == "pm" && hour != 12:
		hour += 12
	case m[3] == "am" && hour == 12:
		hour = 0
	}

	if hour > 23 || minute > 59 {
		n.Logger.Warn().Str("time", s).Msg("time out of range, using default")
		return booking.DefaultStartTime
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// EndTime adds a free-text duration to a canonical start time. The first
// number in the text counts minutes, or hours when the text says so; any
// other text means one hour. The result wraps past midnight.
func (n *Normalizer) EndTime(start, duration string) string {
	startMinutes, err := timeutil.ParseClock(start)
	if err != nil {
		return booking.DefaultEndTime
	}
	return timeutil.FormatClock(startMinutes + DurationMinutes(duration))
}

// DurationMinutes parses "90 minutes" or "2 hours" into minutes, defaulting to 60
func DurationMinutes(duration string) int {
	d := strings.ToLower(duration)
	first := digitsPattern.FindString(d)
	if first == "" {
		return booking.DefaultDuration
	}
	value, err := strconv.Atoi(first)
	if err != nil {
		return booking.DefaultDuration
	}

	switch {
	case strings.Contains(d, "minute"):
		return value
	case strings.Contains(d, "hour"), strings.Contains(d, "hr"):
		return value * 60
	case strings.Contains(d, "min"):
		return value
	}
	return booking.DefaultDuration
}

// Capacity extracts a head count. Strings contribute their first run of
// digits, numbers are truncated; anything else yields the default of 8.
func Capacity(v any) int {
	n := 0
	switch c := v.(type) {
	case int:
		n = c
	case int64:
		n = int(c)
	case float64:
		n = int(c)
	case string:
		if first := digitsPattern.FindString(c); first != "" {
			n, _ = strconv.Atoi(first)
		}
	}
	if n <= 0 {
		return booking.DefaultCapacity
	}
	return n
}

// Equipment passes lists through and drops everything else
func Equipment(v any) []string {
	switch e := v.(type) {
	case []string:
		return e
	case []any:
		out := make([]string, 0, len(e))
		for _, item := range e {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

// Criteria normalizes every extracted field. A missing start time yields the
// 10:00-11:00 default slot; a missing duration means one hour.
func (n *Normalizer) Criteria(details booking.ExtractedDetails) booking.Criteria {
	c := booking.Criteria{
		Date:      n.Date(details.Date.String()),
		StartTime: booking.DefaultStartTime,
		EndTime:   booking.DefaultEndTime,
		Capacity:  Capacity(details.Capacity),
		Location:  strings.TrimSpace(details.Location.String()),
		Equipment: Equipment(details.Equipment),
		Purpose:   strings.TrimSpace(details.Purpose.String()),
	}

	if start := details.StartTime.String(); start != "" && !isNullWord(start) {
		c.StartTime = n.Time(start)
		duration := details.Duration.String()
		if duration == "" || isNullWord(duration) {
			duration = "1 hour"
		}
		c.EndTime = n.EndTime(c.StartTime, duration)
	}

	if isNullWord(c.Location) {
		c.Location = ""
	}
	if isNullWord(c.Purpose) {
		c.Purpose = ""
	}
	return c
}

func isNullWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "none", "n/a":
		return true
	}
	return false
}
