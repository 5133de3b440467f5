package driver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

var (
	rangePattern  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	numberPattern = regexp.MustCompile(`\d+`)
)

// matchOption picks the option of a select that represents value, trying
// strategies from strictest to loosest. The last bool reports a match.
func matchOption(field, value string, options []booking.Option) (booking.Option, bool) {
	want := strings.ToLower(strings.TrimSpace(value))
	if want == "" {
		return booking.Option{}, false
	}

	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt.Text)) == want {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt.Value)) == want {
			return opt, true
		}
	}

	if opt, ok := matchLoose(field, want, options); ok {
		return opt, true
	}

	n, err := strconv.Atoi(want)
	if err != nil {
		return booking.Option{}, false
	}
	if opt, ok := matchRange(n, options); ok {
		return opt, true
	}
	return matchClosestAbove(n, options)
}

func matchLoose(field, want string, options []booking.Option) (booking.Option, bool) {
	isTime := field == booking.FieldStartTime || field == booking.FieldEndTime
	if !isTime {
		token := regexp.MustCompile(`(^|\D)` + regexp.QuoteMeta(want) + `(\D|$)`)
		for _, opt := range options {
			if token.MatchString(strings.ToLower(opt.Text)) {
				return opt, true
			}
		}
		return booking.Option{}, false
	}

	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Text), want) {
			return opt, true
		}
	}

	twelve := compactClock(timeutil.To12Hour(want))
	for _, opt := range options {
		if compactClock(opt.Text) == twelve || compactClock(opt.Value) == twelve {
			return opt, true
		}
	}

	hour, _, ok := strings.Cut(want, ":")
	if !ok {
		return booking.Option{}, false
	}
	for _, opt := range options {
		for _, s := range []string{opt.Text, opt.Value} {
			s = strings.TrimSpace(s)
			if strings.HasPrefix(s, hour+":") || s == hour {
				return opt, true
			}
		}
	}
	return booking.Option{}, false
}

// compactClock folds "02:00 p.m." and "2:00PM" onto "2:00pm"
func compactClock(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "", ".", "").Replace(s)
	return strings.TrimPrefix(s, "0")
}

func matchRange(n int, options []booking.Option) (booking.Option, bool) {
	for _, opt := range options {
		m := rangePattern.FindStringSubmatch(opt.Text)
		if m == nil {
			continue
		}
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo <= n && n <= hi {
			return opt, true
		}
	}
	return booking.Option{}, false
}

func matchClosestAbove(n int, options []booking.Option) (booking.Option, bool) {
	best, bestDiff := -1, 0
	for i, opt := range options {
		m := numberPattern.FindString(opt.Text)
		if m == "" {
			continue
		}
		v, err := strconv.Atoi(m)
		if err != nil || v < n {
			continue
		}
		if best < 0 || v-n < bestDiff {
			best, bestDiff = i, v-n
		}
	}
	if best < 0 {
		return booking.Option{}, false
	}
	return options[best], true
}
