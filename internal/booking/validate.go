package booking

import (
	"fmt"
	"time"
)

// Validate checks that criteria carry the fields a portal submission needs in
// canonical form. It returns one message per problem.
func (c Criteria) Validate() []string {
	var errs []string

	required := []struct {
		name  string
		value string
	}{
		{FieldDate, c.Date},
		{FieldStartTime, c.StartTime},
		{FieldEndTime, c.EndTime},
	}
	for _, f := range required {
		if f.value == "" {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", f.name))
		}
	}

	if c.Date != "" {
		if _, err := time.Parse("2006-01-02", c.Date); err != nil {
			errs = append(errs, "Invalid date format. Use YYYY-MM-DD")
		}
	}

	for _, v := range []string{c.StartTime, c.EndTime} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil {
			errs = append(errs, "Invalid time format. Use HH:MM")
			break
		}
	}

	return errs
}
