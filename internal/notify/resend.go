package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// ResendNotifier sends email reports via Resend API
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
}

// NewResendNotifier creates a new Resend email notifier
func NewResendNotifier(apiKey, from string) *ResendNotifier {
	if apiKey == "" {
		return nil
	}
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
	}
}

// IsConfigured returns true if the notifier has server-side config
func (r *ResendNotifier) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != ""
}

// Send emails the outcome of a run to the specified recipient
func (r *ResendNotifier) Send(ctx context.Context, report Report, recipient string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient specified")
	}

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{recipient},
		Subject: Subject(report),
		Html:    formatEmailHTML(report, time.Now()),
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	log.Info().Str("run_id", report.RunID).Str("recipient", recipient).Msg("outcome email sent")
	return nil
}

// Name returns the notifier name
func (r *ResendNotifier) Name() string {
	return "resend"
}

// Subject is the email subject line for a report
func Subject(report Report) string {
	when := strings.TrimSpace(report.Criteria.Date + " " + timeutil.To12Hour(report.Criteria.StartTime))

	switch report.Outcome.Kind {
	case booking.OutcomeSuccess:
		if c := report.Outcome.Confirmation; c != nil && c.Number != "" {
			return fmt.Sprintf("Room booked for %s (confirmation %s)", when, c.Number)
		}
		return fmt.Sprintf("Room booked for %s", when)
	case booking.OutcomeSearchResults:
		return fmt.Sprintf("%d rooms available for %s", len(report.Outcome.Rooms), when)
	case booking.OutcomeError:
		return fmt.Sprintf("Room booking failed for %s", when)
	default:
		return fmt.Sprintf("Room booking needs review for %s", when)
	}
}

func formatEmailHTML(report Report, sentAt time.Time) string {
	badge, color := "Needs Review", "#6c757d"
	switch report.Outcome.Kind {
	case booking.OutcomeSuccess:
		badge, color = "Booked", "#28a745"
	case booking.OutcomeSearchResults:
		badge, color = "Rooms Found", "#007bff"
	case booking.OutcomeError:
		badge, color = "Failed", "#dc3545"
	}

	c := report.Criteria
	var rows strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&rows, `<p style="margin: 8px 0;"><strong>%s:</strong> %s</p>`+"\n", label, html.EscapeString(value))
	}
	row("Date", c.Date)
	row("Time", c.StartTime+" - "+c.EndTime)
	row("Attendees", fmt.Sprintf("%d", c.Capacity))
	row("Location", c.Location)
	row("Purpose", c.Purpose)
	if conf := report.Outcome.Confirmation; conf != nil {
		row("Confirmation", conf.Number)
	}

	var body strings.Builder
	if report.Outcome.Message != "" {
		fmt.Fprintf(&body, `<p style="margin: 16px 0;">%s</p>`, html.EscapeString(report.Outcome.Message))
	}
	if len(report.Outcome.Rooms) > 0 {
		body.WriteString(`<ul style="padding-left: 20px;">`)
		for _, room := range report.Outcome.Rooms {
			fmt.Fprintf(&body, `<li>%s</li>`, html.EscapeString(room.Name))
		}
		body.WriteString(`</ul>`)
	}
	if report.Outcome.Ambiguous {
		body.WriteString(`<p style="margin: 16px 0; color: #b8860b;">The result page was ambiguous. Please double-check in the portal.</p>`)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
  <div style="background-color: white; border-radius: 8px; padding: 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <div style="margin-bottom: 16px;">
      <span style="background-color: %s; color: white; padding: 4px 12px; border-radius: 4px; font-size: 12px; font-weight: 600;">%s</span>
    </div>

    <h2 style="margin: 0 0 16px 0; color: #333;">%s</h2>

    <div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0; border-left: 4px solid #007bff;">
      %s
    </div>

    %s

    <hr style="margin-top: 32px; border: none; border-top: 1px solid #eee;">
    <p style="color: #999; font-size: 12px; margin-top: 16px;">
      Room Booking Agent<br>
      <span style="color: #ccc;">Run %s, sent at %s</span>
    </p>
  </div>
</body>
</html>`,
		color,
		badge,
		html.EscapeString(Subject(report)),
		rows.String(),
		body.String(),
		html.EscapeString(report.RunID),
		sentAt.Format("Jan 2, 2006 3:04 PM"),
	)
}
