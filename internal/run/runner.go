package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/agent"
	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/driver"
	"github.com/omriShneor/room_booking_agent/internal/history"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/notify"
)

// Launcher opens a fresh browser page for one run
type Launcher func(ctx context.Context) (browser.Page, error)

// Request describes a booking run to perform
type Request struct {
	// RunID is generated when empty
	RunID       string
	Text        string
	Criteria    booking.Criteria
	Credentials navigate.Credentials

	// Interactive allows the run to suspend on checkpoints
	Interactive bool

	// Book asks the run to book a room out of search results. RoomID picks
	// the room; when empty the first bookable room is taken.
	Book   bool
	RoomID string
}

// Result is what a finished run reports
type Result struct {
	RunID    string           `json:"run_id"`
	State    State            `json:"state"`
	Criteria booking.Criteria `json:"criteria"`
	Mapped   []string         `json:"mapped"`
	Unmapped []string         `json:"unmapped,omitempty"`
	Fill     driver.Report    `json:"fill"`
	Outcome  booking.Outcome  `json:"outcome"`
	Room     *booking.Room    `json:"room,omitempty"`
	Booked   bool             `json:"booked"`
}

// Config wires a Runner
type Config struct {
	Agent     *agent.Agent
	Deps      Deps
	Launch    Launcher
	History   *history.Store
	Notifier  *notify.Service
	Listeners []Listener
}

// Runner turns requests into runs, one browser per run
type Runner struct {
	agent     *agent.Agent
	deps      Deps
	launch    Launcher
	history   *history.Store
	notifier  *notify.Service
	listeners []Listener
	logger    zerolog.Logger
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		agent:     cfg.Agent,
		deps:      cfg.Deps,
		launch:    cfg.Launch,
		history:   cfg.History,
		notifier:  cfg.Notifier,
		listeners: cfg.Listeners,
		logger:    log.With().Str("component", "runner").Logger(),
	}
}

// ExtractionEnabled reports whether free-text requests reach a language model
func (r *Runner) ExtractionEnabled() bool {
	return r.agent != nil && r.agent.IsConfigured()
}

// Understand extracts and normalizes the criteria of a free-text request.
// When the extraction backend is off the criteria are all defaults.
func (r *Runner) Understand(ctx context.Context, text string) (*booking.Extraction, booking.Criteria, error) {
	extraction, err := r.agent.ProcessRequest(ctx, text)
	if err != nil {
		return nil, booking.Criteria{}, err
	}
	return extraction, r.agent.Criteria(extraction), nil
}

// Execute performs a run synchronously
func (r *Runner) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := r.check(&req); err != nil {
		return nil, err
	}
	return r.execute(ctx, req)
}

// Start performs a run in the background and returns its id. ctx bounds the
// run, so callers pass a long-lived context rather than a request's.
func (r *Runner) Start(ctx context.Context, req Request) (string, error) {
	if err := r.check(&req); err != nil {
		return "", err
	}
	go func() {
		if _, err := r.execute(ctx, req); err != nil {
			r.logger.Warn().Err(err).Str("run_id", req.RunID).Msg("background run failed")
		}
	}()
	return req.RunID, nil
}

func (r *Runner) check(req *Request) error {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if !req.Credentials.Valid() && !(req.Interactive && r.deps.Gate != nil) {
		return apperr.NewUnauthorized("Authentication credentials required")
	}
	if problems := req.Criteria.Validate(); len(problems) > 0 {
		return apperr.NewValidation(strings.Join(problems, "; "))
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, req Request) (result *Result, err error) {
	sess := &Session{
		RunID:       req.RunID,
		Request:     req.Text,
		Criteria:    req.Criteria,
		Logger:      r.logger.With().Str("run_id", req.RunID).Logger(),
		Interactive: req.Interactive,
	}
	for _, l := range r.listeners {
		l.Started(sess)
	}
	defer func() {
		for _, l := range r.listeners {
			l.Finished(sess, result, err)
		}
	}()

	sess.Logger.Info().
		Str("date", req.Criteria.Date).
		Str("start", req.Criteria.StartTime).
		Str("end", req.Criteria.EndTime).
		Int("capacity", req.Criteria.Capacity).
		Bool("book", req.Book).
		Msg("Starting booking run")

	page, err := r.launch(ctx)
	if err != nil {
		return nil, apperr.NewServiceUnavailable("failed to launch browser", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			sess.Logger.Warn().Err(cerr).Msg("failed to close browser")
		}
	}()
	sess.Page = page

	run := NewRun(sess, r.deps, r.listeners...)
	if err := drive(ctx, run, req); err != nil {
		return nil, err
	}

	result = run.Result()
	r.record(ctx, sess, result)
	return result, nil
}

// drive walks a run through every state up to Classified, booking a room
// from the search results when asked to.
func drive(ctx context.Context, run *Run, req Request) error {
	if err := run.Authenticate(ctx, req.Credentials); err != nil {
		return err
	}
	if err := run.OpenBookingPage(ctx); err != nil {
		return err
	}
	if _, err := run.FillForm(ctx); err != nil {
		return err
	}
	if err := run.Submit(ctx); err != nil {
		return err
	}
	outcome, err := run.Classify(ctx)
	if err != nil {
		return err
	}

	if !req.Book || outcome.Kind != booking.OutcomeSearchResults {
		return nil
	}
	if _, err := run.BookRoom(ctx, req.RoomID); err != nil {
		return err
	}
	_, err = run.Classify(ctx)
	return err
}

func (r *Runner) record(ctx context.Context, sess *Session, result *Result) {
	if r.history != nil {
		if _, err := r.history.Append(result.Criteria, result.Outcome.Kind); err != nil {
			sess.Logger.Warn().Err(err).Msg("failed to append booking history")
		}
	}
	if r.notifier != nil {
		r.notifier.NotifyOutcome(ctx, notify.Report{
			RunID:    sess.RunID,
			Request:  sess.Request,
			Criteria: result.Criteria,
			Outcome:  result.Outcome,
		})
	}
}

// Summary renders a result as a chat-style reply
func Summary(result *Result) string {
	switch result.Outcome.Kind {
	case booking.OutcomeSuccess:
		if c := result.Outcome.Confirmation; c != nil && c.Number != "" {
			return fmt.Sprintf("Your room is booked. Confirmation number: %s.", c.Number)
		}
		return "Your room is booked."
	case booking.OutcomeSearchResults:
		return fmt.Sprintf("Found %d available rooms.", len(result.Outcome.Rooms))
	case booking.OutcomeError:
		return "The booking portal reported an error. Please try different criteria."
	default:
		return "Could not determine the result of the booking. Please check the portal."
	}
}
