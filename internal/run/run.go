// Package run drives one booking attempt through its states: getting past
// the portal login, reaching the booking form, filling and submitting it,
// and classifying whatever page comes back.
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/driver"
	"github.com/omriShneor/room_booking_agent/internal/mapper"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/probe"
	"github.com/omriShneor/room_booking_agent/internal/submission"
)

// Deps are the pipeline components shared by every run
type Deps struct {
	Navigator  *navigate.Navigator
	Prober     *probe.Prober
	Driver     *driver.Driver
	Submitter  *submission.Submitter
	Classifier *submission.Classifier

	// Gate is where interactive runs suspend. Nil disables checkpoints.
	Gate checkpoint.Gate

	// BaseURL is the portal login page, EntryURL where manual runs start
	BaseURL  string
	EntryURL string
}

// Run is the state machine of a single booking attempt. It is not safe for
// concurrent use.
type Run struct {
	sess      *Session
	state     State
	listeners []Listener

	navigator  *navigate.Navigator
	prober     *probe.Prober
	mapper     *mapper.Mapper
	driver     *driver.Driver
	submitter  *submission.Submitter
	classifier *submission.Classifier
	gate       checkpoint.Gate
	baseURL    string
	entryURL   string

	authenticated bool
	mapping       mapper.Result
	report        driver.Report
	outcome       booking.Outcome
	room          *booking.Room
}

// NewRun prepares a run in the NotLoggedIn state
func NewRun(sess *Session, deps Deps, listeners ...Listener) *Run {
	r := &Run{
		sess:       sess,
		state:      StateNotLoggedIn,
		listeners:  listeners,
		navigator:  deps.Navigator.WithLogger(sess.Logger),
		prober:     deps.Prober,
		driver:     deps.Driver.WithLogger(sess.Logger),
		submitter:  deps.Submitter.WithLogger(sess.Logger),
		classifier: deps.Classifier.WithLogger(sess.Logger),
		baseURL:    deps.BaseURL,
		entryURL:   deps.EntryURL,
	}
	if deps.Gate != nil && sess.Interactive {
		r.gate = observedGate{run: r, gate: deps.Gate}
	}

	resolvers := []mapper.Resolver{mapper.FallbackResolver{}}
	if r.gate != nil {
		resolvers = append(resolvers, mapper.GateResolver{Gate: r.gate, RunID: sess.RunID})
	}
	r.mapper = mapper.New(resolvers...).WithLogger(sess.Logger)
	return r
}

// State returns the current state
func (r *Run) State() State {
	return r.state
}

// Session returns the run's session
func (r *Run) Session() *Session {
	return r.sess
}

// Authenticate logs into the portal with creds. Without valid credentials
// an interactive run opens the entry page and waits for the human to log in.
func (r *Run) Authenticate(ctx context.Context, creds navigate.Credentials) error {
	if err := r.require(StateNotLoggedIn); err != nil {
		return err
	}

	if creds.Valid() {
		if err := r.navigator.Login(ctx, r.sess.Page, r.baseURL, creds); err != nil {
			return r.Fail(err)
		}
		r.authenticated = true
		return nil
	}

	if r.gate == nil {
		return r.Fail(apperr.NewUnauthorized("Authentication credentials required"))
	}

	if err := r.sess.Page.Goto(ctx, r.entryURL); err != nil {
		return r.Fail(apperr.NewServiceUnavailable("failed to open entry page", err))
	}
	if err := r.transition(StateAwaitingManualAuth); err != nil {
		return err
	}
	if _, err := r.gate.Wait(ctx, checkpoint.Prompt{
		RunID:   r.sess.RunID,
		Kind:    checkpoint.KindManualAuth,
		Message: "Log in to SharePoint in the browser window, then continue.",
	}); err != nil && !errors.Is(err, checkpoint.ErrSkipped) {
		return r.Fail(err)
	}
	r.authenticated = true
	return nil
}

// OpenBookingPage navigates from wherever the login left the browser to the
// portal's booking form. Interactive runs fall back to asking the human.
func (r *Run) OpenBookingPage(ctx context.Context) error {
	if !r.authenticated {
		return r.invalid(StateOnBookingPage)
	}

	if err := r.navigator.ToBookingPage(ctx, r.sess.Page); err != nil {
		if r.gate == nil {
			return r.Fail(err)
		}
		r.sess.Logger.Warn().Err(err).Msg("automatic navigation failed, asking for manual navigation")
		if _, werr := r.gate.Wait(ctx, checkpoint.Prompt{
			RunID:   r.sess.RunID,
			Kind:    checkpoint.KindManualAuth,
			Message: "Could not reach Momentus automatically. Navigate to the room booking page, then continue.",
		}); werr != nil && !errors.Is(werr, checkpoint.ErrSkipped) {
			return r.Fail(werr)
		}
	}
	return r.transition(StateOnBookingPage)
}

// FillForm probes the booking page, maps requirements to controls and
// writes the criteria. A form that is only partly filled is still submitted.
func (r *Run) FillForm(ctx context.Context) (driver.Report, error) {
	if err := r.require(StateOnBookingPage); err != nil {
		return driver.Report{}, err
	}

	inv, err := r.prober.Inspect(ctx, r.sess.Page)
	if err != nil {
		return driver.Report{}, r.Fail(err)
	}
	if inv.Empty() {
		return driver.Report{}, r.Fail(apperr.NewSelectorMiss("no form elements found on booking page"))
	}
	r.sess.Logger.Info().Str("inventory", inv.Summary()).Msg("Analyzed booking page")

	r.mapping = r.mapper.Map(ctx, r.sess.Page, inv, r.sess.Criteria)
	r.report = r.driver.Fill(ctx, r.sess.Page, r.mapping.Mapping, r.sess.Criteria)
	if !r.report.Success() {
		r.sess.Logger.Warn().
			Int("attempted", r.report.Attempted).
			Strs("unmapped", r.mapping.Unmapped).
			Msg("Could not fill booking form completely")
	}

	return r.report, r.transition(StateFormFilled)
}

// Submit clicks the form's submit control
func (r *Run) Submit(ctx context.Context) error {
	if err := r.require(StateFormFilled); err != nil {
		return err
	}
	if _, err := r.submitter.Submit(ctx, r.sess.Page); err != nil {
		return r.Fail(err)
	}
	return r.transition(StateSubmitted)
}

// Classify reads the page the portal answered with
func (r *Run) Classify(ctx context.Context) (booking.Outcome, error) {
	if err := r.require(StateSubmitted); err != nil {
		return booking.Outcome{}, err
	}

	outcome, err := r.classifier.Outcome(ctx, r.sess.Page)
	if err != nil {
		return booking.Outcome{}, r.Fail(err)
	}
	r.outcome = outcome
	r.sess.Logger.Info().
		Str("kind", string(outcome.Kind)).
		Int("rooms", len(outcome.Rooms)).
		Bool("ambiguous", outcome.Ambiguous).
		Msg("Classified response")

	return outcome, r.transition(StateClassified)
}

// BookRoom picks a room out of classified search results and clicks its
// Book control. roomID matches a room's ID or name; when empty an
// interactive run asks, and otherwise the first bookable room is taken.
func (r *Run) BookRoom(ctx context.Context, roomID string) (booking.Room, error) {
	if err := r.require(StateClassified); err != nil {
		return booking.Room{}, err
	}
	if r.outcome.Kind != booking.OutcomeSearchResults || len(r.outcome.Rooms) == 0 {
		return booking.Room{}, apperr.NewValidation("no search results to book from")
	}

	candidates, err := r.roomCandidates(ctx, roomID)
	if err != nil {
		return booking.Room{}, r.Fail(err)
	}

	room, err := r.submitter.BookRoom(ctx, r.sess.Page, candidates)
	if err != nil {
		return booking.Room{}, r.Fail(err)
	}
	r.room = &room
	return room, r.transition(StateSubmitted)
}

func (r *Run) roomCandidates(ctx context.Context, roomID string) ([]booking.Room, error) {
	rooms := r.outcome.Rooms
	if roomID != "" {
		for _, room := range rooms {
			if room.ID == roomID || strings.EqualFold(room.Name, roomID) {
				return []booking.Room{room}, nil
			}
		}
		return nil, apperr.NewSelectorMiss(fmt.Sprintf("room %s not found in search results", roomID))
	}

	if r.gate == nil || len(rooms) == 1 {
		return rooms, nil
	}

	choices := make([]string, len(rooms))
	for i, room := range rooms {
		choices[i] = room.Name
		if room.Capacity > 0 {
			choices[i] = fmt.Sprintf("%s (capacity %d)", room.Name, room.Capacity)
		}
	}
	answer, err := r.gate.Wait(ctx, checkpoint.Prompt{
		RunID:   r.sess.RunID,
		Kind:    checkpoint.KindChooseRoom,
		Message: "Which room should be booked?",
		Choices: choices,
	})
	if err != nil && !errors.Is(err, checkpoint.ErrSkipped) {
		return nil, err
	}
	idx, err := checkpoint.ChoiceIndex(answer, choices)
	if errors.Is(err, checkpoint.ErrSkipped) {
		return rooms, nil
	}
	if err != nil {
		return nil, apperr.NewValidation(err.Error())
	}
	return []booking.Room{rooms[idx]}, nil
}

// Fail moves the run to Failed and returns err for chaining
func (r *Run) Fail(err error) error {
	if r.state == StateFailed {
		return err
	}
	from := r.state
	r.state = StateFailed
	r.sess.Logger.Error().Err(err).Str("from", string(from)).Msg("Run failed")
	for _, l := range r.listeners {
		l.Transitioned(r.sess, from, StateFailed)
	}
	return err
}

// Result snapshots what the run produced so far
func (r *Run) Result() *Result {
	return &Result{
		RunID:    r.sess.RunID,
		State:    r.state,
		Criteria: r.sess.Criteria,
		Mapped:   mappedFields(r.mapping.Mapping),
		Unmapped: r.mapping.Unmapped,
		Fill:     r.report,
		Outcome:  r.outcome,
		Room:     r.room,
		Booked:   r.outcome.Kind == booking.OutcomeSuccess,
	}
}

func (r *Run) transition(to State) error {
	if !CanTransition(r.state, to) {
		return r.invalid(to)
	}
	from := r.state
	r.state = to
	r.sess.Logger.Info().Str("from", string(from)).Str("to", string(to)).Msg("Run state changed")
	for _, l := range r.listeners {
		l.Transitioned(r.sess, from, to)
	}
	return nil
}

func (r *Run) require(s State) error {
	if r.state != s {
		return apperr.NewInternal(fmt.Sprintf("run is %s, expected %s", r.state, s), nil)
	}
	return nil
}

func (r *Run) invalid(to State) error {
	return apperr.NewInternal(fmt.Sprintf("invalid transition %s -> %s", r.state, to), nil)
}

func mappedFields(mapping booking.FieldMapping) []string {
	var out []string
	for _, name := range booking.Fields {
		if _, ok := mapping[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// observedGate tells listeners about a prompt before suspending on it
type observedGate struct {
	run  *Run
	gate checkpoint.Gate
}

func (g observedGate) Wait(ctx context.Context, prompt checkpoint.Prompt) (string, error) {
	for _, l := range g.run.listeners {
		l.Waiting(g.run.sess, prompt)
	}
	return g.gate.Wait(ctx, prompt)
}
