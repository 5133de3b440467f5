package run

import (
	"time"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/database"
	"github.com/omriShneor/room_booking_agent/internal/sse"
)

// Listener observes the lifecycle of runs. Calls happen on the run's
// goroutine and must not block for long.
type Listener interface {
	Started(sess *Session)
	Transitioned(sess *Session, from, to State)
	Waiting(sess *Session, prompt checkpoint.Prompt)
	Finished(sess *Session, result *Result, err error)
}

// AttemptRecorder persists every run as a booking attempt row
type AttemptRecorder struct {
	DB *database.DB
}

func (a AttemptRecorder) Started(sess *Session) {
	if err := a.DB.CreateBookingAttempt(sess.RunID, sess.Request, string(StateNotLoggedIn)); err != nil {
		sess.Logger.Warn().Err(err).Msg("failed to record booking attempt")
		return
	}
	if err := a.DB.SetBookingAttemptCriteria(sess.RunID, sess.Criteria); err != nil {
		sess.Logger.Warn().Err(err).Msg("failed to record booking criteria")
	}
}

func (a AttemptRecorder) Transitioned(sess *Session, from, to State) {
	if to == StateFailed {
		return
	}
	if err := a.DB.UpdateBookingAttemptState(sess.RunID, string(to)); err != nil {
		sess.Logger.Warn().Err(err).Msg("failed to record run state")
	}
}

func (a AttemptRecorder) Waiting(*Session, checkpoint.Prompt) {}

func (a AttemptRecorder) Finished(sess *Session, result *Result, err error) {
	if err != nil {
		if ferr := a.DB.FailBookingAttempt(sess.RunID, string(StateFailed), err.Error()); ferr != nil {
			sess.Logger.Warn().Err(ferr).Msg("failed to record failed attempt")
		}
		return
	}

	roomName := ""
	if result.Room != nil {
		roomName = result.Room.Name
	}
	if cerr := a.DB.CompleteBookingAttempt(sess.RunID, string(result.State), string(result.Outcome.Kind), result.Outcome, roomName); cerr != nil {
		sess.Logger.Warn().Err(cerr).Msg("failed to record completed attempt")
	}
}

// ProgressPublisher streams run progress to SSE subscribers. A finished
// run's state is dropped after Retain, or sse.DefaultRetention when zero.
type ProgressPublisher struct {
	States *sse.StateManager
	Retain time.Duration
}

func (p ProgressPublisher) Started(sess *Session) {
	p.States.GetState(sess.RunID)
}

func (p ProgressPublisher) Transitioned(sess *Session, from, to State) {
	if to == StateFailed {
		return
	}
	p.States.GetState(sess.RunID).SetStatus(string(to))
}

func (p ProgressPublisher) Waiting(sess *Session, prompt checkpoint.Prompt) {
	p.States.GetState(sess.RunID).SetPrompt(prompt.Message)
}

func (p ProgressPublisher) Finished(sess *Session, result *Result, err error) {
	state := p.States.GetState(sess.RunID)
	if err != nil {
		state.SetError(apperr.MessageOf(err))
	} else {
		state.MarkComplete(result)
	}

	retain := p.Retain
	if retain <= 0 {
		retain = sse.DefaultRetention
	}
	p.States.Expire(sess.RunID, retain)
}
