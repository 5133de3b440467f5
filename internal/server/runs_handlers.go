package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/database"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.db.ListBookingAttempts(queryLimit(r, 25))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list booking attempts")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if attempts == nil {
		attempts = []*database.BookingAttempt{}
	}
	respondJSON(w, http.StatusOK, attempts)
}

// handleRunStatus answers from the live state while the process remembers
// the run, and from the attempts table afterwards.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	if state, ok := s.states.Lookup(runID); ok {
		respondJSON(w, http.StatusOK, state.GetStatus())
		return
	}

	attempt, err := s.db.GetBookingAttempt(runID)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("failed to load booking attempt")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if attempt == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

func (s *Server) handleRunSSE(w http.ResponseWriter, r *http.Request) {
	state, ok := s.states.Lookup(r.PathValue("id"))
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Subscribe before the snapshot so no update falls in between
	updates := state.Subscribe()
	defer state.Unsubscribe(updates)

	fmt.Fprintf(w, "event: status\ndata: %s\n\n", state.GetStatusJSON())
	flusher.Flush()
	if state.IsComplete() {
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, update.Data)
			flusher.Flush()
			if update.Type == "complete" {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	if s.gates == nil {
		respondError(w, http.StatusServiceUnavailable, "checkpoints are not enabled")
		return
	}

	var req struct {
		Answer string `json:"answer"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	runID := r.PathValue("id")
	prompt, pending := s.gates.Pending(runID)
	if !pending {
		respondError(w, http.StatusNotFound, fmt.Sprintf("run %s is not waiting on a checkpoint", runID))
		return
	}
	if err := s.gates.Resume(runID, req.Answer); err != nil {
		respondError(w, http.StatusConflict, apperr.MessageOf(err))
		return
	}

	s.logger.Info().Str("run_id", runID).Str("kind", prompt.Kind).Msg("Checkpoint resumed")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"kind":    prompt.Kind,
	})
}
