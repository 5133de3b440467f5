package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/agent"
	"github.com/omriShneor/room_booking_agent/internal/apperr"
	"github.com/omriShneor/room_booking_agent/internal/auth"
	"github.com/omriShneor/room_booking_agent/internal/booking"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/run"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondRunError maps a failed run onto the HTTP surface. Anything that is
// not the caller's fault is reported as fallback.
func (s *Server) respondRunError(w http.ResponseWriter, err error, fallback string) {
	switch apperr.TypeOf(err) {
	case apperr.ErrorTypeValidation:
		respondError(w, http.StatusBadRequest, apperr.MessageOf(err))
	case apperr.ErrorTypeUnauthorized:
		respondError(w, http.StatusUnauthorized, apperr.MessageOf(err))
	default:
		s.logger.Error().Err(err).Msg("booking run failed")
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}

	status := map[string]interface{}{
		"status":     "healthy",
		"extraction": "disabled",
		"email":      "disabled",
	}
	if s.runner != nil && s.runner.ExtractionEnabled() {
		status["extraction"] = "enabled"
	}
	if s.emailReady {
		status["email"] = "enabled"
	}
	if s.states != nil {
		status["active_runs"] = s.states.Len()
	}

	respondJSON(w, http.StatusOK, status)
}

// Booking API

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "No message provided")
		return
	}

	extraction, criteria, err := s.runner.Understand(r.Context(), req.Message)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chat API error")
		respondError(w, http.StatusInternalServerError, apperr.MessageOf(err))
		return
	}

	resp := map[string]interface{}{
		"response": agent.GenerateResponse(extraction),
		"data":     extraction,
	}
	if extraction.ExtractedDetails != nil {
		resp["criteria"] = criteria
	}
	respondJSON(w, http.StatusOK, resp)
}

// criteriaInput accepts loosely formatted criteria, the same shapes the
// extractor produces, plus an explicit end time.
type criteriaInput struct {
	booking.ExtractedDetails
	EndTime booking.Text `json:"end_time"`
}

func (s *Server) criteria(in criteriaInput) booking.Criteria {
	c := s.normalizer.Criteria(in.ExtractedDetails)
	if end := in.EndTime.String(); end != "" {
		c.EndTime = s.normalizer.Time(end)
	}
	return c
}

// credentials prefers what the session stored over the environment
func (s *Server) credentials(r *http.Request) navigate.Credentials {
	if session := auth.GetSessionFromContext(r.Context()); session != nil && s.authService != nil {
		creds, ok, err := s.authService.Credentials(session.Token)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to load session credentials")
		} else if ok {
			return creds
		}
	}
	return s.envCreds
}

// startAsync reports whether the caller asked for a background run
func startAsync(r *http.Request) bool {
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	return async
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Criteria criteriaInput `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	runReq := run.Request{
		Criteria:    s.criteria(req.Criteria),
		Credentials: s.credentials(r),
	}

	if startAsync(r) {
		s.startRun(w, runReq)
		return
	}

	result, err := s.runner.Execute(r.Context(), runReq)
	if err != nil {
		s.respondRunError(w, err, "Internal server error")
		return
	}

	rooms := result.Outcome.Rooms
	if rooms == nil {
		rooms = []booking.Room{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  result.RunID,
		"rooms":   rooms,
		"outcome": result.Outcome,
		"summary": run.Summary(result),
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID         string        `json:"room_id"`
		BookingDetails criteriaInput `json:"booking_details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.RoomID == "" {
		respondError(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	runReq := run.Request{
		Criteria:    s.criteria(req.BookingDetails),
		Credentials: s.credentials(r),
		Book:        true,
		RoomID:      req.RoomID,
	}

	if startAsync(r) {
		s.startRun(w, runReq)
		return
	}

	result, err := s.runner.Execute(r.Context(), runReq)
	if err != nil {
		s.respondRunError(w, err, "Failed to book room")
		return
	}
	if !result.Booked {
		s.logger.Warn().
			Str("run_id", result.RunID).
			Str("outcome", string(result.Outcome.Kind)).
			Msg("booking run finished without a confirmation")
		respondError(w, http.StatusInternalServerError, "Failed to book room")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Room booked successfully",
		"run_id":       result.RunID,
		"room":         result.Room,
		"confirmation": result.Outcome.Confirmation,
	})
}

// startRun launches an interactive run whose checkpoints are answered
// through the resume endpoint.
func (s *Server) startRun(w http.ResponseWriter, req run.Request) {
	req.Interactive = s.gates != nil
	runID, err := s.runner.Start(s.runCtx, req)
	if err != nil {
		s.respondRunError(w, err, "Internal server error")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"stream": "/api/runs/" + runID + "/stream",
	})
}

// Portal credentials

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds navigate.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !creds.Valid() {
		respondError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	if s.sessions == nil {
		respondError(w, http.StatusServiceUnavailable, "sessions are not enabled")
		return
	}
	session, err := s.sessions.Issue(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if err := s.authService.SaveCredentials(session.ID, creds); err != nil {
		s.logger.Error().Err(err).Msg("Login API error")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Credentials stored",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := auth.GetSessionFromContext(r.Context()); session != nil && s.authService != nil {
		if err := s.authService.Logout(session.Token); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete session")
		}
	}
	auth.ClearCookie(w)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// History

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 25)

	entries, err := s.history.Recent(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read booking history")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// maxLimit caps the ?limit query parameter of list endpoints
const maxLimit = 100

func queryLimit(r *http.Request, def int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	return min(limit, maxLimit)
}
