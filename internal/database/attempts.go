package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// BookingAttempt is the persisted record of one booking run
type BookingAttempt struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	Request     string          `json:"request,omitempty"`
	Criteria    json.RawMessage `json:"criteria,omitempty"`
	State       string          `json:"state"`
	OutcomeKind string          `json:"outcome_kind,omitempty"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	Error       string          `json:"error,omitempty"`
	RoomName    string          `json:"room_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateBookingAttempt records the start of a run
func (d *DB) CreateBookingAttempt(runID, request, state string) error {
	_, err := d.Exec(`
		INSERT INTO booking_attempts (run_id, request, state)
		VALUES (?, ?, ?)
	`, runID, request, state)
	if err != nil {
		return fmt.Errorf("failed to create booking attempt: %w", err)
	}
	return nil
}

// UpdateBookingAttemptState moves a run to a new state
func (d *DB) UpdateBookingAttemptState(runID, state string) error {
	return d.updateAttempt(runID, `state = ?`, state)
}

// SetBookingAttemptCriteria stores the normalized criteria of a run
func (d *DB) SetBookingAttemptCriteria(runID string, criteria any) error {
	data, err := json.Marshal(criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}
	return d.updateAttempt(runID, `criteria_json = ?`, string(data))
}

// CompleteBookingAttempt stores the classified outcome of a run
func (d *DB) CompleteBookingAttempt(runID, state, outcomeKind string, detail any, roomName string) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}
	return d.updateAttempt(runID,
		`state = ?, outcome_kind = ?, detail_json = ?, room_name = NULLIF(?, '')`,
		state, outcomeKind, string(data), roomName)
}

// FailBookingAttempt marks a run as failed with its error
func (d *DB) FailBookingAttempt(runID, state, errMsg string) error {
	return d.updateAttempt(runID, `state = ?, error = ?`, state, errMsg)
}

func (d *DB) updateAttempt(runID, set string, args ...any) error {
	args = append(args, runID)
	result, err := d.Exec(`UPDATE booking_attempts SET `+set+`, updated_at = CURRENT_TIMESTAMP WHERE run_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking attempt: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("booking attempt %s not found", runID)
	}
	return nil
}

// GetBookingAttempt returns a run by id, or nil
func (d *DB) GetBookingAttempt(runID string) (*BookingAttempt, error) {
	row := d.QueryRow(attemptSelect+` WHERE run_id = ?`, runID)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking attempt: %w", err)
	}
	return a, nil
}

// ListBookingAttempts returns the most recent runs, newest first
func (d *DB) ListBookingAttempts(limit int) ([]*BookingAttempt, error) {
	rows, err := d.Query(attemptSelect+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*BookingAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

const attemptSelect = `
	SELECT id, run_id, request, criteria_json, state, outcome_kind, detail_json, error, room_name, created_at, updated_at
	FROM booking_attempts`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (*BookingAttempt, error) {
	var a BookingAttempt
	var criteria, outcome, detail, errMsg, room sql.NullString

	err := s.Scan(
		&a.ID,
		&a.RunID,
		&a.Request,
		&criteria,
		&a.State,
		&outcome,
		&detail,
		&errMsg,
		&room,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if criteria.Valid {
		a.Criteria = json.RawMessage(criteria.String)
	}
	if detail.Valid {
		a.Detail = json.RawMessage(detail.String)
	}
	a.OutcomeKind = outcome.String
	a.Error = errMsg.String
	a.RoomName = room.String
	return &a, nil
}
