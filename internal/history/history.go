// Package history keeps the append-only JSON log of booking searches.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omriShneor/room_booking_agent/internal/booking"
)

// Entry is one recorded booking attempt
type Entry struct {
	ID        string              `json:"id"`
	Timestamp string              `json:"timestamp"`
	Criteria  booking.Criteria    `json:"criteria"`
	Outcome   booking.OutcomeKind `json:"outcome,omitempty"`
}

// Store reads and rewrites a JSON array file. Writes are serialized within
// the process only.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// Append records criteria with the current timestamp
func (s *Store) Append(criteria booking.Criteria, outcome booking.OutcomeKind) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: s.now().Format(time.RFC3339),
		Criteria:  criteria,
		Outcome:   outcome,
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode history: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Entry{}, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return Entry{}, fmt.Errorf("failed to write history: %w", err)
	}
	return entry, nil
}

// List returns every entry, oldest first. A missing file is an empty history.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Recent returns up to n entries, newest first
func (s *Store) Recent(n int) ([]Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	out := make([]Entry, 0, min(n, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (s *Store) read() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(data) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return entries, nil
}
