package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Session is a browser session of the web UI. Portal credentials, when the
// user logged in, are stored encrypted.
type Session struct {
	ID                   int64
	TokenHash            string
	Username             string
	EncryptedCredentials string
	ExpiresAt            time.Time
	CreatedAt            time.Time
	LastUsedAt           time.Time
}

// CreateSession stores a new session keyed by the hash of its token
func (d *DB) CreateSession(tokenHash string, expiresAt time.Time) (*Session, error) {
	result, err := d.Exec(`
		INSERT INTO sessions (token_hash, expires_at)
		VALUES (?, ?)
	`, tokenHash, expiresAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get session id: %w", err)
	}
	return d.getSession("id = ?", id)
}

// GetSessionByTokenHash returns the unexpired session for a token hash, or nil
func (d *DB) GetSessionByTokenHash(tokenHash string) (*Session, error) {
	return d.getSession("token_hash = ? AND expires_at > ?", tokenHash, time.Now().UTC())
}

func (d *DB) getSession(where string, args ...any) (*Session, error) {
	var s Session
	var username, creds sql.NullString

	err := d.QueryRow(`
		SELECT id, token_hash, username, encrypted_credentials, expires_at, created_at, last_used_at
		FROM sessions WHERE `+where, args...).Scan(
		&s.ID,
		&s.TokenHash,
		&username,
		&creds,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Username = username.String
	s.EncryptedCredentials = creds.String
	return &s, nil
}

// SetSessionCredentials attaches encrypted portal credentials to a session
func (d *DB) SetSessionCredentials(id int64, username, encrypted string) error {
	_, err := d.Exec(`
		UPDATE sessions SET username = ?, encrypted_credentials = ?, last_used_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, username, encrypted, id)
	if err != nil {
		return fmt.Errorf("failed to set session credentials: %w", err)
	}
	return nil
}

// ClearSessionCredentials forgets the portal login of a session
func (d *DB) ClearSessionCredentials(id int64) error {
	_, err := d.Exec(`
		UPDATE sessions SET username = NULL, encrypted_credentials = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to clear session credentials: %w", err)
	}
	return nil
}

// TouchSession updates the last use time of a session
func (d *DB) TouchSession(id int64) error {
	_, err := d.Exec(`UPDATE sessions SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session
func (d *DB) DeleteSession(id int64) error {
	_, err := d.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every expired session and reports how many
func (d *DB) DeleteExpiredSessions() (int64, error) {
	result, err := d.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
