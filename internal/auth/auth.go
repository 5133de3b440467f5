package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/omriShneor/room_booking_agent/internal/database"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
)

const (
	// SessionDuration is how long session tokens are valid
	SessionDuration = 7 * 24 * time.Hour
)

// Service manages web sessions and the portal credentials stored with them
type Service struct {
	db    *database.DB
	vault *Vault
}

// NewService creates a session service. secret keys credential encryption.
func NewService(db *database.DB, secret string) (*Service, error) {
	vault, err := NewVault(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential vault: %w", err)
	}

	return &Service{db: db, vault: vault}, nil
}

// CreateSession starts a new anonymous session and returns its token
func (s *Service) CreateSession() (string, *Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	row, err := s.db.CreateSession(hashToken(token), time.Now().Add(SessionDuration))
	if err != nil {
		return "", nil, err
	}
	return token, &Session{ID: row.ID, Token: token}, nil
}

// ValidateSession returns the session for a token
func (s *Service) ValidateSession(token string) (*Session, error) {
	row, err := s.db.GetSessionByTokenHash(hashToken(token))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("invalid or expired session")
	}

	if err := s.db.TouchSession(row.ID); err != nil {
		return nil, err
	}

	return &Session{
		ID:       row.ID,
		Token:    token,
		Username: row.Username,
		LoggedIn: row.EncryptedCredentials != "",
	}, nil
}

// SaveCredentials encrypts creds and attaches them to a session
func (s *Service) SaveCredentials(sessionID int64, creds navigate.Credentials) error {
	sealed, err := s.vault.Seal(creds)
	if err != nil {
		return err
	}
	return s.db.SetSessionCredentials(sessionID, creds.Username, sealed)
}

// Credentials returns the decrypted portal credentials of a session, if any
func (s *Service) Credentials(token string) (navigate.Credentials, bool, error) {
	row, err := s.db.GetSessionByTokenHash(hashToken(token))
	if err != nil {
		return navigate.Credentials{}, false, err
	}
	if row == nil || row.EncryptedCredentials == "" {
		return navigate.Credentials{}, false, nil
	}

	creds, err := s.vault.Open(row.EncryptedCredentials)
	if err != nil {
		return navigate.Credentials{}, false, err
	}
	return creds, true, nil
}

// Logout forgets the session and everything stored with it
func (s *Service) Logout(token string) error {
	row, err := s.db.GetSessionByTokenHash(hashToken(token))
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}
	return s.db.DeleteSession(row.ID)
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *Service) CleanupExpiredSessions() error {
	_, err := s.db.DeleteExpiredSessions()
	return err
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
