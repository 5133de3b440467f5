package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/omriShneor/room_booking_agent/internal/navigate"
)

// Vault seals portal credentials with AES-256-GCM. The stored form is
// base64(nonce || ciphertext) of the JSON encoded credentials.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the key from secret, or from BOOKING_ENCRYPTION_KEY when
// secret is empty. A base64 value of exactly 32 bytes is used as is; any
// other value is hashed.
func NewVault(secret string) (*Vault, error) {
	if secret == "" {
		secret = os.Getenv("BOOKING_ENCRYPTION_KEY")
	}
	if secret == "" {
		return nil, errors.New("no encryption key available: set SECRET_KEY or BOOKING_ENCRYPTION_KEY")
	}

	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(key) != 32 {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts creds. Sealing the same credentials twice gives different output.
func (v *Vault) Seal(creds navigate.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (v *Vault) Open(sealed string) (navigate.Credentials, error) {
	var creds navigate.Credentials

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return creds, fmt.Errorf("failed to decode sealed credentials: %w", err)
	}
	n := v.aead.NonceSize()
	if len(raw) < n {
		return creds, errors.New("sealed credentials too short")
	}

	plaintext, err := v.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return creds, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}
