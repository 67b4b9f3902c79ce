package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name used when none is configured
const DefaultService = "quantrack-cli"

// ErrNotAuthenticated is returned when no credential is stored for an API
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'quantrack login' first")

// TokenStore defines the interface for credential storage operations.
// Tokens are keyed by API base URL.
type TokenStore interface {
	SaveToken(baseURL, token string) error
	LoadToken(baseURL string) (string, error)
	DeleteToken(baseURL string) error
}

// KeyringStore persists bearer tokens in the OS keychain/credential manager
type KeyringStore struct {
	Service string
}

// NewKeyringStore creates a keyring-backed token store
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultService
	}
	return &KeyringStore{Service: service}
}

// getKeyringKey returns a unique key for storing tokens per API
func getKeyringKey(baseURL string) string {
	return fmt.Sprintf("token-%s", baseURL)
}

// SaveToken persists the token securely
func (s *KeyringStore) SaveToken(baseURL, token string) error {
	if err := keyring.Set(s.Service, getKeyringKey(baseURL), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the token. ErrNotAuthenticated means none is stored.
func (s *KeyringStore) LoadToken(baseURL string) (string, error) {
	token, err := keyring.Get(s.Service, getKeyringKey(baseURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the token
func (s *KeyringStore) DeleteToken(baseURL string) error {
	if err := keyring.Delete(s.Service, getKeyringKey(baseURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// MemoryStore keeps tokens in process memory
type MemoryStore struct {
	tokens map[string]string
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (m *MemoryStore) SaveToken(baseURL, token string) error {
	m.tokens[baseURL] = token
	return nil
}

func (m *MemoryStore) LoadToken(baseURL string) (string, error) {
	token, ok := m.tokens[baseURL]
	if !ok {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

func (m *MemoryStore) DeleteToken(baseURL string) error {
	delete(m.tokens, baseURL)
	return nil
}

// TokenExpiry reports the expiry of a JWT-shaped token without verifying
// its signature. ok is false when the token is not a JWT or carries no exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return time.Time{}, false
	}
	return expiresAt.Time, true
}
