package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store persists the bearer token across runs so an authenticated user
// stays logged in. It satisfies the api client's TokenSource.
type Store struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewStore loads any previously saved token from path. A missing file is
// not an error; it just means nobody is logged in yet.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("token file path is required")
	}

	store := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	store.token = strings.TrimSpace(string(data))
	return store, nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Save writes the token to disk with owner-only permissions and makes it
// immediately visible to Token.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear logs out: the file is removed and the in-memory token dropped.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// Expired inspects the token's exp claim without verifying the signature;
// verification belongs to the backend. Tokens that are missing, malformed,
// or past their exp are reported expired so the caller prompts a login.
// A well-formed token with no exp claim is treated as non-expiring.
func (s *Store) Expired(now time.Time) bool {
	token := s.Token()
	if token == "" {
		return true
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return err != nil
	}
	return expiry.Before(now)
}
