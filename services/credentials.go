package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials are the tokens of the signed-in user.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// CredentialStore persists credentials between runs.
type CredentialStore interface {
	// Load returns zero Credentials when nothing is stored.
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, c Credentials) error
	Clear(ctx context.Context) error
}

// MemoryCredentialStore keeps credentials for the lifetime of the process.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemoryCredentialStore(initial Credentials) *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: initial}
}

func (m *MemoryCredentialStore) Load(context.Context) (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *MemoryCredentialStore) Save(_ context.Context, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	return nil
}

func (m *MemoryCredentialStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

// Session caches the current credentials in front of a CredentialStore and
// is safe to read from any goroutine.
type Session struct {
	mu       sync.RWMutex
	store    CredentialStore
	creds    Credentials
	onLogout func()
}

// NewSession loads any stored credentials. onLogout runs after SignOut.
func NewSession(ctx context.Context, store CredentialStore, onLogout func()) (*Session, error) {
	creds, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &Session{store: store, creds: creds, onLogout: onLogout}, nil
}

// UserID returns the stored user id, falling back to the access token's claims.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.UserID != "" {
		return s.creds.UserID
	}
	return UserIDFromToken(s.creds.AccessToken)
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

// SignedIn reports whether an access token is held.
func (s *Session) SignedIn() bool {
	return s.AccessToken() != ""
}

// SignIn replaces the credentials and persists them.
func (s *Session) SignIn(ctx context.Context, c Credentials) error {
	if c.UserID == "" {
		c.UserID = UserIDFromToken(c.AccessToken)
	}
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
	return s.store.Save(ctx, c)
}

// UpdateAccess stores a refreshed access token.
func (s *Session) UpdateAccess(ctx context.Context, access string) error {
	s.mu.Lock()
	s.creds.AccessToken = access
	c := s.creds
	s.mu.Unlock()
	return s.store.Save(ctx, c)
}

// SignOut forgets the credentials and notifies the logout hook.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.creds = Credentials{}
	s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		logError(backendProvider, "clear credentials", err)
	}
	if s.onLogout != nil {
		s.onLogout()
	}
}

// UserIDFromToken reads the user id claim of an access token without verifying it.
func UserIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"user_id", "userID"} {
		switch v := claims[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}
