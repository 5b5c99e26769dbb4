package services

import (
	"context"
	"testing"
	"time"

	"mapquester/utils/errors"
)

func newUserService() (*UserService, *TokenIssuer) {
	tokens := NewTokenIssuer("test-secret", time.Minute, time.Hour)
	return NewUserService(NewMemoryUserRepository(), tokens, nil), tokens
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	s, tokens := newUserService()
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("expected a bcrypt hash")
	}
	if _, err := s.Register(ctx, "alice", "other@example.com", "correct-horse"); !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict for duplicate username, got %v", err)
	}

	pair, err := s.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.UserID != user.ID {
		t.Errorf("expected user id %s, got %s", user.ID, pair.UserID)
	}
	if id, err := tokens.Verify(pair.Access, AccessTokenType); err != nil || id != user.ID {
		t.Errorf("expected valid access token, got %q, %v", id, err)
	}
	if _, err := tokens.Verify(pair.Refresh, AccessTokenType); err == nil {
		t.Error("expected refresh token rejected as access token")
	}
	if UserIDFromToken(pair.Access) != user.ID {
		t.Error("expected the client to read the user id claim")
	}

	if _, err := s.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	s, _ := newUserService()

	_, err := s.Register(context.Background(), " ", "not-an-email", "short")
	fields := errors.FieldErrors(err)
	for _, f := range []string{"username", "email", "password"} {
		if fields[f] == "" {
			t.Errorf("expected error for %s, got %v", f, fields)
		}
	}
}

func TestUserService_Refresh(t *testing.T) {
	s, tokens := newUserService()
	ctx := context.Background()
	if _, err := s.Register(ctx, "bob", "", "correct-horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, _ := s.Login(ctx, "bob", "correct-horse")

	access, err := s.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if id, err := tokens.Verify(access, AccessTokenType); err != nil || id != pair.UserID {
		t.Errorf("expected a fresh access token, got %q, %v", id, err)
	}
	if _, err := s.Refresh(ctx, pair.Access); !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("expected access token refused for refresh, got %v", err)
	}

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Refresh(ctx, pair.Refresh); !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("expected expired refresh token refused, got %v", err)
	}
}

func TestUserService_PingLocationWithoutRedis(t *testing.T) {
	s, _ := newUserService()

	if err := s.PingLocation(context.Background(), "u1", 95, 0); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	err := s.PingLocation(context.Background(), "u1", 1, 2)
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "LOCATION_DISABLED" {
		t.Errorf("expected LOCATION_DISABLED, got %v", err)
	}
}
