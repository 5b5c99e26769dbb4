package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestUserIDFromToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"string claim", unsignedToken(t, jwt.MapClaims{"user_id": "abc"}), "abc"},
		{"numeric claim", unsignedToken(t, jwt.MapClaims{"user_id": 42}), "42"},
		{"camel claim", unsignedToken(t, jwt.MapClaims{"userID": "u-1"}), "u-1"},
		{"no claim", unsignedToken(t, jwt.MapClaims{"sub": "x"}), ""},
		{"garbage", "not-a-token", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		if got := UserIDFromToken(tt.token); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestSession_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore(Credentials{})
	loggedOut := 0
	session, err := NewSession(ctx, store, func() { loggedOut++ })
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if session.SignedIn() {
		t.Fatal("expected a fresh session to be signed out")
	}

	access := unsignedToken(t, jwt.MapClaims{"user_id": 5})
	if err := session.SignIn(ctx, Credentials{AccessToken: access, RefreshToken: "r"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.UserID() != "5" {
		t.Errorf("expected user id from token claims, got %q", session.UserID())
	}
	if err := session.UpdateAccess(ctx, "next"); err != nil {
		t.Fatalf("UpdateAccess: %v", err)
	}
	saved, _ := store.Load(ctx)
	if saved.AccessToken != "next" || saved.RefreshToken != "r" || saved.UserID != "5" {
		t.Errorf("unexpected stored credentials %+v", saved)
	}

	session.SignOut(ctx)
	if session.SignedIn() || session.UserID() != "" {
		t.Error("expected session cleared")
	}
	if loggedOut != 1 {
		t.Errorf("expected logout hook once, got %d", loggedOut)
	}
}

func TestSQLiteCredentialStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "creds.sqlite")

	store, err := NewSQLiteCredentialStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	empty, err := store.Load(ctx)
	if err != nil || empty != (Credentials{}) {
		t.Fatalf("expected empty credentials, got %+v, %v", empty, err)
	}

	want := Credentials{AccessToken: "a", RefreshToken: "r", UserID: "7"}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, Credentials{AccessToken: "a2", RefreshToken: "r", UserID: "7"}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteCredentialStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != "a2" || got.UserID != "7" {
		t.Errorf("expected the last save to persist, got %+v", got)
	}

	if err := reopened.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := reopened.Load(ctx); got != (Credentials{}) {
		t.Errorf("expected cleared credentials, got %+v", got)
	}
}
