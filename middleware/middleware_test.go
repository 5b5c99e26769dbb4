package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mapquester/middleware"
	"mapquester/models"
	"mapquester/services"
	"mapquester/utils/errors"
)

// call wraps an inner handler that records the user id in mw.
func call(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var seenUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = middleware.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec, seenUser
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var body errors.APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Minute, time.Hour)
	rec, _ := call(t, middleware.JWTMiddleware(tokens), httptest.NewRequest(http.MethodGet, "/pois/get/1", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %q", body.Code)
	}
}

func TestJWTMiddleware_ValidAccessToken(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Minute, time.Hour)
	pair, err := tokens.Issue(models.User{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/pois/get/u1", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access)
	rec, user := call(t, middleware.JWTMiddleware(tokens), req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if user != "u1" {
		t.Errorf("expected user u1 in context, got %q", user)
	}
}

func TestJWTMiddleware_RejectsRefreshAndForeignTokens(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Minute, time.Hour)
	other := services.NewTokenIssuer("other-secret", time.Minute, time.Hour)
	pair, _ := tokens.Issue(models.User{ID: "u1"})
	foreign, _ := other.Issue(models.User{ID: "u1"})

	for name, token := range map[string]string{
		"refresh token": pair.Refresh,
		"wrong secret":  foreign.Access,
		"garbage":       "abc.def.ghi",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec, _ := call(t, middleware.JWTMiddleware(tokens), req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/pois/create/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec, _ := call(t, middleware.CORSMiddleware([]string{"http://localhost:3000"}), req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("expected allowed methods")
	}
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec, _ := call(t, middleware.CORSMiddleware([]string{"http://localhost:3000"}), req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected request passed through, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	middleware.ErrorMiddleware()(panicking).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("expected request id echoed, got %q", got)
	}
}

func TestWriteError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.WriteError(rec, errors.Validation(map[string]string{"title": "This field is required."}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Fields["title"] != "This field is required." {
		t.Errorf("expected field error in body, got %+v", body)
	}
}
