package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mapquester/utils/errors"
	"mapquester/utils/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const backendProvider = "backend"

// APIClientConfig holds the connection settings of the backend client.
type APIClientConfig struct {
	// BaseURL is the backend origin plus API prefix, e.g. http://localhost:8000/api/v1.
	BaseURL    string
	RefreshURL string
	Timeout    time.Duration
	RPS        float64
	Burst      int
}

// APIClient talks to the MapQuester REST backend. Every request carries the
// session's bearer token; a 401 triggers one token refresh and one replay.
type APIClient struct {
	baseURL    string
	refreshURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	session    *Session
}

// NewAPIClient creates a backend client bound to session.
func NewAPIClient(cfg APIClientConfig, session *Session) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &APIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		refreshURL: cfg.RefreshURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		session:    session,
	}
}

// payload is a request body kept in memory so it can be replayed after a refresh.
type payload struct {
	contentType string
	data        []byte
}

func jsonPayload(v any) (*payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &payload{contentType: "application/json", data: data}, nil
}

// do sends the request and decodes a successful JSON response into out (if non-nil).
func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, body *payload, out any) error {
	resp, err := c.send(ctx, method, path, query, body, c.session.AccessToken())
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.session.RefreshToken() != "" {
		resp.Body.Close()
		access, err := c.refresh(ctx)
		if err != nil {
			logError(backendProvider, "refresh", err)
			c.session.SignOut(ctx)
			return errors.ErrUnauthorized
		}
		resp, err = c.send(ctx, method, path, query, body, access)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *APIClient) send(ctx context.Context, method, path string, query url.Values, body *payload, token string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Transport(err, 0)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body.data)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, errors.Transport(fmt.Errorf("create request: %w", err), 0)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	logRequest(backendProvider, method, path, query)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logError(backendProvider, method+" "+path, err)
		return nil, errors.Transport(err, 0)
	}
	logResponse(backendProvider, resp.StatusCode, time.Since(start))
	return resp, nil
}

// refresh exchanges the refresh token for a new access token and stores it.
func (c *APIClient) refresh(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"refresh": c.session.RefreshToken()})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refresh status %d", resp.StatusCode)
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh: %w", err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}
	if err := c.session.UpdateAccess(ctx, out.Access); err != nil {
		logger.Error("Failed to persist refreshed token: %v", err)
	}
	return out.Access, nil
}

func decodeResponse(resp *http.Response, out any) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return errors.Transport(fmt.Errorf("decode response: %w", err), resp.StatusCode)
		}
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return validationFromBody(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound(resp.Request.URL.Path)
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.ErrUnauthorized
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Transport(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), resp.StatusCode)
	}
}

// validationFromBody reads either the dev server's {"fields": {...}} shape or a
// Django REST style {"field": ["message", ...]} body.
func validationFromBody(r io.Reader) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return errors.Validation(nil)
	}

	fields := map[string]string{}
	if f, ok := raw["fields"]; ok {
		_ = json.Unmarshal(f, &fields)
	}
	var detail string
	for key, value := range raw {
		switch key {
		case "fields", "code", "status":
			continue
		case "error", "detail", "message":
			_ = json.Unmarshal(value, &detail)
			continue
		}
		if msg := firstMessage(value); msg != "" {
			fields[key] = msg
		}
	}

	err := errors.Validation(fields)
	if detail != "" && len(fields) == 0 {
		err.Details = detail
	}
	return err
}

func firstMessage(value json.RawMessage) string {
	var list []string
	if json.Unmarshal(value, &list) == nil && len(list) > 0 {
		return list[0]
	}
	var s string
	if json.Unmarshal(value, &s) == nil {
		return s
	}
	return ""
}

func logRequest(provider, method, path string, params url.Values) {
	if len(params) > 0 {
		logger.Debug("[%s] %s %s params=%v", provider, method, path, params)
	} else {
		logger.Debug("[%s] %s %s", provider, method, path)
	}
}

func logResponse(provider string, statusCode int, duration time.Duration) {
	logger.Debug("[%s] response status=%d duration=%dms", provider, statusCode, duration.Milliseconds())
}

func logError(provider, operation string, err error) {
	logger.Error("[%s] %s error: %v", provider, operation, err)
}
