package services

import (
	"context"
	"net/http"

	"mapquester/utils/errors"
)

// Login exchanges a username and password for tokens and signs the session in.
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	body, err := jsonPayload(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	var tokens TokenPair
	if err := c.do(ctx, http.MethodPost, "/users/login/", nil, body, &tokens); err != nil {
		return err
	}
	if tokens.Access == "" {
		return errors.Transport(errors.New("login response carried no access token"), http.StatusOK)
	}
	userID := tokens.UserID
	if userID == "" {
		userID = UserIDFromToken(tokens.Access)
	}
	return c.session.SignIn(ctx, Credentials{
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		UserID:       userID,
	})
}

// Signup registers a new account. It does not sign in.
func (c *APIClient) Signup(ctx context.Context, username, email, password string) error {
	body, err := jsonPayload(map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/users/signup/", nil, body, nil)
}

// Logout clears the stored credentials.
func (c *APIClient) Logout(ctx context.Context) {
	c.session.SignOut(ctx)
}
