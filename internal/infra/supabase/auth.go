package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const authPrefix = "/auth/v1"

type AuthUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

type Session struct {
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

// Expiry returns the absolute expiry, deriving it from ExpiresIn when the server omitted ExpiresAt.
func (s *Session) Expiry(issuedAt time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return issuedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// SignUpResult carries a session when the project auto-confirms e-mails,
// and only the created user when confirmation is pending.
type SignUpResult struct {
	Session *Session
	User    AuthUser
}

func (c *Client) authCall(ctx context.Context, method, path string, query url.Values, payload any, token string, out any) error {
	r := request{method: method, path: authPrefix + path, query: query, auth: authAnon, token: token}
	if payload != nil {
		body, err := jsonBody(payload)
		if err != nil {
			return err
		}
		r.body = body
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(resp) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

func (c *Client) SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"name": nullable(name)},
	}

	var raw struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.authCall(ctx, http.MethodPost, "/signup", nil, payload, "", &raw); err != nil {
		return nil, err
	}

	if raw.AccessToken != "" {
		s := raw.Session
		return &SignUpResult{Session: &s, User: s.User}, nil
	}
	return &SignUpResult{User: AuthUser{ID: raw.ID, Email: raw.Email}}, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	q := url.Values{"grant_type": {"password"}}
	err := c.authCall(ctx, http.MethodPost, "/token", q, map[string]string{"email": email, "password": password}, "", &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	q := url.Values{"grant_type": {"refresh_token"}}
	err := c.authCall(ctx, http.MethodPost, "/token", q, map[string]string{"refresh_token": refreshToken}, "", &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.authCall(ctx, http.MethodPost, "/logout", nil, nil, accessToken, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	var u AuthUser
	if err := c.authCall(ctx, http.MethodGet, "/user", nil, nil, accessToken, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SendOTP asks the auth service to e-mail a one-time code, creating the user if needed.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.authCall(ctx, http.MethodPost, "/otp", nil, map[string]any{"email": email, "create_user": true}, "", nil)
}

func (c *Client) VerifyOTP(ctx context.Context, email, token string) (*Session, error) {
	var s Session
	payload := map[string]string{"type": "email", "email": email, "token": token}
	if err := c.authCall(ctx, http.MethodPost, "/verify", nil, payload, "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
