// Package supabase is a small REST client for the hosted backend: PostgREST
// tables, object storage and the auth service.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var ErrNotConfigured = errors.New("supabase: not configured")

type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Bucket         string
	HTTPClient     *http.Client
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	bucket     string
	http       *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("supabase url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "photos"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		bucket:     bucket,
		http:       httpClient,
	}, nil
}

// AdminConfigured reports whether a service-role key is available for storage writes.
func (c *Client) AdminConfigured() bool {
	return c.serviceKey != ""
}

type accessTokenKey struct{}

// WithAccessToken attaches the signed-in user's token so table calls pass row-level security.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// APIError is a non-2xx answer from any of the backend services.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// parseAPIError reads the message from whichever field the answering service uses.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if gjson.ValidBytes(body) {
		res := gjson.GetManyBytes(body, "msg", "message", "error_description", "error", "error_code", "code")
		for _, r := range res[:4] {
			if r.Type == gjson.String && r.Str != "" {
				apiErr.Message = r.Str
				break
			}
		}
		for _, r := range res[4:] {
			if r.Exists() && r.String() != "" {
				apiErr.Code = r.String()
				break
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

type authMode int

const (
	// authUser sends the context access token, or the anon key when there is none.
	authUser authMode = iota
	// authService prefers the service-role key.
	authService
	authAnon
)

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	headers     map[string]string
	auth        authMode
	token       string
}

func jsonBody(v any) (io.Reader, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(raw), nil
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	bearer := c.anonKey
	switch r.auth {
	case authUser:
		if token := AccessTokenFromContext(ctx); token != "" {
			bearer = token
		}
	case authService:
		if c.serviceKey != "" {
			bearer = c.serviceKey
		} else if token := AccessTokenFromContext(ctx); token != "" {
			bearer = token
		}
	}
	if r.token != "" {
		bearer = r.token
	}

	req.Header.Set("apikey", c.anonKey)
	if r.auth == authService && c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}
