package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, AnonKey: "anon-key", ServiceRoleKey: "service-key", Bucket: "photos"})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{URL: "https://x.supabase.co"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSelectSendsUserToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/skin_analyses", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	})

	var rows []map[string]any
	ctx := WithAccessToken(context.Background(), "user-token")
	err := c.Select(ctx, "skin_analyses", url.Values{"user_id": {Eq("u1")}}, &rows)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestInsertAsksForRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pending", body["status"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"o1","status":"pending"}]`))
	})

	var out []map[string]any
	require.NoError(t, c.Insert(context.Background(), "orders", map[string]any{"status": "pending"}, &out))
	assert.Equal(t, "o1", out[0]["id"])
}

func TestErrorBodiesAreParsed(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{"gotrue", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "Invalid login credentials", ""},
		{"gotrue v2", 422, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`, "User already registered", "user_already_exists"},
		{"postgrest", 409, `{"code":"23505","message":"duplicate key value violates unique constraint"}`, "duplicate key value violates unique constraint", "23505"},
		{"plain", 502, `bad gateway`, "bad gateway", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			err := c.Select(context.Background(), "users", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestUploadUsesServiceKeyAndReturnsPublicURL(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0xff, 0xd8}, body)
		_, _ = w.Write([]byte(`{"Key":"photos/u1/analyses/1700000000000.jpg"}`))
	})

	path := PhotoPath("u1", "analyses", time.UnixMilli(1700000000000))
	publicURL, err := c.Upload(context.Background(), path, []byte{0xff, 0xd8}, "")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/photos/u1/analyses/1700000000000.jpg", gotPath)
	assert.Equal(t, c.baseURL+"/storage/v1/object/public/photos/u1/analyses/1700000000000.jpg", publicURL)

	back, ok := c.PathFromPublicURL(publicURL)
	assert.True(t, ok)
	assert.Equal(t, path, back)
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1900000000,"user":{"id":"u1","email":"a@b.c"}}`))
	})

	s, err := c.SignInWithPassword(context.Background(), "a@b.c", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, time.Unix(1900000000, 0), s.Expiry(time.Now()))
}

func TestSignUpPendingConfirmation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"name": "Camille"}, body["data"])
		_, _ = w.Write([]byte(`{"id":"u2","email":"c@d.e","confirmation_sent_at":"2024-01-01T00:00:00Z"}`))
	})

	res, err := c.SignUp(context.Background(), "c@d.e", "secret1", "Camille")
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.Equal(t, "u2", res.User.ID)
}

func TestSignOutSendsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.SignOut(context.Background(), "at"))
}
