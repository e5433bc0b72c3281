package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra/supabase"
	"inos/internal/models/state_models"
	"inos/internal/store"
	"inos/pkg/utils"
)

const testJWTSecret = "super-secret-jwt-token-with-at-least-32-characters"

type fakeRefresher struct {
	calls int
	next  *supabase.Session
	err   error
}

func (f *fakeRefresher) RefreshSession(_ context.Context, refreshToken string) (*supabase.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{Key: "inos-session", RefreshSchedule: "@every 1m", RefreshMargin: 5 * time.Minute}
}

func newTestSessions(t *testing.T, storage store.Storage, refresher TokenRefresher, secret string) *SessionService {
	t.Helper()
	s, err := NewSessionService(storage, refresher, sessionConfig(), secret, zap.NewNop())
	require.NoError(t, err)
	return s
}

func remoteSession(t *testing.T, ttl time.Duration, secret string) *supabase.Session {
	t.Helper()
	token, err := utils.CreateToken(testUserID.String(), "marie@example.fr", "authenticated", ttl, []byte(secret))
	require.NoError(t, err)
	return &supabase.Session{
		AccessToken:  token,
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
		User:         supabase.AuthUser{ID: testUserID.String(), Email: "marie@example.fr"},
	}
}

func TestEstablishReadsExpiryFromToken(t *testing.T) {
	storage := store.NewMemoryStorage()
	s := newTestSessions(t, storage, nil, testJWTSecret)

	sess, err := s.Establish(context.Background(), remoteSession(t, 20*time.Minute, testJWTSecret))
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(20*time.Minute), sess.ExpiresAt, 2*time.Second)
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, testUserID.String(), active.UserID)
	assert.Equal(t, sess.AccessToken, active.AccessToken)

	raw, err := storage.Load(context.Background(), "inos-session")
	require.NoError(t, err)
	var saved state_models.Session
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestEstablishRejectsForeignSignature(t *testing.T) {
	s := newTestSessions(t, store.NewMemoryStorage(), nil, testJWTSecret)

	_, err := s.Establish(context.Background(), remoteSession(t, time.Hour, "another-secret-another-secret-000"))
	assert.Error(t, err)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestRestoreAcrossInstances(t *testing.T) {
	storage := store.NewMemoryStorage()
	first := newTestSessions(t, storage, nil, "")
	minted, err := first.MintLocal(context.Background(), testUserID.String(), "marie@example.fr")
	require.NoError(t, err)

	second := newTestSessions(t, storage, nil, "")
	require.NoError(t, second.Restore(context.Background()))

	cur, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, minted.AccessToken, cur.AccessToken)
	id, ok := second.CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, testUserID.String(), id)
}

func TestRestoreDropsDeadSessions(t *testing.T) {
	cases := map[string]func(t *testing.T) []byte{
		"corrupt": func(*testing.T) []byte { return []byte(`{"accessToken":`) },
		"not a jwt": func(*testing.T) []byte {
			raw, _ := json.Marshal(state_models.Session{AccessToken: "opaque", User: state_models.SessionUser{ID: "u"}})
			return raw
		},
		"expired without refresh token": func(t *testing.T) []byte {
			token, err := utils.CreateToken("u", "a@b.fr", "authenticated", -time.Minute, []byte(testJWTSecret))
			require.NoError(t, err)
			raw, _ := json.Marshal(state_models.Session{AccessToken: token, User: state_models.SessionUser{ID: "u"}})
			return raw
		},
	}

	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			storage := store.NewMemoryStorage()
			require.NoError(t, storage.Save(context.Background(), "inos-session", blob(t)))

			s := newTestSessions(t, storage, nil, testJWTSecret)
			require.NoError(t, s.Restore(context.Background()))

			_, ok := s.Current()
			assert.False(t, ok)
			assert.False(t, storage.Has("inos-session"))
		})
	}
}

func TestRestoreKeepsExpiredSessionWithRefreshToken(t *testing.T) {
	storage := store.NewMemoryStorage()
	token, err := utils.CreateToken(testUserID.String(), "a@b.fr", "authenticated", -time.Minute, []byte(testJWTSecret))
	require.NoError(t, err)
	raw, _ := json.Marshal(state_models.Session{AccessToken: token, RefreshToken: "r", User: state_models.SessionUser{ID: testUserID.String()}})
	require.NoError(t, storage.Save(context.Background(), "inos-session", raw))

	s := newTestSessions(t, storage, nil, testJWTSecret)
	require.NoError(t, s.Restore(context.Background()))

	_, ok := s.Current()
	assert.True(t, ok)
	_, active := s.Active()
	assert.False(t, active, "an expired token is not used for remote calls")
}

func TestRefreshWithinMargin(t *testing.T) {
	refresher := &fakeRefresher{}
	s := newTestSessions(t, store.NewMemoryStorage(), refresher, testJWTSecret)
	_, err := s.Establish(context.Background(), remoteSession(t, 30*time.Minute, testJWTSecret))
	require.NoError(t, err)

	require.NoError(t, s.Refresh(context.Background(), false))
	assert.Zero(t, refresher.calls, "token still far from expiry")

	refresher.next = remoteSession(t, time.Hour, testJWTSecret)
	refresher.next.RefreshToken = "refresh-2"
	refresher.next.User = supabase.AuthUser{}
	require.NoError(t, s.Refresh(context.Background(), true))
	assert.Equal(t, 1, refresher.calls)

	cur, _ := s.Current()
	assert.Equal(t, "refresh-2", cur.RefreshToken)
	assert.Equal(t, testUserID.String(), cur.User.ID, "user carried over when the refresh answer omits it")
}

func TestRefreshNearExpiry(t *testing.T) {
	refresher := &fakeRefresher{}
	s := newTestSessions(t, store.NewMemoryStorage(), refresher, testJWTSecret)
	_, err := s.Establish(context.Background(), remoteSession(t, 2*time.Minute, testJWTSecret))
	require.NoError(t, err)

	refresher.next = remoteSession(t, time.Hour, testJWTSecret)
	require.NoError(t, s.Refresh(context.Background(), false))
	assert.Equal(t, 1, refresher.calls)

	cur, _ := s.Current()
	assert.WithinDuration(t, time.Now().Add(time.Hour), cur.ExpiresAt, 2*time.Second)
}

func TestRefreshRejectedClearsSession(t *testing.T) {
	storage := store.NewMemoryStorage()
	refresher := &fakeRefresher{err: &supabase.APIError{Status: 400, Message: "Invalid Refresh Token: Refresh Token Not Found"}}
	s := newTestSessions(t, storage, refresher, testJWTSecret)
	_, err := s.Establish(context.Background(), remoteSession(t, time.Minute, testJWTSecret))
	require.NoError(t, err)

	err = s.Refresh(context.Background(), false)
	assert.ErrorIs(t, err, utils.ErrNotAuthenticated)
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, storage.Has("inos-session"))
}

func TestRefreshTransientFailureKeepsSession(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("dial tcp: i/o timeout")}
	s := newTestSessions(t, store.NewMemoryStorage(), refresher, testJWTSecret)
	_, err := s.Establish(context.Background(), remoteSession(t, time.Minute, testJWTSecret))
	require.NoError(t, err)

	assert.Error(t, s.Refresh(context.Background(), false))
	_, ok := s.Current()
	assert.True(t, ok)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := sessionConfig()
	cfg.RefreshSchedule = "every now and then"
	s, err := NewSessionService(store.NewMemoryStorage(), nil, cfg, "", zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, s.Start())
	s.Stop()
}
