package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra/supabase"
	"inos/internal/models/state_models"
	"inos/internal/store"
	"inos/pkg/utils"
)

const localSessionTTL = 7 * 24 * time.Hour

// TokenRefresher trades a refresh token for a new session.
type TokenRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

type SessionServiceInterface interface {
	SessionReader
	Current() (state_models.Session, bool)
	CurrentUserID() (string, bool)
	Establish(ctx context.Context, remote *supabase.Session) (state_models.Session, error)
	MintLocal(ctx context.Context, userID, email string) (state_models.Session, error)
	Clear(ctx context.Context) error
	Restore(ctx context.Context) error
	Refresh(ctx context.Context, force bool) error
}

// SessionService keeps the signed-in session in memory and in the storage port.
type SessionService struct {
	storage   store.Storage
	refresher TokenRefresher
	cfg       config.SessionConfig
	verifyKey []byte
	mintKey   []byte
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	current *state_models.Session

	cron *cron.Cron
}

// NewSessionService builds the session holder. refresher may be nil when no hosted
// auth is configured; jwtSecret may be empty, in which case token signatures are
// not verified and local sessions are signed with a per-process key.
func NewSessionService(
	storage store.Storage,
	refresher TokenRefresher,
	cfg config.SessionConfig,
	jwtSecret string,
	logger *zap.Logger,
) (*SessionService, error) {
	s := &SessionService{
		storage:   storage,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger.Named("session"),
		now:       time.Now,
	}
	if jwtSecret != "" {
		s.verifyKey = []byte(jwtSecret)
		s.mintKey = s.verifyKey
	} else {
		s.mintKey = make([]byte, 32)
		if _, err := rand.Read(s.mintKey); err != nil {
			return nil, fmt.Errorf("session signing key: %w", err)
		}
	}
	return s, nil
}

func (s *SessionService) Current() (state_models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return state_models.Session{}, false
	}
	return *s.current, true
}

// Active returns the session only while its access token is unexpired.
func (s *SessionService) Active() (ActiveSession, bool) {
	cur, ok := s.Current()
	if !ok || !cur.ValidAt(s.now()) {
		return ActiveSession{}, false
	}
	return ActiveSession{UserID: cur.User.ID, Email: cur.User.Email, AccessToken: cur.AccessToken}, true
}

func (s *SessionService) CurrentUserID() (string, bool) {
	a, ok := s.Active()
	return a.UserID, ok
}

// Establish stores a session returned by the hosted auth service.
func (s *SessionService) Establish(ctx context.Context, remote *supabase.Session) (state_models.Session, error) {
	if remote == nil || remote.AccessToken == "" {
		return state_models.Session{}, errors.New("establish session: empty access token")
	}

	expiresAt, err := utils.TokenExpiry(remote.AccessToken, s.verifyKey)
	if err != nil {
		return state_models.Session{}, fmt.Errorf("establish session: %w", err)
	}
	if expiresAt.IsZero() {
		expiresAt = remote.Expiry(s.now())
	}

	user := state_models.SessionUser{ID: remote.User.ID, Email: remote.User.Email}
	if user.ID == "" {
		if prev, ok := s.Current(); ok {
			user = prev.User
		}
	}

	next := state_models.Session{
		AccessToken:  remote.AccessToken,
		RefreshToken: remote.RefreshToken,
		ExpiresAt:    expiresAt.UTC(),
		User:         user,
	}
	s.set(ctx, next)
	return next, nil
}

// MintLocal signs a session for a user authenticated by this service itself.
func (s *SessionService) MintLocal(ctx context.Context, userID, email string) (state_models.Session, error) {
	token, err := utils.CreateToken(userID, email, "authenticated", localSessionTTL, s.mintKey)
	if err != nil {
		return state_models.Session{}, fmt.Errorf("mint session: %w", err)
	}
	next := state_models.Session{
		AccessToken: token,
		ExpiresAt:   s.now().Add(localSessionTTL).UTC(),
		User:        state_models.SessionUser{ID: userID, Email: email},
	}
	s.set(ctx, next)
	return next, nil
}

func (s *SessionService) set(ctx context.Context, next state_models.Session) {
	s.mu.Lock()
	s.current = &next
	s.mu.Unlock()

	raw, err := json.Marshal(next)
	if err == nil {
		err = s.storage.Save(ctx, s.cfg.Key, raw)
	}
	if err != nil {
		s.logger.Warn("session not persisted", zap.Error(err))
	}
}

// Clear forgets the session in memory and in storage.
func (s *SessionService) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.cfg.Key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Restore reloads the persisted session at boot. Unreadable, forged or dead sessions are dropped.
func (s *SessionService) Restore(ctx context.Context) error {
	raw, err := s.storage.Load(ctx, s.cfg.Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("session unreadable, dropping", zap.Error(err))
		return s.Clear(ctx)
	}

	var saved state_models.Session
	if err := json.Unmarshal(raw, &saved); err != nil || saved.AccessToken == "" {
		s.logger.Warn("session corrupt, dropping", zap.Error(err))
		return s.Clear(ctx)
	}

	expiresAt, err := utils.TokenExpiry(saved.AccessToken, s.verifyKey)
	if err != nil {
		s.logger.Warn("session token rejected, dropping", zap.Error(err))
		return s.Clear(ctx)
	}
	if !expiresAt.IsZero() {
		saved.ExpiresAt = expiresAt.UTC()
	}
	if !saved.ExpiresAt.After(s.now()) && saved.RefreshToken == "" {
		s.logger.Info("session expired, dropping", zap.String("user_id", saved.User.ID))
		return s.Clear(ctx)
	}

	s.mu.Lock()
	s.current = &saved
	s.mu.Unlock()
	s.logger.Info("session restored", zap.String("user_id", saved.User.ID), zap.Time("expires_at", saved.ExpiresAt))
	return nil
}

// Refresh renews the session when it expires within the configured margin, or
// unconditionally when force is set. A refresh token the backend rejects ends the session.
func (s *SessionService) Refresh(ctx context.Context, force bool) error {
	cur, ok := s.Current()
	if !ok || cur.RefreshToken == "" || s.refresher == nil {
		return nil
	}
	if !force && cur.ExpiresAt.Sub(s.now()) > s.cfg.RefreshMargin {
		return nil
	}

	next, err := s.refresher.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			s.logger.Info("refresh token rejected, clearing session", zap.String("user_id", cur.User.ID))
			return errors.Join(utils.ErrNotAuthenticated, s.Clear(ctx))
		}
		return fmt.Errorf("refresh session: %w", err)
	}

	if _, err := s.Establish(ctx, next); err != nil {
		return err
	}
	s.logger.Debug("session refreshed", zap.String("user_id", cur.User.ID))
	return nil
}

// Start schedules the background refresh job.
func (s *SessionService) Start() error {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.RefreshSchedule, func() {
		if err := s.Refresh(context.Background(), false); err != nil {
			s.logger.Warn("scheduled refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule session refresh: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

func (s *SessionService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
