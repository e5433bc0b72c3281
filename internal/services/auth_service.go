package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inos/internal/infra/supabase"
	"inos/internal/models/state_models"
	"inos/internal/store"
	"inos/pkg/utils"
)

const minPasswordLength = 6

const (
	msgFillAllFields   = "Veuillez remplir tous les champs"
	msgNameRequired    = "Veuillez entrer votre nom"
	msgEmailRequired   = "Veuillez entrer votre email"
	msgPasswordTooWeak = "Le mot de passe doit contenir au moins 6 caractères"
	msgBadCredentials  = "Email ou mot de passe incorrect"
	msgEmailTaken      = "Cet email est déjà utilisé"
	msgConfirmEmail    = "Veuillez confirmer votre email"
	msgAuthUnavailable = "Service d'authentification non configuré"
	msgUnknownError    = "Une erreur est survenue"
)

// AuthBackend is the hosted auth service. *supabase.Client implements it.
type AuthBackend interface {
	SignUp(ctx context.Context, email, password, name string) (*supabase.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, token string) (*supabase.Session, error)
}

type AuthResult struct {
	Session              *state_models.Session    `json:"session,omitempty"`
	User                 state_models.SessionUser `json:"user"`
	ConfirmationRequired bool                     `json:"confirmationRequired"`
}

type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, name string) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignOut(ctx context.Context) error
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
	Resume(ctx context.Context) (state_models.Session, error)
}

type AuthService struct {
	backend  AuthBackend
	otp      OtpServiceInterface
	sessions SessionServiceInterface
	store    *store.Store
	sync     SyncServiceInterface
	logger   *zap.Logger
}

// NewAuthService wires the auth flows. backend may be nil: password auth is then
// unavailable and OTP codes are issued and checked by this service.
func NewAuthService(
	backend AuthBackend,
	otp OtpServiceInterface,
	sessions SessionServiceInterface,
	st *store.Store,
	coordinator SyncServiceInterface,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		backend:  backend,
		otp:      otp,
		sessions: sessions,
		store:    st,
		sync:     coordinator,
		logger:   logger.Named("auth"),
	}
}

// LocalUserID derives a stable user id from an e-mail address for locally issued sessions.
func LocalUserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return &utils.AuthError{Message: msgFillAllFields}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &utils.AuthError{Message: msgPasswordTooWeak}
	}
	return nil
}

// translateAuthError turns backend failures into messages shown to the user.
func translateAuthError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, supabase.ErrNotConfigured) {
		return &utils.AuthError{Message: msgAuthUnavailable, Err: err}
	}

	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) {
		return &utils.AuthError{Message: msgUnknownError, Err: err}
	}

	msg := apiErr.Message
	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		msg = msgBadCredentials
	case strings.Contains(msg, "User already registered"):
		msg = msgEmailTaken
	case strings.Contains(msg, "Email not confirmed"):
		msg = msgConfirmEmail
	case strings.Contains(msg, "Password should be"):
		msg = msgPasswordTooWeak
	case msg == "":
		msg = msgUnknownError
	}
	return &utils.AuthError{Message: msg, Err: err}
}

func (a *AuthService) SignUp(ctx context.Context, email, password, name string) (*AuthResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, &utils.AuthError{Message: msgNameRequired}
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if a.backend == nil {
		return nil, &utils.AuthError{Message: msgAuthUnavailable}
	}

	res, err := a.backend.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(name))
	if err != nil {
		return nil, translateAuthError(err)
	}
	if res.Session == nil {
		a.logger.Info("sign-up pending confirmation", zap.String("user_id", res.User.ID))
		return &AuthResult{
			User:                 state_models.SessionUser{ID: res.User.ID, Email: res.User.Email},
			ConfirmationRequired: true,
		}, nil
	}
	return a.signedIn(ctx, res.Session)
}

func (a *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if a.backend == nil {
		return nil, &utils.AuthError{Message: msgAuthUnavailable}
	}

	remote, err := a.backend.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, translateAuthError(err)
	}
	return a.signedIn(ctx, remote)
}

func (a *AuthService) signedIn(ctx context.Context, remote *supabase.Session) (*AuthResult, error) {
	sess, err := a.sessions.Establish(ctx, remote)
	if err != nil {
		return nil, &utils.AuthError{Message: msgUnknownError, Err: err}
	}
	return a.started(ctx, sess), nil
}

func (a *AuthService) started(ctx context.Context, sess state_models.Session) *AuthResult {
	a.logger.Info("signed in", zap.String("user_id", sess.User.ID))
	a.sync.ScheduleRestore(ctx)
	return &AuthResult{Session: &sess, User: sess.User}
}

// SignOut clears local state first; the remote logout is best effort.
func (a *AuthService) SignOut(ctx context.Context) error {
	cur, hadSession := a.sessions.Current()
	// The session goes first: a background restore checks it before writing,
	// so nothing lands in the store after the reset below.
	clearErr := a.sessions.Clear(ctx)
	a.store.Reset()

	if a.backend != nil && hadSession && cur.RefreshToken != "" {
		if err := a.backend.SignOut(ctx, cur.AccessToken); err != nil {
			a.logger.Info("remote sign-out failed, session cleared anyway", zap.Error(err))
		}
	}
	return clearErr
}

func (a *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &utils.AuthError{Message: msgEmailRequired}
	}
	if a.backend != nil {
		return translateAuthError(a.backend.SendOTP(ctx, email))
	}
	return a.otp.Send(ctx, email)
}

func (a *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, &utils.AuthError{Message: msgFillAllFields}
	}

	if a.backend != nil {
		remote, err := a.backend.VerifyOTP(ctx, email, code)
		if err != nil {
			var apiErr *supabase.APIError
			if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
				return nil, errors.Join(utils.ErrInvalidOTP, err)
			}
			return nil, translateAuthError(err)
		}
		return a.signedIn(ctx, remote)
	}

	if err := a.otp.Verify(email, code); err != nil {
		return nil, err
	}
	sess, err := a.sessions.MintLocal(ctx, LocalUserID(email), strings.ToLower(email))
	if err != nil {
		return nil, &utils.AuthError{Message: msgUnknownError, Err: err}
	}
	return a.started(ctx, sess), nil
}

// Resume is called when the client comes back to the foreground.
func (a *AuthService) Resume(ctx context.Context) (state_models.Session, error) {
	if err := a.sessions.Refresh(ctx, false); err != nil {
		a.logger.Warn("resume refresh failed", zap.Error(err))
		if errors.Is(err, utils.ErrNotAuthenticated) {
			return state_models.Session{}, utils.ErrNotAuthenticated
		}
	}
	sess, ok := a.sessions.Current()
	if !ok {
		return state_models.Session{}, utils.ErrNotAuthenticated
	}
	return sess, nil
}
