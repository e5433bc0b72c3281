package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra/supabase"
	"inos/internal/models/state_models"
	"inos/internal/store"
	mem "inos/pkg/memcache"
	"inos/pkg/utils"
)

type fakeAuthBackend struct {
	signUp     *supabase.SignUpResult
	session    *supabase.Session
	err        error
	signOutErr error

	signedOut []string
	otpSent   []string
	onSignOut func()
}

func (f *fakeAuthBackend) SignUp(context.Context, string, string, string) (*supabase.SignUpResult, error) {
	return f.signUp, f.err
}

func (f *fakeAuthBackend) SignInWithPassword(context.Context, string, string) (*supabase.Session, error) {
	return f.session, f.err
}

func (f *fakeAuthBackend) SignOut(_ context.Context, token string) error {
	if f.onSignOut != nil {
		f.onSignOut()
	}
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func (f *fakeAuthBackend) SendOTP(_ context.Context, email string) error {
	f.otpSent = append(f.otpSent, email)
	return f.err
}

func (f *fakeAuthBackend) VerifyOTP(context.Context, string, string) (*supabase.Session, error) {
	return f.session, f.err
}

// restoreRecorder only implements ScheduleRestore; any other call panics.
type restoreRecorder struct {
	SyncServiceInterface
	restores int
}

func (r *restoreRecorder) ScheduleRestore(context.Context) { r.restores++ }

type capturedMail struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (c *capturedMail) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.codes == nil {
		c.codes = map[string]string{}
	}
	c.codes[to] = code
	return nil
}

type authFixture struct {
	auth     *AuthService
	backend  *fakeAuthBackend
	sessions *SessionService
	store    *store.Store
	sync     *restoreRecorder
	mail     *capturedMail
}

func newAuthFixture(t *testing.T, withBackend bool) *authFixture {
	t.Helper()
	f := &authFixture{sync: &restoreRecorder{}, mail: &capturedMail{}}

	f.store = store.New(store.NewMemoryStorage())
	require.NoError(t, f.store.Hydrate(context.Background()))
	f.sessions = newTestSessions(t, store.NewMemoryStorage(), nil, testJWTSecret)

	otp := NewOtpService(mem.NewOTPCodes(), f.mail, config.OTPConfig{Length: 6, TTL: 10 * time.Minute}, zap.NewNop())

	var backend AuthBackend
	if withBackend {
		f.backend = &fakeAuthBackend{}
		backend = f.backend
	}
	f.auth = NewAuthService(backend, otp, f.sessions, f.store, f.sync, zap.NewNop())
	return f
}

func authMessage(t *testing.T, err error) string {
	t.Helper()
	var authErr *utils.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	return authErr.Message
}

func TestAuthLocalValidation(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()

	_, err := f.auth.SignIn(ctx, " ", "secret1")
	assert.Equal(t, msgFillAllFields, authMessage(t, err))

	_, err = f.auth.SignUp(ctx, "a@b.fr", "secret1", "  ")
	assert.Equal(t, msgNameRequired, authMessage(t, err))

	_, err = f.auth.SignIn(ctx, "a@b.fr", "12345")
	assert.Equal(t, msgPasswordTooWeak, authMessage(t, err))

	err = f.auth.RequestOTP(ctx, "")
	assert.Equal(t, msgEmailRequired, authMessage(t, err))
}

func TestAuthTranslatesBackendErrors(t *testing.T) {
	cases := []struct {
		backend string
		want    string
	}{
		{"Invalid login credentials", msgBadCredentials},
		{"User already registered", msgEmailTaken},
		{"Email not confirmed", msgConfirmEmail},
		{"Password should be at least 6 characters.", msgPasswordTooWeak},
		{"Signups not allowed for this instance", "Signups not allowed for this instance"},
	}

	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			f := newAuthFixture(t, true)
			f.backend.err = &supabase.APIError{Status: 400, Message: tc.backend}

			_, err := f.auth.SignIn(context.Background(), "a@b.fr", "secret1")
			assert.Equal(t, tc.want, authMessage(t, err))
		})
	}

	assert.Equal(t, msgAuthUnavailable, authMessage(t, translateAuthError(supabase.ErrNotConfigured)))
	assert.Equal(t, msgUnknownError, authMessage(t, translateAuthError(errors.New("EOF"))))
}

func TestSignInEstablishesSession(t *testing.T) {
	f := newAuthFixture(t, true)
	f.backend.session = remoteSession(t, time.Hour, testJWTSecret)

	res, err := f.auth.SignIn(context.Background(), " marie@example.fr ", "secret1")
	require.NoError(t, err)

	require.NotNil(t, res.Session)
	assert.Equal(t, testUserID.String(), res.User.ID)
	assert.Equal(t, 1, f.sync.restores)
	_, ok := f.sessions.Active()
	assert.True(t, ok)
}

func TestSignUpPendingConfirmation(t *testing.T) {
	f := newAuthFixture(t, true)
	f.backend.signUp = &supabase.SignUpResult{User: supabase.AuthUser{ID: "new-user", Email: "a@b.fr"}}

	res, err := f.auth.SignUp(context.Background(), "a@b.fr", "secret1", "Camille")
	require.NoError(t, err)

	assert.True(t, res.ConfirmationRequired)
	assert.Nil(t, res.Session)
	assert.Zero(t, f.sync.restores)
	_, ok := f.sessions.Current()
	assert.False(t, ok)
}

func TestPasswordAuthWithoutBackend(t *testing.T) {
	f := newAuthFixture(t, false)

	_, err := f.auth.SignIn(context.Background(), "a@b.fr", "secret1")
	assert.Equal(t, msgAuthUnavailable, authMessage(t, err))
}

func TestSignOutClearsLocalStateFirst(t *testing.T) {
	f := newAuthFixture(t, true)
	f.backend.session = remoteSession(t, time.Hour, testJWTSecret)
	f.backend.signOutErr = &supabase.APIError{Status: 403, Message: "invalid JWT"}
	_, err := f.auth.SignIn(context.Background(), "marie@example.fr", "secret1")
	require.NoError(t, err)

	f.store.SetUser(&state_models.UserProfile{ID: testUserID.String(), Name: "Marie"})
	f.store.SetSubscription(state_models.Subscription{IsActive: true, Plan: state_models.PlanMonthly})
	f.backend.onSignOut = func() {
		_, active := f.sessions.Current()
		assert.False(t, active, "session dropped before the remote call")
		assert.Nil(t, f.store.User())
	}

	require.NoError(t, f.auth.SignOut(context.Background()))

	assert.Nil(t, f.store.User())
	assert.False(t, f.store.Subscription().IsActive)
	assert.Len(t, f.backend.signedOut, 1)
	_, ok := f.sessions.Current()
	assert.False(t, ok)
}

func TestLocalOTPFlow(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "Marie@Example.fr"))
	code := f.mail.codes["Marie@Example.fr"]
	require.Len(t, code, 6)

	_, err := f.auth.VerifyOTP(ctx, "marie@example.fr", "not-it")
	assert.ErrorIs(t, err, utils.ErrInvalidOTP)

	res, err := f.auth.VerifyOTP(ctx, "marie@example.fr", code)
	require.NoError(t, err)
	assert.Equal(t, LocalUserID("marie@example.fr"), res.User.ID)
	assert.Equal(t, LocalUserID("MARIE@example.fr"), res.User.ID)
	assert.Equal(t, 1, f.sync.restores)

	active, ok := f.sessions.Active()
	require.True(t, ok)
	assert.Equal(t, "marie@example.fr", active.Email)

	_, err = f.auth.VerifyOTP(ctx, "marie@example.fr", code)
	assert.ErrorIs(t, err, utils.ErrInvalidOTP, "codes are single use")
}

func TestLocalOTPMailFailure(t *testing.T) {
	f := newAuthFixture(t, false)
	f.mail.err = errors.Join(utils.ErrMailDelivery, errors.New("Clé API Resend invalide"))

	err := f.auth.RequestOTP(context.Background(), "a@b.fr")
	assert.ErrorIs(t, err, utils.ErrMailDelivery)

	_, err = f.auth.VerifyOTP(context.Background(), "a@b.fr", "123456")
	assert.ErrorIs(t, err, utils.ErrInvalidOTP)
}

func TestHostedOTP(t *testing.T) {
	f := newAuthFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.auth.RequestOTP(ctx, "a@b.fr"))
	assert.Equal(t, []string{"a@b.fr"}, f.backend.otpSent)
	assert.Empty(t, f.mail.codes, "hosted auth sends its own e-mail")

	f.backend.err = &supabase.APIError{Status: 403, Message: "Token has expired or is invalid"}
	_, err := f.auth.VerifyOTP(ctx, "a@b.fr", "000000")
	assert.ErrorIs(t, err, utils.ErrInvalidOTP)

	f.backend.err = nil
	f.backend.session = remoteSession(t, time.Hour, testJWTSecret)
	res, err := f.auth.VerifyOTP(ctx, "a@b.fr", "123456")
	require.NoError(t, err)
	assert.NotNil(t, res.Session)
}

func TestResume(t *testing.T) {
	f := newAuthFixture(t, true)

	_, err := f.auth.Resume(context.Background())
	assert.ErrorIs(t, err, utils.ErrNotAuthenticated)

	f.backend.session = remoteSession(t, time.Hour, testJWTSecret)
	_, err = f.auth.SignIn(context.Background(), "marie@example.fr", "secret1")
	require.NoError(t, err)

	sess, err := f.auth.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testUserID.String(), sess.User.ID)
}
