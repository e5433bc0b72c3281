package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inos/internal/config"
	mem "inos/pkg/memcache"
	"inos/pkg/utils"
)

func newTestResend(t *testing.T, handler http.HandlerFunc) *resendMailService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewResendMailService(config.MailConfig{ResendAPIKey: "re_test_123", From: "INOS <onboarding@resend.dev>"}, "INOS", zap.NewNop()).(*resendMailService)
	svc.baseURL = srv.URL
	return svc
}

func TestResendSendsOTP(t *testing.T) {
	var got resendEmail
	svc := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"4ef9a417-02e9-4d39-ad75-9611e0fcc33c"}`))
	})

	require.NoError(t, svc.SendOTP(context.Background(), "marie@example.fr", "482913", 10*time.Minute))

	assert.Equal(t, []string{"marie@example.fr"}, got.To)
	assert.Equal(t, "INOS <onboarding@resend.dev>", got.From)
	assert.Equal(t, "482913 - Votre code de vérification INOS", got.Subject)
	assert.Contains(t, got.HTML, "482913")
	assert.Contains(t, got.HTML, "Ce code expire dans 10 minutes.")
	assert.Contains(t, got.Text, "Votre code de vérification INOS est : 482913")
}

func TestResendErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad key", http.StatusUnauthorized, `{"statusCode":401,"message":"API key is invalid"}`, "Clé API Resend invalide"},
		{"invalid address", http.StatusUnprocessableEntity, `{"statusCode":422,"message":"Invalid ` + "`to`" + ` field."}`, "Invalid `to` field."},
		{"bare 422", http.StatusUnprocessableEntity, `{}`, "Email invalide"},
		{"plain text", http.StatusBadGateway, `upstream down`, "upstream down"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			err := svc.SendOTP(context.Background(), "x@y.fr", "111111", time.Minute)
			assert.ErrorIs(t, err, utils.ErrMailDelivery)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNewMailServiceFallsBackToLog(t *testing.T) {
	svc := NewMailService(config.MailConfig{Provider: "resend"}, "INOS", zap.NewNop())
	_, isLog := svc.(*logMailService)
	assert.True(t, isLog, "resend without an API key is not usable")
	assert.NoError(t, svc.SendOTP(context.Background(), "a@b.fr", "123456", time.Minute))

	_, isSMTP := NewMailService(config.MailConfig{Provider: "smtp", SMTPHost: "smtp.example.fr"}, "INOS", zap.NewNop()).(*smtpMailService)
	assert.True(t, isSMTP)
}

func TestSMTPEnvelopeFrom(t *testing.T) {
	s := &smtpMailService{cfg: config.MailConfig{From: "INOS <no-reply@inos.app>", FromName: "INOS Beauté"}}
	assert.Equal(t, "no-reply@inos.app", s.envelopeFrom())
	assert.Equal(t, "=?UTF-8?q?INOS_Beaut=C3=A9?= <no-reply@inos.app>", s.fromHeader())
}

func TestOtpServiceSingleUse(t *testing.T) {
	mail := &capturedMail{}
	otp := NewOtpService(mem.NewOTPCodes(), mail, config.OTPConfig{Length: 8, TTL: time.Minute}, zap.NewNop())

	require.NoError(t, otp.Send(context.Background(), "a@b.fr"))
	code := mail.codes["a@b.fr"]
	require.Len(t, code, 8)

	require.NoError(t, otp.Verify("A@B.fr", code))
	assert.ErrorIs(t, otp.Verify("a@b.fr", code), utils.ErrInvalidOTP)
}
