package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/pkg/utils"
)

const resendBaseURL = "https://api.resend.com"

type resendMailService struct {
	apiKey  string
	from    string
	appName string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewResendMailService(cfg config.MailConfig, appName string, logger *zap.Logger) IMailService {
	return &resendMailService{
		apiKey:  cfg.ResendAPIKey,
		from:    cfg.From,
		appName: appName,
		baseURL: resendBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

func (r *resendMailService) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	html, text, err := renderEmail(otpEmailData(r.appName, code, ttl))
	if err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}

	body, err := json.Marshal(resendEmail{
		From:    r.from,
		To:      []string{to},
		Subject: otpSubject(r.appName, code),
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("encode resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return errors.Join(utils.ErrMailDelivery, fmt.Errorf("resend request: %w", err))
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 300 {
		msg := resendErrorMessage(resp.StatusCode, raw)
		r.logger.Error("resend rejected e-mail", zap.Int("status", resp.StatusCode), zap.String("error", msg))
		return errors.Join(utils.ErrMailDelivery, errors.New(msg))
	}

	r.logger.Info("otp e-mail sent", zap.String("to", to), zap.String("id", gjson.GetBytes(raw, "id").String()))
	return nil
}

func resendErrorMessage(status int, body []byte) string {
	res := gjson.ParseBytes(body)
	msg := res.Get("message").String()
	if msg == "" {
		msg = res.Get("error").String()
	}
	code := status
	if sc := res.Get("statusCode"); sc.Exists() {
		code = int(sc.Int())
	}

	switch {
	case code == http.StatusUnauthorized:
		return "Clé API Resend invalide"
	case code == http.StatusUnprocessableEntity && msg == "":
		return "Email invalide"
	case msg != "":
		return msg
	case len(body) > 0:
		return string(body)
	default:
		return "Erreur lors de l'envoi de l'email"
	}
}
