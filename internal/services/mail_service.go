package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"inos/internal/config"
	"inos/pkg/utils"
)

type IMailService interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

// NewMailService picks the configured provider. Without one, codes are only logged.
func NewMailService(cfg config.MailConfig, appName string, logger *zap.Logger) IMailService {
	logger = logger.Named("mail")
	switch {
	case cfg.Provider == "resend" && cfg.ResendAPIKey != "":
		return NewResendMailService(cfg, appName, logger)
	case cfg.Provider == "smtp" && cfg.SMTPHost != "":
		return NewSMTPMailService(cfg, appName, logger)
	default:
		logger.Warn("no mail provider configured, OTP codes will be logged")
		return &logMailService{logger: logger}
	}
}

type EmailData struct {
	Title   string
	Intro   string
	Code    string
	Minutes int
	AppName string
	Year    int
}

func otpEmailData(appName, code string, ttl time.Duration) EmailData {
	return EmailData{
		Title:   "Votre code de vérification",
		Intro:   "Voici votre code de vérification :",
		Code:    code,
		Minutes: int(ttl.Minutes()),
		AppName: appName,
		Year:    time.Now().Year(),
	}
}

func otpSubject(appName, code string) string {
	return fmt.Sprintf("%s - Votre code de vérification %s", code, appName)
}

const otpHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background-color:#0A0A0B;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color:#0A0A0B;padding:40px 20px;">
    <tr>
      <td align="center">
        <table width="100%" style="max-width:400px;background-color:#141416;border-radius:24px;border:1px solid #2A2A2E;overflow:hidden;">
          <tr>
            <td style="padding:40px 30px 20px;text-align:center;">
              <h1 style="margin:0;font-size:24px;font-weight:600;color:#FFFFFF;letter-spacing:4px;">{{.AppName}}</h1>
              <p style="margin:8px 0 0;font-size:12px;color:#C9A86C;letter-spacing:2px;">SKIN INTELLIGENCE</p>
            </td>
          </tr>
          <tr>
            <td style="padding:20px 30px 40px;">
              <p style="margin:0 0 24px;font-size:16px;color:#888888;text-align:center;line-height:1.5;">{{.Intro}}</p>
              <div style="background-color:#1A1A1E;border:2px solid #C9A86C;border-radius:16px;padding:24px;text-align:center;margin-bottom:24px;">
                <span style="font-size:36px;font-weight:bold;color:#C9A86C;letter-spacing:8px;">{{.Code}}</span>
              </div>
              <p style="margin:0;font-size:14px;color:#666666;text-align:center;line-height:1.5;">Ce code expire dans {{.Minutes}} minutes.</p>
            </td>
          </tr>
          <tr>
            <td style="padding:20px 30px;background-color:#0A0A0B;border-top:1px solid #2A2A2E;">
              <p style="margin:0;font-size:12px;color:#444444;text-align:center;">© {{.Year}} {{.AppName}} - Skin Intelligence</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const otpTextTemplate = `Votre code de vérification {{.AppName}} est : {{.Code}}. Ce code expire dans {{.Minutes}} minutes.
`

var (
	otpHTML = htmltemplate.Must(htmltemplate.New("otpHTML").Parse(otpHTMLTemplate))
	otpText = texttemplate.Must(texttemplate.New("otpText").Parse(otpTextTemplate))
)

func renderEmail(data EmailData) (html string, text string, err error) {
	var hb, tb bytes.Buffer
	if err = otpHTML.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err = otpText.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

// logMailService is the mock provider.
type logMailService struct {
	logger *zap.Logger
}

func (l *logMailService) SendOTP(_ context.Context, to, code string, ttl time.Duration) error {
	l.logger.Info("mock OTP e-mail", zap.String("to", to), zap.String("code", code), zap.Duration("ttl", ttl))
	return nil
}

type smtpMailService struct {
	cfg     config.MailConfig
	appName string
	logger  *zap.Logger
}

func NewSMTPMailService(cfg config.MailConfig, appName string, logger *zap.Logger) IMailService {
	return &smtpMailService{cfg: cfg, appName: appName, logger: logger}
}

func (s *smtpMailService) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	html, text, err := renderEmail(otpEmailData(s.appName, code, ttl))
	if err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}
	if err := s.send(ctx, to, otpSubject(s.appName, code), html, text); err != nil {
		s.logger.Error("smtp delivery failed", zap.String("to", to), zap.Error(err))
		return errors.Join(utils.ErrMailDelivery, err)
	}
	return nil
}

func (s *smtpMailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	boundary := fmt.Sprintf("mixed_%d", time.Now().UnixNano())

	var msg bytes.Buffer
	write := func(format string, a ...any) { _, _ = fmt.Fprintf(&msg, format, a...) }

	write("From: %s\r\n", s.fromHeader())
	write("To: %s\r\n", to)
	write("Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	write("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	write("MIME-Version: 1.0\r\n")
	write("Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	write("\r\n")

	write("--%s\r\n", boundary)
	write("Content-Type: text/plain; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 8bit\r\n\r\n")
	write("%s\r\n\r\n", textBody)

	write("--%s\r\n", boundary)
	write("Content-Type: text/html; charset=UTF-8\r\n")
	write("Content-Transfer-Encoding: 8bit\r\n\r\n")
	write("%s\r\n\r\n", htmlBody)

	write("--%s--\r\n", boundary)

	addr := net.JoinHostPort(s.cfg.SMTPHost, fmt.Sprint(s.cfg.SMTPPort))
	tlsCfg := &tls.Config{ServerName: s.cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if s.cfg.SMTPUseSSL {
		// implicit TLS, usually port 465
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer c.Quit()

	if !s.cfg.SMTPUseSSL {
		ok, _ := c.Extension("STARTTLS")
		if !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err = c.StartTLS(tlsCfg); err != nil {
			return err
		}
	}

	if s.cfg.SMTPUsername != "" {
		if err = c.Auth(smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)); err != nil {
			return err
		}
	}
	if err = c.Mail(s.envelopeFrom()); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg.Bytes()); err != nil {
		return err
	}
	return w.Close()
}

// envelopeFrom strips a display name from cfg.From ("INOS <a@b>" -> "a@b").
func (s *smtpMailService) envelopeFrom() string {
	from := strings.TrimSpace(s.cfg.From)
	if i := strings.LastIndex(from, "<"); i >= 0 {
		return strings.TrimSuffix(from[i+1:], ">")
	}
	return from
}

func (s *smtpMailService) fromHeader() string {
	name := strings.TrimSpace(s.cfg.FromName)
	if name == "" {
		return s.cfg.From
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", name), s.envelopeFrom())
}
