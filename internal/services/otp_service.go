package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"inos/internal/config"
	mem "inos/pkg/memcache"
	"inos/pkg/utils"
)

type OtpServiceInterface interface {
	Send(ctx context.Context, email string) error
	Verify(email, code string) error
}

// OtpService issues single-use e-mail codes. Only a bcrypt hash of a code is kept.
type OtpService struct {
	codes  mem.CodeStore
	mail   IMailService
	cfg    config.OTPConfig
	logger *zap.Logger
}

func NewOtpService(codes mem.CodeStore, mail IMailService, cfg config.OTPConfig, logger *zap.Logger) *OtpService {
	return &OtpService{codes: codes, mail: mail, cfg: cfg, logger: logger.Named("otp")}
}

func (o *OtpService) Send(ctx context.Context, email string) error {
	code, err := utils.GenerateOtpCode(o.cfg.Length)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}

	o.codes.Set(email, hash, o.cfg.TTL)
	if err := o.mail.SendOTP(ctx, email, code, o.cfg.TTL); err != nil {
		o.codes.Delete(email)
		return err
	}
	return nil
}

// Verify consumes the pending code for email when code matches it.
func (o *OtpService) Verify(email, code string) error {
	hash, ok := o.codes.Peek(email)
	if !ok {
		return utils.ErrInvalidOTP
	}
	if err := utils.CompareSecret(hash, code); err != nil {
		o.logger.Debug("otp mismatch", zap.String("email", email))
		return utils.ErrInvalidOTP
	}
	o.codes.Delete(email)
	return nil
}
