package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App      AppConfig      `koanf:"app"`
	Log      LogConfig      `koanf:"log"`
	Storage  StorageConfig  `koanf:"storage"`
	Backend  BackendConfig  `koanf:"backend"`
	Analyzer AnalyzerConfig `koanf:"analyzer"`
	Session  SessionConfig  `koanf:"session"`
	Mail     MailConfig     `koanf:"mail"`
	OTP      OTPConfig      `koanf:"otp"`
}

type AppConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Environment string `koanf:"environment"`
	Port        int    `koanf:"port" validate:"min=1,max=65535"`

	// CORSOrigins is a comma separated allow-list. "*" allows any origin without credentials.
	CORSOrigins     string        `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// StorageConfig selects the backend of the local state blob.
type StorageConfig struct {
	Driver         string        `koanf:"driver" validate:"oneof=memory file redis postgres"`
	Dir            string        `koanf:"dir" validate:"required_if=Driver file"`
	RedisURL       string        `koanf:"redis_url" validate:"required_if=Driver redis"`
	PostgresURL    string        `koanf:"postgres_url" validate:"required_if=Driver postgres"`
	Key            string        `koanf:"key" validate:"required"`
	MaxBytes       int           `koanf:"max_bytes" validate:"min=1"`
	PersistTimeout time.Duration `koanf:"persist_timeout"`
}

// BackendConfig selects the remote store. An empty supabase URL or postgres URL
// leaves the service local-only.
type BackendConfig struct {
	Driver         string `koanf:"driver" validate:"oneof=none supabase postgres"`
	SupabaseURL    string `koanf:"supabase_url" validate:"omitempty,url"`
	AnonKey        string `koanf:"anon_key"`
	ServiceRoleKey string `koanf:"service_role_key"`
	JWTSecret      string `koanf:"jwt_secret"`
	Bucket         string `koanf:"bucket"`
	PostgresURL    string `koanf:"postgres_url"`
}

type AnalyzerConfig struct {
	Provider        string        `koanf:"provider" validate:"oneof=gemini openai"`
	GeminiAPIKey    string        `koanf:"gemini_api_key"`
	OpenAIAPIKey    string        `koanf:"openai_api_key"`
	Model           string        `koanf:"model"`
	BasicTimeout    time.Duration `koanf:"basic_timeout" validate:"gt=0"`
	FullFaceTimeout time.Duration `koanf:"full_face_timeout" validate:"gt=0"`
	RatePerMinute   int           `koanf:"rate_per_minute" validate:"min=0"`
}

type SessionConfig struct {
	Key             string        `koanf:"key" validate:"required"`
	RefreshSchedule string        `koanf:"refresh_schedule" validate:"required"`
	RefreshMargin   time.Duration `koanf:"refresh_margin"`
}

type MailConfig struct {
	Provider     string `koanf:"provider" validate:"omitempty,oneof=resend smtp"`
	ResendAPIKey string `koanf:"resend_api_key"`
	From         string `koanf:"from"`
	FromName     string `koanf:"from_name"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	SMTPUseSSL   bool   `koanf:"smtp_use_ssl"`
}

type OTPConfig struct {
	Length int           `koanf:"length" validate:"min=4,max=10"`
	TTL    time.Duration `koanf:"ttl" validate:"gt=0"`
}

// SupabaseConfigured reports whether enough is set to call the hosted backend.
func (b BackendConfig) SupabaseConfigured() bool {
	return b.Driver == "supabase" && b.SupabaseURL != "" && b.AnonKey != ""
}

func (b BackendConfig) PostgresConfigured() bool {
	return b.Driver == "postgres" && b.PostgresURL != ""
}

// APIKey returns the key of the selected provider.
func (a AnalyzerConfig) APIKey() string {
	if a.Provider == "openai" {
		return a.OpenAIAPIKey
	}
	return a.GeminiAPIKey
}

// Load reads defaults, then the optional YAML file, then environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":             "INOS",
		"app.environment":      "development",
		"app.port":             8080,
		"app.cors_origins":     "*",
		"app.shutdown_timeout": "15s",

		"log.level":  "info",
		"log.format": "json",

		"storage.driver":          "file",
		"storage.dir":             ".inos",
		"storage.key":             "inos-storage",
		"storage.max_bytes":       500000,
		"storage.persist_timeout": "5s",

		"backend.driver": "supabase",
		"backend.bucket": "photos",

		"analyzer.provider":          "gemini",
		"analyzer.model":             "gemini-2.0-flash",
		"analyzer.basic_timeout":     "30s",
		"analyzer.full_face_timeout": "45s",
		"analyzer.rate_per_minute":   15,

		"session.key":              "inos-session",
		"session.refresh_schedule": "@every 1m",
		"session.refresh_margin":   "5m",

		"mail.from":      "INOS <onboarding@resend.dev>",
		"mail.from_name": "INOS",
		"mail.smtp_port": 587,

		"otp.length": 6,
		"otp.ttl":    "10m",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"APP_ENV":                   "app.environment",
	"PORT":                      "app.port",
	"CORS_ORIGINS":              "app.cors_origins",
	"LOG_LEVEL":                 "log.level",
	"LOG_FORMAT":                "log.format",
	"STORAGE_DRIVER":            "storage.driver",
	"STORAGE_DIR":               "storage.dir",
	"STORAGE_MAX_BYTES":         "storage.max_bytes",
	"REDIS_URL":                 "storage.redis_url",
	"STORAGE_POSTGRES_URL":      "storage.postgres_url",
	"BACKEND_DRIVER":            "backend.driver",
	"SUPABASE_URL":              "backend.supabase_url",
	"SUPABASE_ANON_KEY":         "backend.anon_key",
	"SUPABASE_SERVICE_ROLE_KEY": "backend.service_role_key",
	"SUPABASE_JWT_SECRET":       "backend.jwt_secret",
	"SUPABASE_BUCKET":           "backend.bucket",
	"POSTGRES_URL":              "backend.postgres_url",
	"AI_PROVIDER":               "analyzer.provider",
	"GEMINI_API_KEY":            "analyzer.gemini_api_key",
	"OPENAI_API_KEY":            "analyzer.openai_api_key",
	"AI_MODEL":                  "analyzer.model",
	"AI_RATE_PER_MINUTE":        "analyzer.rate_per_minute",
	"SESSION_REFRESH_SCHEDULE":  "session.refresh_schedule",
	"MAIL_PROVIDER":             "mail.provider",
	"RESEND_API_KEY":            "mail.resend_api_key",
	"MAIL_FROM":                 "mail.from",
	"SMTP_HOST":                 "mail.smtp_host",
	"SMTP_PORT":                 "mail.smtp_port",
	"SMTP_USERNAME":             "mail.smtp_username",
	"SMTP_PASSWORD":             "mail.smtp_password",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

var validate = func() func(*Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return func(c *Config) error {
		if err := v.Struct(c); err != nil {
			var fields []string
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
				}
				return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
			}
			return err
		}
		return nil
	}
}()
