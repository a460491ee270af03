package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

const EnvPrefix = "FL"

type Config struct {
	App      AppConfig      `mapstructure:"app" yaml:"app"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
}

type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

type CaptureConfig struct {
	DefaultFormTitle string        `mapstructure:"default_form_title" yaml:"default_form_title"`
	ReservedPrefixes []string      `mapstructure:"reserved_prefixes" yaml:"reserved_prefixes"`
	IgnoredFields    []string      `mapstructure:"ignored_fields" yaml:"ignored_fields"`
	WebhookSecret    string        `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	DedupTTL         time.Duration `mapstructure:"dedup_ttl" yaml:"dedup_ttl"`
	ProfileFile      string        `mapstructure:"profile_file" yaml:"profile_file"`
}

type ExportConfig struct {
	Timezone       string `mapstructure:"timezone" yaml:"timezone"`
	FilenamePrefix string `mapstructure:"filename_prefix" yaml:"filename_prefix"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	NonceTTL  time.Duration `mapstructure:"nonce_ttl" yaml:"nonce_ttl"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
	Queue   string `mapstructure:"queue" yaml:"queue"`
	Token   string `mapstructure:"token" yaml:"token"`
}

// Location resolves export.timezone. Load has already validated it.
func (c ExportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	out.Capture.WebhookSecret = redact(c.Capture.WebhookSecret)
	out.Auth.JWTSecret = redact(c.Auth.JWTSecret)
	out.NATS.Token = redact(c.NATS.Token)
	return out
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("export_timezone", cfg.Export.Timezone),
		slog.Bool("nats_enabled", cfg.NATS.Enabled),
	)

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if _, err := time.LoadLocation(cfg.Export.Timezone); err != nil {
		return errs.Wrapf(err, "export.timezone %q", cfg.Export.Timezone)
	}
	if cfg.NATS.Enabled && strings.TrimSpace(cfg.NATS.Subject) == "" {
		return errors.New("nats.subject is required when nats is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "formledger")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".formledger/submissions.sqlite")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_header_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("capture.default_form_title", "Contact Form 7")
	v.SetDefault("capture.reserved_prefixes", []string{"_wpcf7"})
	v.SetDefault("capture.ignored_fields", []string{"g-recaptcha-response", "submit"})
	v.SetDefault("capture.webhook_secret", "")
	v.SetDefault("capture.dedup_ttl", "24h")
	v.SetDefault("capture.profile_file", "")
	v.SetDefault("export.timezone", "UTC")
	v.SetDefault("export.filename_prefix", "form-submissions")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.nonce_ttl", "12h")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "forms.submission.accepted")
	v.SetDefault("nats.queue", "formledger-capture")
	v.SetDefault("nats.token", "")
}
