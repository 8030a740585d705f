// Package config loads the formrelay service configuration from a YAML
// file, FORMRELAY_* environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/api"
	"github.com/xraph/formrelay/notify"
	"github.com/xraph/formrelay/record"
)

// EnvPrefix prefixes every environment variable, e.g.
// FORMRELAY_RELAY_DESTINATION_URL for relay.destination_url.
const EnvPrefix = "FORMRELAY"

// Config is the full service configuration.
type Config struct {
	Relay   formrelay.Config  `json:"relay" yaml:"relay" mapstructure:"relay"`
	HTTP    HTTPConfig        `json:"http" yaml:"http" mapstructure:"http"`
	SMTP    notify.SMTPConfig `json:"smtp" yaml:"smtp" mapstructure:"smtp"`
	Journal JournalConfig     `json:"journal" yaml:"journal" mapstructure:"journal"`
	Log     LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig     `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// HTTPConfig configures the webhook server.
type HTTPConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	API             api.Config    `json:"api" yaml:",inline" mapstructure:",squash"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	def := formrelay.DefaultConfig()

	v.SetDefault("relay.destination_url", "")
	v.SetDefault("relay.password", "")
	v.SetDefault("relay.debug_email", false)
	v.SetDefault("relay.debug_address", "")
	v.SetDefault("relay.request_timeout", def.RequestTimeout)
	v.SetDefault("relay.mail_timeout", def.MailTimeout)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.password", "")
	v.SetDefault("http.max_body_bytes", api.DefaultMaxBodyBytes)
	v.SetDefault("http.rate_limit", 0)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.timeout", 10*time.Second)

	v.SetDefault("journal.driver", DriverNone)
	v.SetDefault("journal.dsn", "")
	v.SetDefault("journal.database", "formrelay")
	v.SetDefault("journal.ttl", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configuration. path may be empty, in which case formrelay.yaml
// is looked up in the working directory and skipped if absent. envFiles are
// loaded into the process environment first; missing files are ignored and
// variables already set are never overridden.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The secret is commonly provided as FORMRELAY_PASSWORD.
	if err := v.BindEnv("relay.password", EnvPrefix+"_RELAY_PASSWORD", EnvPrefix+"_PASSWORD"); err != nil {
		return nil, fmt.Errorf("config: bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("formrelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(cfg.Relay.Fields) == 0 {
		cfg.Relay.Fields = record.DefaultMapping()
	}
	return &cfg, nil
}

// Validate checks the parts of the configuration the relay itself does not
// validate.
func (c *Config) Validate() error {
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format must be json or text, got %q", c.Log.Format)
	}
	return c.Journal.validate()
}

// Logger builds the slog logger described by c, writing to w.
func (c LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Mailer returns the debug email transport: SMTP when smtp.host is set,
// otherwise a mailer that writes to logger.
func (c *Config) Mailer(logger *slog.Logger) (notify.Mailer, error) {
	if c.SMTP.Host == "" {
		return notify.NewLogMailer(logger), nil
	}
	return notify.NewSMTPMailer(c.SMTP)
}
