package formrelay

import (
	"net/url"
	"strings"
	"time"

	"github.com/xraph/formrelay/delivery"
	"github.com/xraph/formrelay/record"
)

// Config holds the configuration for a Relay instance. It is loaded once,
// validated by New, and never mutated afterwards.
type Config struct {
	// DestinationURL is the endpoint records are POSTed to. It must not
	// carry the password itself.
	DestinationURL string `json:"destination_url" yaml:"destination_url" mapstructure:"destination_url"`

	// Password is the shared secret sent as the `password` query parameter.
	Password string `json:"-" yaml:"password" mapstructure:"password"`

	// DebugEmail toggles the debug copy of every record.
	DebugEmail bool `json:"debug_email" yaml:"debug_email" mapstructure:"debug_email"`

	// DebugAddress receives debug copies.
	DebugAddress string `json:"debug_address" yaml:"debug_address" mapstructure:"debug_address"`

	// Fields maps question identifiers to record field names, in output order.
	Fields record.Mapping `json:"fields" yaml:"fields" mapstructure:"fields"`

	// RequestTimeout bounds the POST to the destination.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// MailTimeout bounds one debug email.
	MailTimeout time.Duration `json:"mail_timeout" yaml:"mail_timeout" mapstructure:"mail_timeout"`
}

// DefaultConfig returns a Config with the volunteer mapping and default
// timeouts. Destination and password have no default.
func DefaultConfig() Config {
	return Config{
		Fields:         record.DefaultMapping(),
		RequestTimeout: 30 * time.Second,
		MailTimeout:    10 * time.Second,
	}
}

// Validate checks the configuration and returns a *ConfigError for the
// first problem found.
func (c Config) Validate() error {
	if c.DestinationURL == "" {
		return &ConfigError{Field: "destination_url", Message: "is required"}
	}
	u, err := url.Parse(c.DestinationURL)
	if err != nil {
		return &ConfigError{Field: "destination_url", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Field: "destination_url", Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ConfigError{Field: "destination_url", Message: "host is required"}
	}
	if u.Query().Has(delivery.PasswordParam) {
		return &ConfigError{Field: "destination_url", Message: "must not contain the password parameter; set password instead"}
	}

	if c.Password == "" {
		return &ConfigError{Field: "password", Message: "is required"}
	}

	if c.DebugEmail {
		if c.DebugAddress == "" {
			return &ConfigError{Field: "debug_address", Message: "is required when debug_email is enabled"}
		}
		if !strings.Contains(c.DebugAddress, "@") {
			return &ConfigError{Field: "debug_address", Message: "must be an email address"}
		}
	}

	if err := c.Fields.Validate(); err != nil {
		return &ConfigError{Field: "fields", Message: err.Error()}
	}

	if c.RequestTimeout <= 0 {
		return &ConfigError{Field: "request_timeout", Message: "must be positive"}
	}
	if c.MailTimeout < 0 {
		return &ConfigError{Field: "mail_timeout", Message: "must not be negative"}
	}
	return nil
}
