package extension

import "github.com/xraph/formrelay/api"

// Config holds configuration for the formrelay Forge extension.
type Config struct {
	// Prefix is the URL prefix for the webhook routes (default: "/forms").
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// API configures the inbound side of the webhook.
	API api.Config `json:"api" yaml:"api" mapstructure:"api"`

	// DisableRoutes disables automatic route registration with the Forge router.
	DisableRoutes bool `json:"disable_routes" yaml:"disable_routes" mapstructure:"disable_routes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Prefix: "/forms",
		API:    api.Config{MaxBodyBytes: api.DefaultMaxBodyBytes},
	}
}
