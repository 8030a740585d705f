package extension

import (
	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/api"
)

// ExtOption configures the formrelay Forge extension.
type ExtOption func(*Extension)

// WithPrefix sets the URL prefix for the webhook routes.
func WithPrefix(prefix string) ExtOption {
	return func(e *Extension) {
		e.config.Prefix = prefix
	}
}

// WithAPIConfig sets the inbound webhook configuration.
func WithAPIConfig(cfg api.Config) ExtOption {
	return func(e *Extension) {
		e.config.API = cfg
	}
}

// WithConfig sets the extension configuration directly.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithRelayOption appends a raw formrelay.Option to the extension.
func WithRelayOption(opt formrelay.Option) ExtOption {
	return func(e *Extension) {
		e.opts = append(e.opts, opt)
	}
}

// WithDisableRoutes disables automatic route registration.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}
