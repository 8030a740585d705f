package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/api"
	"github.com/xraph/formrelay/observability"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "formrelay"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Form submission relay"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts formrelay as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config Config
	opts   []formrelay.Option
	relay  *formrelay.Relay
}

// New creates a formrelay Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
		config:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Relay returns the underlying relay. Nil before Register.
func (e *Extension) Relay() *formrelay.Relay { return e.relay }

// Config returns the extension configuration.
func (e *Extension) Config() Config { return e.config }

// Register implements [forge.Extension].
func (e *Extension) Register(app forge.App) error {
	if err := e.BaseExtension.Register(app); err != nil {
		return err
	}

	if err := e.build(app.Metrics()); err != nil {
		return err
	}

	if err := e.RegisterConstructor(func() *formrelay.Relay { return e.relay }, vessel.AsSingleton()); err != nil {
		return fmt.Errorf("formrelay: register relay in container: %w", err)
	}

	if !e.config.DisableRoutes {
		e.mount(app.Router(), e.Logger())
	}
	return nil
}

// build constructs the relay, recording metrics through factory.
func (e *Extension) build(factory forge.Metrics) error {
	opts := e.opts
	if factory != nil {
		opts = append(opts[:len(opts):len(opts)], formrelay.WithMetrics(observability.NewMetrics(factory)))
	}
	r, err := formrelay.New(opts...)
	if err != nil {
		return fmt.Errorf("formrelay: build relay: %w", err)
	}
	e.relay = r
	return nil
}

// mount registers the webhook routes under the configured prefix.
func (e *Extension) mount(router forge.Router, log forge.Logger) {
	if log == nil {
		log = forge.NewNoopLogger()
	}
	api.NewForgeAPI(e.relay, e.config.API, log).RegisterRoutes(router.Group(e.config.Prefix))
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	defer e.MarkStopped()
	if e.relay == nil {
		return nil
	}
	if store := e.relay.Journal(); store != nil {
		return store.Close()
	}
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.relay == nil {
		return errors.New("formrelay: extension not registered")
	}
	if store := e.relay.Journal(); store != nil {
		return store.Ping(ctx)
	}
	return nil
}
