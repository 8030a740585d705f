package formrelay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/formrelay/delivery"
	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/notify"
	"github.com/xraph/formrelay/observability"
	"github.com/xraph/formrelay/record"
)

// Relay handles submission events. It is safe for concurrent use; the only
// state shared between invocations is the immutable configuration and the
// injected clients.
type Relay struct {
	config     Config
	sender     *delivery.Sender
	httpClient *http.Client
	mailer     notify.Mailer
	notifier   *notify.Notifier
	journal    journal.Store
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// Option configures a Relay instance.
type Option func(*Relay) error

// New creates a Relay, validating the configuration.
func New(opts ...Option) (*Relay, error) {
	r := &Relay{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	if err := r.wire(); err != nil {
		return nil, err
	}
	return r, nil
}

// wire builds the internal collaborators after options have been applied.
func (r *Relay) wire() error {
	if r.httpClient != nil {
		r.sender = delivery.NewSenderWithClient(r.httpClient)
	} else {
		r.sender = delivery.NewSender(r.config.RequestTimeout)
	}

	mailer := r.mailer
	if mailer == nil && r.config.DebugEmail {
		mailer = notify.NewLogMailer(r.logger)
	}
	n, err := notify.New(mailer, notify.Config{
		Enabled: r.config.DebugEmail,
		To:      r.config.DebugAddress,
		Timeout: r.config.MailTimeout,
	})
	if err != nil {
		return err
	}
	r.notifier = n
	return nil
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(r *Relay) error {
		r.config = cfg
		return nil
	}
}

// WithDestination sets the destination URL and shared secret.
func WithDestination(rawURL, password string) Option {
	return func(r *Relay) error {
		r.config.DestinationURL = rawURL
		r.config.Password = password
		return nil
	}
}

// WithFields sets the question-to-field mapping.
func WithFields(m record.Mapping) Option {
	return func(r *Relay) error {
		r.config.Fields = m
		return nil
	}
}

// WithDebugEmail enables debug copies to addr.
func WithDebugEmail(addr string) Option {
	return func(r *Relay) error {
		r.config.DebugEmail = true
		r.config.DebugAddress = addr
		return nil
	}
}

// WithRequestTimeout sets the timeout of the POST to the destination.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Relay) error {
		r.config.RequestTimeout = d
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) error {
		r.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used for the POST. The client's own
// timeout applies in addition to RequestTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) error {
		r.httpClient = c
		return nil
	}
}

// WithMailer sets the debug email transport. Without one, debug copies are
// written to the logger.
func WithMailer(m notify.Mailer) Option {
	return func(r *Relay) error {
		r.mailer = m
		return nil
	}
}

// WithJournal records every invocation in s.
func WithJournal(s journal.Store) Option {
	return func(r *Relay) error {
		r.journal = s
		return nil
	}
}

// WithMetrics sets the prometheus instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) error {
		r.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Relay) error {
		r.tracer = t
		return nil
	}
}
