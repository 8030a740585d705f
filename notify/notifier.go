// Package notify sends the optional debug copy of each relayed record to an
// operator mailbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/formrelay/record"
)

// DebugSubject is the subject line of every debug notification.
const DebugSubject = "BMIR Calls Form Submit Debug"

// ErrNoMailer is returned by New when the notifier is enabled without a
// mail transport.
var ErrNoMailer = errors.New("formrelay: debug email enabled without a mailer")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config configures the debug notifier.
type Config struct {
	// Enabled toggles debug notifications.
	Enabled bool

	// To is the operator address.
	To string

	// Timeout bounds one send. Zero means no extra deadline.
	Timeout time.Duration
}

// Notifier emails a pretty-printed record when enabled.
type Notifier struct {
	mailer Mailer
	config Config
}

// New creates a notifier. A disabled notifier may have a nil mailer.
func New(mailer Mailer, cfg Config) (*Notifier, error) {
	if cfg.Enabled && mailer == nil {
		return nil, ErrNoMailer
	}
	return &Notifier{mailer: mailer, config: cfg}, nil
}

// Enabled reports whether Notify sends anything.
func (n *Notifier) Enabled() bool {
	return n != nil && n.config.Enabled
}

// Notify sends the debug copy of rec. It is a no-op when disabled: the
// record is not even serialized.
func (n *Notifier) Notify(ctx context.Context, rec *record.Record) error {
	if !n.Enabled() {
		return nil
	}

	body, err := rec.Pretty()
	if err != nil {
		return fmt.Errorf("notify: serialize record: %w", err)
	}

	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	if err := n.mailer.Send(ctx, Message{
		To:      n.config.To,
		Subject: DebugSubject,
		Body:    string(body),
	}); err != nil {
		return fmt.Errorf("notify: send to %s: %w", n.config.To, err)
	}
	return nil
}
