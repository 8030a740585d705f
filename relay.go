package formrelay

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/formrelay/delivery"
	"github.com/xraph/formrelay/form"
	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/observability"
	"github.com/xraph/formrelay/record"
)

// Outcome describes one handled submission.
type Outcome struct {
	// SubmissionID identifies this invocation in logs, headers and the journal.
	SubmissionID id.ID

	// Record is nil when it could not be built.
	Record *record.Record

	// StatusCode is the destination's HTTP status, 0 if no response.
	StatusCode int

	// LatencyMs is the POST round trip.
	LatencyMs int

	// Response is the first KiB of the destination's response body.
	Response string

	// DebugEmailed reports whether the debug copy was sent.
	DebugEmailed bool
}

// Handle relays one submission: build the record, send the optional debug
// email, then POST the record exactly once.
//
// A question identifier missing from the form aborts before anything is
// sent and returns an error matching ErrQuestionNotFound. A transport
// failure or non-2xx answer returns an error matching ErrRelayFailed. Debug
// email failures are logged and never fail the invocation.
func (r *Relay) Handle(ctx context.Context, sub *form.Submission) (*Outcome, error) {
	out := &Outcome{SubmissionID: id.NewSubmissionID()}

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.tracer.StartRelaySpan(ctx, out.SubmissionID.String(), sub.ResponseID)
	}

	rec, err := record.Build(sub, r.config.Fields)
	if err != nil {
		r.logger.ErrorContext(ctx, "build record failed",
			"submission_id", out.SubmissionID,
			"response_id", sub.ResponseID,
			"error", err,
		)
		r.finish(ctx, span, sub, out, nil, journal.StateRejected, err)
		return out, err
	}
	out.Record = rec

	body, err := rec.JSON()
	if err != nil {
		err = fmt.Errorf("formrelay: serialize record: %w", err)
		r.finish(ctx, span, sub, out, nil, journal.StateRejected, err)
		return out, err
	}

	if r.notifier.Enabled() {
		nerr := r.notifier.Notify(ctx, rec)
		if r.metrics != nil {
			r.metrics.RecordDebugEmail(nerr)
		}
		if nerr != nil {
			r.logger.WarnContext(ctx, "debug email failed",
				"submission_id", out.SubmissionID,
				"error", nerr,
			)
		} else {
			out.DebugEmailed = true
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	res := r.sender.Send(sendCtx, delivery.Request{
		URL:          r.config.DestinationURL,
		Password:     r.config.Password,
		SubmissionID: out.SubmissionID.String(),
		Body:         body,
	})
	cancel()

	out.StatusCode = res.StatusCode
	out.LatencyMs = res.LatencyMs
	out.Response = res.Response

	if !res.OK() {
		err := relayError(res)
		r.logger.ErrorContext(ctx, "relay failed",
			"submission_id", out.SubmissionID,
			"status", res.StatusCode,
			"latency_ms", res.LatencyMs,
			"error", err,
		)
		r.finish(ctx, span, sub, out, body, journal.StateFailed, err)
		return out, err
	}

	r.logger.InfoContext(ctx, "submission relayed",
		"submission_id", out.SubmissionID,
		"response_id", sub.ResponseID,
		"status", res.StatusCode,
		"latency_ms", res.LatencyMs,
	)
	r.finish(ctx, span, sub, out, body, journal.StateRelayed, nil)
	return out, nil
}

// HandleEvent decodes a raw platform event and relays it.
func (r *Relay) HandleEvent(ctx context.Context, data []byte) (*Outcome, error) {
	sub, err := form.Decode(data)
	if err != nil {
		return nil, err
	}
	return r.Handle(ctx, sub)
}

func relayError(res delivery.Result) error {
	if res.Error != "" {
		return fmt.Errorf("%w: %s", ErrRelayFailed, res.Error)
	}
	return fmt.Errorf("%w: destination returned %d", ErrRelayFailed, res.StatusCode)
}

// finish records metrics, ends the span and appends the journal entry.
func (r *Relay) finish(ctx context.Context, span trace.Span, sub *form.Submission, out *Outcome, body []byte, state journal.State, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	posted := state != journal.StateRejected

	if r.metrics != nil {
		r.metrics.RecordSubmission(metricStatus(state), float64(out.LatencyMs)/1000, posted)
	}
	if span != nil {
		r.tracer.EndRelaySpan(span, out.StatusCode, out.LatencyMs, errMsg)
	}
	if r.journal == nil {
		return
	}

	entry := &journal.Entry{
		ID:           id.NewJournalID(),
		SubmissionID: out.SubmissionID,
		ResponseID:   sub.ResponseID,
		FormID:       sub.Form.ID,
		Destination:  r.config.DestinationURL,
		Record:       body,
		StatusCode:   out.StatusCode,
		LatencyMs:    out.LatencyMs,
		Error:        errMsg,
		State:        state,
		DebugEmailed: out.DebugEmailed,
		CreatedAt:    time.Now().UTC(),
	}
	if jerr := r.journal.Append(context.WithoutCancel(ctx), entry); jerr != nil {
		r.logger.ErrorContext(ctx, "journal append failed",
			"submission_id", out.SubmissionID,
			"error", jerr,
		)
	}
}

func metricStatus(s journal.State) string {
	switch s {
	case journal.StateRelayed:
		return observability.StatusRelayed
	case journal.StateFailed:
		return observability.StatusFailed
	default:
		return observability.StatusRejected
	}
}

// Preflight dials the destination host. It does not send anything.
func (r *Relay) Preflight(ctx context.Context) error {
	u, err := url.Parse(r.config.DestinationURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnreachable, err)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDestinationUnreachable, addr, err)
	}
	_ = conn.Close()
	return nil
}

// Config returns a copy of the configuration.
func (r *Relay) Config() Config {
	cfg := r.config
	cfg.Fields = slices.Clone(cfg.Fields)
	return cfg
}

// Journal returns the journal store, or nil if none is configured.
func (r *Relay) Journal() journal.Store {
	return r.journal
}

// Notifying reports whether debug emails are enabled.
func (r *Relay) Notifying() bool {
	return r.notifier.Enabled()
}
