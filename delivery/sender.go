// Package delivery performs the single HTTP POST that relays a record to the
// configured destination.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxResponseBody = 1024 // 1KB cap on response body capture

// PasswordParam is the query parameter carrying the shared secret.
const PasswordParam = "password"

// Request describes one relay attempt.
type Request struct {
	// URL is the destination without the credential.
	URL string

	// Password is appended as the URL-encoded `password` query parameter.
	Password string

	// SubmissionID is sent as X-Formrelay-Submission-ID for correlation.
	SubmissionID string

	// Body is the serialized record.
	Body []byte
}

// Result holds the outcome of a relay attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// OK reports whether the destination accepted the record (2xx).
func (r Result) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Sender performs the HTTP relay.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// NewSenderWithClient creates a sender around an existing client.
func NewSenderWithClient(client *http.Client) *Sender {
	return &Sender{client: client}
}

// AuthorizedURL returns dest with the password query parameter appended.
// The existing query is kept byte for byte; the secret is URL-encoded.
func AuthorizedURL(dest, password string) (string, error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", fmt.Errorf("parse destination: %w", err)
	}
	param := PasswordParam + "=" + url.QueryEscape(password)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

// Send issues exactly one POST and returns the result. It never retries.
func (s *Sender) Send(ctx context.Context, r Request) Result {
	target, err := AuthorizedURL(r.URL, r.Password)
	if err != nil {
		return Result{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(r.Body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "formrelay/1.0")
	if r.SubmissionID != "" {
		req.Header.Set("X-Formrelay-Submission-ID", r.SubmissionID)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: destination is operator configuration.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		// The URL in a *url.Error carries the password; report only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}
