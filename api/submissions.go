package api

import (
	"crypto/subtle"
	"io"
	"net"
	"net/http"

	"github.com/xraph/formrelay/delivery"
	"github.com/xraph/formrelay/form"
)

type submissionResponse struct {
	SubmissionID string `json:"submission_id,omitempty"`
	StatusCode   int    `json:"status_code,omitempty"`
	LatencyMs    int    `json:"latency_ms,omitempty"`
	DebugEmailed bool   `json:"debug_emailed"`
	Error        string `json:"error,omitempty"`
}

// maxTrackedClients bounds limiter state before idle clients are pruned.
const maxTrackedClients = 4096

// throttle applies the per-client submission rate limit.
func (h *Handler) throttle(next http.Handler) http.Handler {
	if !h.limiter.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter.Len() > maxTrackedClients {
			h.limiter.Prune()
		}
		if !h.limiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requirePassword enforces the inbound shared secret when one is configured.
func (h *Handler) requirePassword(next http.Handler) http.Handler {
	if h.config.Password == "" {
		return next
	}
	want := []byte(h.config.Password)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.URL.Query().Get(delivery.PasswordParam))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid password")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	sub, err := form.Decode(body)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out, err := h.relay.Handle(r.Context(), sub)
	resp := submissionResponse{
		SubmissionID: out.SubmissionID.String(),
		StatusCode:   out.StatusCode,
		LatencyMs:    out.LatencyMs,
		DebugEmailed: out.DebugEmailed,
	}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}
