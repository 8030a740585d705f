// Package api exposes a Relay as an HTTP webhook.
//
// Routes:
//
//	POST /submissions     relay one platform event
//	POST /forms/items     list the question identifiers of a form
//	GET  /journal         recent journal entries
//	GET  /journal/{id}    one journal entry
//	GET  /healthz         liveness and journal connectivity
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/ratelimit"
)

// DefaultMaxBodyBytes bounds inbound request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Config configures the HTTP surface.
type Config struct {
	// Password, when set, must be supplied as the `password` query
	// parameter on POST /submissions.
	Password string `json:"-" yaml:"password" mapstructure:"password"`

	// MaxBodyBytes bounds inbound bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// RateLimit is the number of submissions per second accepted from one
	// client address. Zero disables throttling.
	RateLimit int `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Handler is the root HTTP handler for the relay webhook.
type Handler struct {
	relay   *formrelay.Relay
	config  Config
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	router  chi.Router
}

// NewHandler creates a new webhook handler.
func NewHandler(r *formrelay.Relay, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &Handler{
		relay:   r,
		config:  cfg,
		limiter: ratelimit.New(cfg.RateLimit),
		logger:  logger,
		router:  chi.NewRouter(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	// Logging wraps recovery so a panicking request still gets its access line.
	h.router.Use(h.logging)
	h.router.Use(h.panicRecovery)

	h.router.Get("/healthz", h.healthz)

	h.router.Group(func(r chi.Router) {
		r.Use(h.throttle)
		r.Use(h.requirePassword)
		r.Post("/submissions", h.createSubmission)
	})

	h.router.Post("/forms/items", h.listFormItems)

	h.router.Get("/journal", h.listJournal)
	h.router.Get("/journal/{id}", h.getJournalEntry)
}

// Router returns the chi router so callers can mount extra routes.
func (h *Handler) Router() chi.Router { return h.router }

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.InfoContext(r.Context(), "api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt returns a non-negative integer query parameter or def.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
