// Package journal defines the write-only record of relay invocations kept
// for operators.
//
// The relay appends one Entry per handled submission and never reads the
// journal back. Backends live in sub-packages: memory, plus redis,
// postgres, sqlite and mongo on Grove.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/xraph/formrelay/id"
)

var (
	ErrEntryNotFound  = errors.New("journal: entry not found")
	ErrDuplicateEntry = errors.New("journal: duplicate entry")
	ErrStoreClosed    = errors.New("journal: store closed")
)

// State is the final outcome of one invocation.
type State string

const (
	// StateRelayed means the destination answered 2xx.
	StateRelayed State = "relayed"

	// StateFailed means the POST failed or returned non-2xx.
	StateFailed State = "failed"

	// StateRejected means the record could not be built and nothing was sent.
	StateRejected State = "rejected"
)

// Entry records one relay invocation. Destination never carries the
// shared secret.
type Entry struct {
	ID           id.ID           `json:"id"`
	SubmissionID id.ID           `json:"submission_id"`
	ResponseID   string          `json:"response_id,omitempty"`
	FormID       string          `json:"form_id,omitempty"`
	Destination  string          `json:"destination"`
	Record       json.RawMessage `json:"record,omitempty"`
	StatusCode   int             `json:"status_code"`
	LatencyMs    int             `json:"latency_ms"`
	Error        string          `json:"error,omitempty"`
	State        State           `json:"state"`
	DebugEmailed bool            `json:"debug_emailed"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListOpts configures journal listing. Entries are returned newest first.
type ListOpts struct {
	Offset int   `json:"offset,omitempty"`
	Limit  int   `json:"limit,omitempty"`
	State  State `json:"state,omitempty"`
}

// Store persists journal entries.
type Store interface {
	// Append stores a new entry.
	Append(ctx context.Context, e *Entry) error

	// Get returns an entry by ID.
	Get(ctx context.Context, entryID id.ID) (*Entry, error)

	// List returns entries, newest first.
	List(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// Migrate prepares the backing schema or indexes.
	Migrate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Paginate applies offset and limit to a slice already in list order.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
