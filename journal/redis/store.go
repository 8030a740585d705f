// Package redis provides a Redis-backed journal store.
//
// Entries are stored as JSON strings with sorted-set indexes scored by
// creation time, one for all entries and one per state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

const (
	prefixEntry = "formrelay:jrn:"
	zEntryAll   = "formrelay:z:jrn:all"
	zEntryState = "formrelay:z:jrn:state:" // + state
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using Redis via Grove KV.
type Store struct {
	kv  *kv.Store
	rdb goredis.UniversalClient
	ttl time.Duration
}

// Option configures the Redis store.
type Option func(*Store)

// WithTTL expires entries after d. Index members of expired entries are
// skipped on read.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// New creates a store backed by Grove KV. The KV driver must be redisdriver.
func New(store *kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  store,
		rdb: redisdriver.UnwrapClient(store),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to a redis:// URL.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	drv := redisdriver.New()
	if err := drv.Open(ctx, url); err != nil {
		return nil, fmt.Errorf("journal/redis: open: %w", err)
	}
	store, err := kv.Open(drv)
	if err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("journal/redis: open: %w", err)
	}
	return New(store, opts...), nil
}

// Migrate is a no-op for Redis.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the KV store.
func (s *Store) Close() error {
	return s.kv.Close()
}

// entryModel is the JSON representation stored in Redis.
type entryModel struct {
	ID           string          `json:"id"`
	SubmissionID string          `json:"submission_id"`
	ResponseID   string          `json:"response_id,omitempty"`
	FormID       string          `json:"form_id,omitempty"`
	Destination  string          `json:"destination"`
	Record       json.RawMessage `json:"record,omitempty"`
	StatusCode   int             `json:"status_code"`
	LatencyMs    int             `json:"latency_ms"`
	Error        string          `json:"error,omitempty"`
	State        string          `json:"state"`
	DebugEmailed bool            `json:"debug_emailed"`
	CreatedAt    time.Time       `json:"created_at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	return &entryModel{
		ID:           e.ID.String(),
		SubmissionID: e.SubmissionID.String(),
		ResponseID:   e.ResponseID,
		FormID:       e.FormID,
		Destination:  e.Destination,
		Record:       e.Record,
		StatusCode:   e.StatusCode,
		LatencyMs:    e.LatencyMs,
		Error:        e.Error,
		State:        string(e.State),
		DebugEmailed: e.DebugEmailed,
		CreatedAt:    e.CreatedAt.UTC(),
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseJournalID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse journal ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubmissionID(m.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("parse submission ID %q: %w", m.SubmissionID, err)
	}
	return &journal.Entry{
		ID:           entryID,
		SubmissionID: subID,
		ResponseID:   m.ResponseID,
		FormID:       m.FormID,
		Destination:  m.Destination,
		Record:       m.Record,
		StatusCode:   m.StatusCode,
		LatencyMs:    m.LatencyMs,
		Error:        m.Error,
		State:        journal.State(m.State),
		DebugEmailed: m.DebugEmailed,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// scoreFromTime converts a time to a sorted set score.
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Append stores the entry with SET NX, then adds it to the indexes.
func (s *Store) Append(ctx context.Context, e *journal.Entry) error {
	m := toEntryModel(e)
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("journal/redis: marshal entry: %w", err)
	}

	setOpts := []kv.SetOption{kv.WithNX()}
	if s.ttl > 0 {
		setOpts = append(setOpts, kv.WithTTL(s.ttl))
	}
	if err := s.kv.SetRaw(ctx, prefixEntry+m.ID, raw, setOpts...); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			return journal.ErrDuplicateEntry
		}
		return fmt.Errorf("journal/redis: append: %w", err)
	}

	z := goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, zEntryAll, z)
	pipe.ZAdd(ctx, zEntryState+m.State, z)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal/redis: index entry: %w", err)
	}
	return nil
}

// Get returns an entry by ID.
func (s *Store) Get(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	raw, err := s.kv.GetRaw(ctx, prefixEntry+entryID.String())
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, journal.ErrEntryNotFound
		}
		return nil, fmt.Errorf("journal/redis: get: %w", err)
	}

	var m entryModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("journal/redis: decode entry: %w", err)
	}
	return fromEntryModel(&m)
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	key := zEntryAll
	if opts.State != "" {
		key = zEntryState + string(opts.State)
	}

	start := int64(opts.Offset)
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = start + int64(opts.Limit) - 1
	}

	ids, err := s.rdb.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("journal/redis: list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, entryID := range ids {
		keys[i] = prefixEntry + entryID
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("journal/redis: list fetch: %w", err)
	}

	result := make([]*journal.Entry, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // expired
		}
		var m entryModel
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, fmt.Errorf("journal/redis: decode entry: %w", err)
		}
		e, err := fromEntryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}
