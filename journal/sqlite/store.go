// Package sqlite provides a SQLite journal store on Grove ORM.
//
// DSNs should set _time_format=sqlite so timestamps read back as time.Time.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a store backed by an open grove database.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Open opens dsn on a single connection. One writer also keeps in-memory
// databases on the same connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("journal/sqlite: open: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("journal/sqlite: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the journal table and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("journal/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("journal/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts the entry.
func (s *Store) Append(ctx context.Context, e *journal.Entry) error {
	if _, err := s.sdb.NewInsert(toEntryModel(e)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return journal.ErrDuplicateEntry
		}
		return fmt.Errorf("journal/sqlite: append: %w", err)
	}
	return nil
}

// Get returns an entry by ID.
func (s *Store) Get(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	m := new(entryModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", entryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, journal.ErrEntryNotFound
		}
		return nil, fmt.Errorf("journal/sqlite: get: %w", err)
	}
	return fromEntryModel(m)
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models)
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	// SQLite rejects OFFSET without LIMIT, so an unbounded page is cut in Go.
	inGo := opts.Limit <= 0 && opts.Offset > 0
	if !inGo {
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("journal/sqlite: list: %w", err)
	}
	if inGo {
		models = journal.Paginate(models, opts.Offset, 0)
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
