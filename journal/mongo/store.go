// Package mongo provides a MongoDB journal store on Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

// Collection holds the journal entries.
const Collection = "formrelay_journal"

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a store backed by an open grove database.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects to uri. A non-empty database overrides the name in the URI.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	var opts []mongodriver.MongoOption
	if database != "" {
		opts = append(opts, mongodriver.WithDatabase(database))
	}
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, opts...); err != nil {
		return nil, fmt.Errorf("journal/mongo: open: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("journal/mongo: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the journal indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.mdb.Collection(Collection).Indexes().CreateMany(ctx, []mongod.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "submission_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("journal/mongo: migrate %s indexes: %w", Collection, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts the entry.
func (s *Store) Append(ctx context.Context, e *journal.Entry) error {
	if _, err := s.mdb.NewInsert(toEntryModel(e)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return journal.ErrDuplicateEntry
		}
		return fmt.Errorf("journal/mongo: append: %w", err)
	}
	return nil
}

// Get returns an entry by ID.
func (s *Store) Get(ctx context.Context, entryID id.ID) (*journal.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, journal.ErrEntryNotFound
		}
		return nil, fmt.Errorf("journal/mongo: get: %w", err)
	}
	return fromEntryModel(&m)
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel

	filter := bson.M{}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("journal/mongo: list: %w", err)
	}

	result := make([]*journal.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}
