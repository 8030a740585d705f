package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/journal/sqlite"
)

func newSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "journal.db") + "?_time_format=sqlite"
	s, err := sqlite.Open(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestAppendGet(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	e := &journal.Entry{
		ID:           id.NewJournalID(),
		SubmissionID: id.NewSubmissionID(),
		ResponseID:   "resp-1",
		FormID:       "form-1",
		Destination:  "https://example.com/volunteers/submit",
		Record:       []byte(`{"name":"Jane Doe"}`),
		StatusCode:   200,
		LatencyMs:    42,
		State:        journal.StateRelayed,
		DebugEmailed: true,
		CreatedAt:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, e); !errors.Is(err, journal.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubmissionID.String() != e.SubmissionID.String() {
		t.Fatalf("expected submission %s, got %s", e.SubmissionID, got.SubmissionID)
	}
	if string(got.Record) != `{"name":"Jane Doe"}` {
		t.Fatalf("unexpected record %s", got.Record)
	}
	if !got.DebugEmailed || got.LatencyMs != 42 || got.StatusCode != 200 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("expected created_at %v, got %v", e.CreatedAt, got.CreatedAt)
	}

	if _, err := s.Get(ctx, id.NewJournalID()); !errors.Is(err, journal.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestListOrderFilterPagination(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	states := []journal.State{
		journal.StateRelayed,
		journal.StateFailed,
		journal.StateRejected,
		journal.StateRelayed,
	}
	ids := make([]string, len(states))
	for i, st := range states {
		e := &journal.Entry{
			ID:           id.NewJournalID(),
			SubmissionID: id.NewSubmissionID(),
			State:        st,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		ids[i] = e.ID.String()
		if err := s.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, journal.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(all))
	}
	if all[0].ID.String() != ids[3] {
		t.Fatal("expected newest entry first")
	}
	if all[0].Record != nil {
		t.Fatalf("expected nil record, got %s", all[0].Record)
	}

	relayed, err := s.List(ctx, journal.ListOpts{State: journal.StateRelayed})
	if err != nil {
		t.Fatal(err)
	}
	if len(relayed) != 2 {
		t.Fatalf("expected 2 relayed entries, got %d", len(relayed))
	}

	page, err := s.List(ctx, journal.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID.String() != ids[2] {
		t.Fatalf("unexpected page of %d entries", len(page))
	}

	tail, err := s.List(ctx, journal.ListOpts{Offset: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].ID.String() != ids[0] {
		t.Fatalf("unexpected tail of %d entries", len(tail))
	}
}

func TestRecordKeepsKeyOrder(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	record := `{"name":"Jane Doe","email":"jane@example.com","age":"30"}`
	e := &journal.Entry{
		ID:           id.NewJournalID(),
		SubmissionID: id.NewSubmissionID(),
		Record:       []byte(record),
		State:        journal.StateRelayed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Record) != record {
		t.Fatalf("expected record %s, got %s", record, got.Record)
	}
}
