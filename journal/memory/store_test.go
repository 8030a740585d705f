package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

func ctx() context.Context { return context.Background() }

func newEntry(state journal.State, at time.Time) *journal.Entry {
	return &journal.Entry{
		ID:           id.NewJournalID(),
		SubmissionID: id.NewSubmissionID(),
		Destination:  "https://example.com/volunteers/submit",
		Record:       []byte(`{"name":"Jane Doe"}`),
		StatusCode:   200,
		State:        state,
		CreatedAt:    at,
	}
}

func TestLifecycle(t *testing.T) {
	s := New()

	if err := s.Migrate(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx()); !errors.Is(err, journal.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
	if err := s.Append(ctx(), newEntry(journal.StateRelayed, time.Now())); !errors.Is(err, journal.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed on append, got %v", err)
	}
}

func TestAppendGet(t *testing.T) {
	s := New()
	e := newEntry(journal.StateRelayed, time.Now().UTC())

	if err := s.Append(ctx(), e); err != nil {
		t.Fatal(err)
	}

	if err := s.Append(ctx(), e); !errors.Is(err, journal.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}

	got, err := s.Get(ctx(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubmissionID.String() != e.SubmissionID.String() {
		t.Fatalf("expected submission %s, got %s", e.SubmissionID, got.SubmissionID)
	}
	if string(got.Record) != `{"name":"Jane Doe"}` {
		t.Fatalf("unexpected record %s", got.Record)
	}

	// Returned entries are copies.
	got.Record[0] = 'X'
	again, _ := s.Get(ctx(), e.ID)
	if again.Record[0] != '{' {
		t.Fatal("store entry was mutated through a returned copy")
	}

	if _, err := s.Get(ctx(), id.NewJournalID()); !errors.Is(err, journal.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestListOrderFilterPagination(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	states := []journal.State{
		journal.StateRelayed,
		journal.StateFailed,
		journal.StateRelayed,
		journal.StateRejected,
		journal.StateRelayed,
	}
	entries := make([]*journal.Entry, len(states))
	for i, st := range states {
		entries[i] = newEntry(st, base.Add(time.Duration(i)*time.Minute))
		if err := s.Append(ctx(), entries[i]); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx(), journal.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}
	if all[0].ID.String() != entries[4].ID.String() {
		t.Fatal("expected newest entry first")
	}

	relayed, err := s.List(ctx(), journal.ListOpts{State: journal.StateRelayed})
	if err != nil {
		t.Fatal(err)
	}
	if len(relayed) != 3 {
		t.Fatalf("expected 3 relayed entries, got %d", len(relayed))
	}

	page, err := s.List(ctx(), journal.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	if page[0].ID.String() != entries[3].ID.String() {
		t.Fatal("expected page to start at the second newest entry")
	}

	empty, err := s.List(ctx(), journal.ListOpts{Offset: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no entries, got %d", len(empty))
	}
}
