package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/formrelay/id"
)

func TestNewSubmissionIDPrefix(t *testing.T) {
	sid := id.NewSubmissionID()

	if sid.Prefix() != id.PrefixSubmission {
		t.Fatalf("expected prefix %q, got %q", id.PrefixSubmission, sid.Prefix())
	}
	if !strings.HasPrefix(sid.String(), "sub_") {
		t.Fatalf("expected sub_ prefix, got %q", sid.String())
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	jid := id.NewJournalID()

	if _, err := id.ParseSubmissionID(jid.String()); err == nil {
		t.Fatal("expected prefix mismatch error")
	}

	parsed, err := id.ParseJournalID(jid.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != jid.String() {
		t.Fatalf("round trip: got %q, want %q", parsed.String(), jid.String())
	}
}

func TestNilID(t *testing.T) {
	var zero id.ID

	if !zero.IsNil() {
		t.Fatal("zero value should be Nil")
	}
	if zero.String() != "" {
		t.Fatalf("expected empty string, got %q", zero.String())
	}

	v, err := zero.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil driver value, got %v", v)
	}
}

func TestScan(t *testing.T) {
	sid := id.NewSubmissionID()

	var got id.ID
	if err := got.Scan([]byte(sid.String())); err != nil {
		t.Fatal(err)
	}
	if got.String() != sid.String() {
		t.Fatalf("got %q, want %q", got.String(), sid.String())
	}

	if err := got.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
