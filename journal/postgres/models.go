package postgres

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/formrelay/id"
	"github.com/xraph/formrelay/journal"
)

type entryModel struct {
	grove.BaseModel `grove:"table:formrelay_journal"`

	ID           string    `grove:"id,pk"`
	SubmissionID string    `grove:"submission_id"`
	ResponseID   string    `grove:"response_id"`
	FormID       string    `grove:"form_id"`
	Destination  string    `grove:"destination"`
	Record       string    `grove:"record"`
	StatusCode   int       `grove:"status_code"`
	LatencyMs    int       `grove:"latency_ms"`
	Error        string    `grove:"error"`
	State        string    `grove:"state"`
	DebugEmailed bool      `grove:"debug_emailed"`
	CreatedAt    time.Time `grove:"created_at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	return &entryModel{
		ID:           e.ID.String(),
		SubmissionID: e.SubmissionID.String(),
		ResponseID:   e.ResponseID,
		FormID:       e.FormID,
		Destination:  e.Destination,
		Record:       string(e.Record),
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
	e := &journal.Entry{
		ID:           entryID,
		SubmissionID: subID,
		ResponseID:   m.ResponseID,
		FormID:       m.FormID,
		Destination:  m.Destination,
		StatusCode:   m.StatusCode,
		LatencyMs:    m.LatencyMs,
		Error:        m.Error,
		State:        journal.State(m.State),
		DebugEmailed: m.DebugEmailed,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	if m.Record != "" {
		e.Record = []byte(m.Record)
	}
	return e, nil
}
