package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the PostgreSQL journal.
// The record column is TEXT so the posted JSON keeps its key order.
var Migrations = migrate.NewGroup("formrelay")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_formrelay_journal",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS formrelay_journal (
    id             TEXT PRIMARY KEY,
    submission_id  TEXT NOT NULL,
    response_id    TEXT NOT NULL DEFAULT '',
    form_id        TEXT NOT NULL DEFAULT '',
    destination    TEXT NOT NULL DEFAULT '',
    record         TEXT NOT NULL DEFAULT '',
    status_code    INT NOT NULL DEFAULT 0,
    latency_ms     INT NOT NULL DEFAULT 0,
    error          TEXT NOT NULL DEFAULT '',
    state          TEXT NOT NULL,
    debug_emailed  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_formrelay_journal_created ON formrelay_journal (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_formrelay_journal_state ON formrelay_journal (state, created_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS formrelay_journal`)
				return err
			},
		},
	)
}
