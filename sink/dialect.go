package sink

import "fmt"

// dialect carries the per-driver SQL for the processed_events table. Only the
// statements differ between drivers; the schema is identical.
type dialect struct {
	createStmts  []string
	insertEvent  string
	selectRecent string
}

var dialects = map[string]dialect{
	"postgres": {
		createStmts: []string{
			`CREATE TABLE IF NOT EXISTS processed_events (
				id BIGSERIAL PRIMARY KEY,
				event_type TEXT NOT NULL,
				event_data TEXT NOT NULL,
				processed_at TIMESTAMPTZ NOT NULL,
				raw_data TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ix_processed_events_event_type ON processed_events (event_type)`,
			`CREATE INDEX IF NOT EXISTS ix_processed_events_processed_at ON processed_events (processed_at)`,
		},
		insertEvent: `INSERT INTO processed_events (event_type, event_data, processed_at, raw_data)
			VALUES ($1, $2, $3, $4)`,
		selectRecent: `SELECT id, event_type, event_data, processed_at, raw_data
			FROM processed_events ORDER BY processed_at DESC, id DESC LIMIT $1`,
	},
	"sqlite": {
		createStmts: []string{
			`CREATE TABLE IF NOT EXISTS processed_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				event_type TEXT NOT NULL,
				event_data TEXT NOT NULL,
				processed_at TIMESTAMP NOT NULL,
				raw_data TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ix_processed_events_event_type ON processed_events (event_type)`,
			`CREATE INDEX IF NOT EXISTS ix_processed_events_processed_at ON processed_events (processed_at)`,
		},
		insertEvent: `INSERT INTO processed_events (event_type, event_data, processed_at, raw_data)
			VALUES (?, ?, ?, ?)`,
		selectRecent: `SELECT id, event_type, event_data, processed_at, raw_data
			FROM processed_events ORDER BY processed_at DESC, id DESC LIMIT ?`,
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
	}
	return d, nil
}
