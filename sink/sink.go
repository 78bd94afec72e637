// Package sink persists pipeline events into a relational table. Both the
// ingress API and the stream consumer write through it; the canonical
// destination is the single processed_events table.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Row is one persisted event as read back from the table.
type Row struct {
	ID          int64     `json:"id"`
	EventType   string    `json:"eventType"`
	EventData   string    `json:"eventData"`
	ProcessedAt time.Time `json:"processedAt"`
	RawData     string    `json:"rawData"`
}

// Sink writes events to and reads them back from the processed_events table.
// Connection pooling is whatever database/sql provides natively; every
// statement runs on its own pooled connection and no transaction spans more
// than one statement.
type Sink struct {
	db          *sql.DB
	d           dialect
	logger      *log.Logger
	provisioned atomic.Bool
	now         func() time.Time
}

// New opens a sink for the given driver ("postgres" or "sqlite") and DSN. The
// destination table is not touched here; it is provisioned lazily on first
// write so a misconfigured database does not block startup.
func New(driver, dsn string, logger *log.Logger) (*Sink, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Sink{db: db, d: d, logger: logger, now: time.Now}, nil
}

// ensureTable issues the conditional CREATE statements once per process.
// Concurrent first callers may all run the DDL; that race is benign because
// the statements themselves are conditional.
func (s *Sink) ensureTable(ctx context.Context) error {
	if s.provisioned.Load() {
		return nil
	}
	for _, stmt := range s.d.createStmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure processed_events: %w", err)
		}
	}
	s.provisioned.Store(true)
	s.logger.Debug("processed_events table ensured")
	return nil
}

// Provision creates the destination table up front. Run-once provisioning
// tools call this; regular writers rely on the lazy path in ensureTable.
func (s *Sink) Provision(ctx context.Context) error {
	return s.ensureTable(ctx)
}

// Insert appends one row. Errors propagate so the stream consumer's
// per-message guard can isolate them.
func (s *Sink) Insert(ctx context.Context, eventType, eventData, rawData string) error {
	if err := s.ensureTable(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.d.insertEvent, eventType, eventData, s.now().UTC(), rawData); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Save appends one row on the convenience path used by the API: failures are
// logged and collapsed to false instead of propagating.
func (s *Sink) Save(ctx context.Context, eventType string, payload []byte) bool {
	if err := s.Insert(ctx, eventType, string(payload), string(payload)); err != nil {
		s.logger.WithError(err).Error("save event")
		return false
	}
	return true
}

// GetRecent returns the most recently persisted rows, newest first. On any
// failure it logs and returns an empty slice rather than erroring.
func (s *Sink) GetRecent(ctx context.Context, n int) []Row {
	if n <= 0 {
		n = 10
	}
	if err := s.ensureTable(ctx); err != nil {
		s.logger.WithError(err).Error("get recent events")
		return []Row{}
	}
	rows, err := s.db.QueryContext(ctx, s.d.selectRecent, n)
	if err != nil {
		s.logger.WithError(err).Error("get recent events")
		return []Row{}
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.EventType, &r.EventData, &r.ProcessedAt, &r.RawData); err != nil {
			s.logger.WithError(err).Error("scan recent event row")
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Error("iterate recent event rows")
	}
	return out
}

// TestConnection reports whether the database answers a ping.
func (s *Sink) TestConnection(ctx context.Context) bool {
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.WithError(err).Error("sql connection test failed")
		return false
	}
	return true
}

// Close releases the underlying pool.
func (s *Sink) Close() error {
	return s.db.Close()
}
