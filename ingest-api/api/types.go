package api

import (
	"context"

	"ecommerce-pipeline/ingest-api/domain"
	"ecommerce-pipeline/sink"
)

// Publisher abstracts the event stream for handlers.
type Publisher interface {
	// Send enqueues one event. Degraded publishers return nil without I/O.
	Send(ctx context.Context, ev domain.Event) error
	// TestConnection reports broker health without erroring.
	TestConnection(ctx context.Context) bool
	// Configured reports whether a broker connection exists at all.
	Configured() bool
}

// EventStore abstracts the relational sink for handlers.
type EventStore interface {
	Save(ctx context.Context, eventType string, payload []byte) bool
	GetRecent(ctx context.Context, n int) []sink.Row
	TestConnection(ctx context.Context) bool
}
