package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single e-commerce occurrence flowing through the pipeline.
// It is immutable once normalized; downstream components never mutate it.
type Event struct {
	EventID    string         `json:"eventId"`
	EventType  string         `json:"eventType"`
	UserID     string         `json:"userId,omitempty"`
	SessionID  string         `json:"sessionId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	ProductID  string         `json:"productId,omitempty"`
	CategoryID string         `json:"categoryId,omitempty"`
	Price      float64        `json:"price,omitempty"`
	Quantity   int            `json:"quantity,omitempty"`
	Currency   string         `json:"currency"`
	Source     string         `json:"source,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Normalize fills producer-side defaults on a freshly constructed event and
// returns the completed value. Field contents are never validated: unknown
// event types, negative prices and unresolvable identifiers are stored as-is.
func (e Event) Normalize(now time.Time) Event {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
	if e.Currency == "" {
		e.Currency = "USD"
	}
	return e
}
