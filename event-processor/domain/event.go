// Package domain holds the consumer-side view of raw stream messages. The
// consumer never assumes messages were produced by the ingress API: every
// payload is an opaque string until parsed here.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParsedEvent is one successfully parsed stream message together with the
// fields the pipeline extracts from it.
type ParsedEvent struct {
	EventType string
	Timestamp string
	Doc       map[string]any
}

// Parse decodes a raw message as a generic JSON object and extracts eventType
// and timestamp with defaults ("Unknown" and now in RFC3339) when absent.
// Non-object payloads are parse failures: there are no fields to extract.
func Parse(payload string, now time.Time) (ParsedEvent, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return ParsedEvent{}, fmt.Errorf("parse event: %w", err)
	}
	if doc == nil {
		return ParsedEvent{}, fmt.Errorf("parse event: payload is not a JSON object")
	}

	eventType := "Unknown"
	if v, ok := doc["eventType"].(string); ok && v != "" {
		eventType = v
	}
	timestamp := now.UTC().Format(time.RFC3339)
	if v, ok := doc["timestamp"].(string); ok && v != "" {
		timestamp = v
	}
	return ParsedEvent{EventType: eventType, Timestamp: timestamp, Doc: doc}, nil
}

// Reserialize renders the parsed document back to JSON for the structured
// column. The raw payload is stored separately, verbatim.
func (p ParsedEvent) Reserialize() (string, error) {
	data, err := json.Marshal(p.Doc)
	if err != nil {
		return "", fmt.Errorf("reserialize event: %w", err)
	}
	return string(data), nil
}
