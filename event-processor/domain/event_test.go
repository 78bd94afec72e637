package domain

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseExtractsFields(t *testing.T) {
	payload := `{"eventType":"Purchase","timestamp":"2025-05-31T08:00:00Z","price":19.99}`
	ev, err := Parse(payload, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.EventType != "Purchase" {
		t.Fatalf("unexpected event type %q", ev.EventType)
	}
	if ev.Timestamp != "2025-05-31T08:00:00Z" {
		t.Fatalf("unexpected timestamp %q", ev.Timestamp)
	}
	if ev.Doc["price"].(float64) != 19.99 {
		t.Fatalf("unexpected doc %v", ev.Doc)
	}
}

func TestParseDefaultsMissingFields(t *testing.T) {
	ev, err := Parse(`{"userId":"u1"}`, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.EventType != "Unknown" {
		t.Fatalf("expected Unknown, got %q", ev.EventType)
	}
	if ev.Timestamp != testNow.Format(time.RFC3339) {
		t.Fatalf("expected ingestion time default, got %q", ev.Timestamp)
	}
}

func TestParseDefaultsNonStringFields(t *testing.T) {
	ev, err := Parse(`{"eventType":42,"timestamp":1717243200}`, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.EventType != "Unknown" {
		t.Fatalf("expected Unknown for non-string event type, got %q", ev.EventType)
	}
	if ev.Timestamp != testNow.Format(time.RFC3339) {
		t.Fatalf("expected default for non-string timestamp, got %q", ev.Timestamp)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse(`{"eventType":`, testNow); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseRejectsNonObjectPayload(t *testing.T) {
	for _, payload := range []string{`[1,2,3]`, `"purchase"`, `42`, `null`} {
		if _, err := Parse(payload, testNow); err == nil {
			t.Fatalf("expected parse error for %s", payload)
		}
	}
}

func TestReserializeRoundTrips(t *testing.T) {
	ev, err := Parse(`{"eventType":"Search","query":"shoes"}`, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := ev.Reserialize()
	if err != nil {
		t.Fatalf("reserialize: %v", err)
	}
	if !strings.Contains(out, `"eventType":"Search"`) || !strings.Contains(out, `"query":"shoes"`) {
		t.Fatalf("unexpected reserialized doc %s", out)
	}
}
