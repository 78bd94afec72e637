package api

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ingestEventName   = "ingest.events.request"
	ingestEventDomain = "ecommerce-pipeline"
)

var (
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events handed to the stream publisher, by event type.",
		},
		[]string{"event_type"},
	)
	eventsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "events_saved_total",
			Help: "Events written directly to the relational sink.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublishedTotal)
	prometheus.MustRegister(eventsSavedTotal)
}

// eventRequestMetrics collects per-request timings for the event ingestion
// routes. It opens a span on the ambient tracer provider and emits one
// structured observability event when the request finishes.
type eventRequestMetrics struct {
	logger          *log.Logger
	route           string
	start           time.Time
	span            trace.Span
	decodeDuration  time.Duration
	publishDuration time.Duration
	eventType       string
	errorStage      string
}

func newEventRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*eventRequestMetrics, context.Context) {
	m := &eventRequestMetrics{
		logger: logger,
		route:  route,
		start:  time.Now(),
	}
	spanCtx, span := otel.Tracer("ingest-api").Start(ctx, route)
	m.span = span
	return m, spanCtx
}

func (m *eventRequestMetrics) ObserveDecode(d time.Duration) {
	if d <= 0 {
		return
	}
	m.decodeDuration = d
}

func (m *eventRequestMetrics) ObservePublish(d time.Duration) {
	if d <= 0 {
		return
	}
	m.publishDuration = d
}

func (m *eventRequestMetrics) SetEventType(t string) {
	if t == "" {
		return
	}
	m.eventType = t
}

func (m *eventRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits the request's observability event and closes its span.
func (m *eventRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	attrs := map[string]any{
		"http.route":       m.route,
		"http.status_code": status,
		"total_ms":         durationToMillis(time.Since(m.start)),
	}
	if m.decodeDuration > 0 {
		attrs["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.publishDuration > 0 {
		attrs["publish_ms"] = durationToMillis(m.publishDuration)
	}
	if m.eventType != "" {
		attrs["pipeline.event_type"] = m.eventType
	}
	if m.errorStage != "" {
		attrs["pipeline.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", m.route),
			attribute.Int("http.status_code", status),
		)
		if m.eventType != "" {
			m.span.SetAttributes(attribute.String("pipeline.event_type", m.eventType))
		}
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("pipeline.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	severityText, severityNumber := severityForStatus(status, err)
	m.logger.WithFields(log.Fields{
		"event.name":      ingestEventName,
		"event.domain":    ingestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
