package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"ecommerce-pipeline/event-processor/domain"
)

type eventStore interface {
	Insert(ctx context.Context, eventType, eventData, rawData string) error
}

type eventNotifier interface {
	Notify(ctx context.Context, eventType, timestamp string)
}

// ItemStatus classifies the outcome of one message within a batch.
type ItemStatus string

const (
	StatusPersisted ItemStatus = "persisted"
	StatusSkipped   ItemStatus = "skipped"
	StatusFailed    ItemStatus = "failed"
)

// ItemResult records what happened to a single message.
type ItemResult struct {
	Index     int
	Status    ItemStatus
	EventType string
	Err       error
}

// BatchReport is the explicit outcome of one batch run. Batches always
// complete; failures are collected here instead of aborting the run.
type BatchReport struct {
	Items []ItemResult
}

// Counts returns how many items were persisted, skipped and failed.
func (r BatchReport) Counts() (persisted, skipped, failed int) {
	for _, it := range r.Items {
		switch it.Status {
		case StatusPersisted:
			persisted++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// processBatch handles one batch of raw stream messages sequentially. Each
// message is isolated: a malformed payload or a failed insert is recorded in
// the report and processing moves on. Delivery is at-least-once with no
// retry; a failed item is lost for this attempt once the batch is deleted.
func processBatch(ctx context.Context, payloads []string, store eventStore, notifier eventNotifier, logger *log.Logger, now func() time.Time) BatchReport {
	report := BatchReport{Items: make([]ItemResult, 0, len(payloads))}
	for i, payload := range payloads {
		logger.WithField("index", i).Debug("processing event")

		ev, err := domain.Parse(payload, now())
		if err != nil {
			logger.WithError(err).WithField("payload", payload).Error("skipping malformed event")
			report.Items = append(report.Items, ItemResult{Index: i, Status: StatusSkipped, Err: err})
			continue
		}

		eventData, err := ev.Reserialize()
		if err != nil {
			logger.WithError(err).WithField("payload", payload).Error("skipping event")
			report.Items = append(report.Items, ItemResult{Index: i, Status: StatusSkipped, EventType: ev.EventType, Err: err})
			continue
		}

		if err := store.Insert(ctx, ev.EventType, eventData, payload); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"event_type": ev.EventType,
				"payload":    payload,
			}).Error("persist event")
			report.Items = append(report.Items, ItemResult{Index: i, Status: StatusFailed, EventType: ev.EventType, Err: err})
			continue
		}

		if notifier != nil {
			notifier.Notify(ctx, ev.EventType, ev.Timestamp)
		}
		report.Items = append(report.Items, ItemResult{Index: i, Status: StatusPersisted, EventType: ev.EventType})
	}
	return report
}
