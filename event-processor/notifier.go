package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Notifier publishes a small notification on a Redis channel after each
// persisted event so dashboards can follow the pipeline live. With no Redis
// client it is a no-op; notification failures never affect persistence.
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

// NewNotifier wraps the given client. client may be nil, which disables
// notifications.
func NewNotifier(client *redis.Client, channel string, logger *log.Logger) *Notifier {
	if client == nil {
		logger.Warn("redis not configured, processed-event notifications disabled")
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

type notification struct {
	EventType   string    `json:"eventType"`
	Timestamp   string    `json:"timestamp"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Notify publishes one processed-event notification.
func (n *Notifier) Notify(ctx context.Context, eventType, timestamp string) {
	if n.client == nil {
		return
	}
	payload, err := json.Marshal(notification{
		EventType:   eventType,
		Timestamp:   timestamp,
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		n.logger.WithError(err).Error("encode notification")
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Errorf("unable to publish notification for %s to %s", eventType, n.channel)
	}
}
