package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func TestNotifierPublishesOnChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "processed-events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewNotifier(client, "processed-events", log.New())
	n.Notify(ctx, "Purchase", "2025-06-01T12:00:00Z")

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got notification
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if got.EventType != "Purchase" || got.Timestamp != "2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected notification %+v", got)
	}
	if got.ProcessedAt.IsZero() {
		t.Fatal("processedAt must be set")
	}
}

func TestNotifierWithoutClientIsNoop(t *testing.T) {
	n := NewNotifier(nil, "processed-events", log.New())
	n.Notify(context.Background(), "Purchase", "2025-06-01T12:00:00Z")
}
