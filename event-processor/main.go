package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"ecommerce-pipeline/event-processor/storage"
)

func main() {
	godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())
	log.Info("event processor starting")

	queueConn := os.Getenv("EVENTS_QUEUE_CONNECTION_STRING")
	queueName := os.Getenv("EVENTS_QUEUE")
	sqlConn := os.Getenv("SQL_CONNECTION_STRING")
	if queueConn == "" || queueName == "" || sqlConn == "" {
		log.Fatal("missing queue or sql config")
	}
	sqlDriver := os.Getenv("SQL_DRIVER")
	if sqlDriver == "" {
		sqlDriver = "postgres"
	}

	store, err := storage.New(queueConn, queueName, sqlDriver, sqlConn, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		opts, err := redis.ParseURL(redisConn)
		if err != nil {
			log.Fatalf("invalid REDIS_CONNECTION_STRING: %v", err)
		}
		rc = redis.NewClient(opts)
	}
	channel := os.Getenv("EVENTS_CHANNEL")
	if channel == "" {
		channel = "processed-events"
	}
	notifier := NewNotifier(rc, channel, logger)

	batchSize := int32(16)
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 32 {
			log.Fatalf("invalid BATCH_SIZE: %v", v)
		}
		batchSize = int32(n)
	}
	pollInterval := time.Second
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid POLL_INTERVAL: %v", v)
		}
		pollInterval = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for ctx.Err() == nil {
		msgs, err := store.Dequeue(ctx, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.WithError(err).Error("receive batch")
			sleep(ctx, pollInterval)
			continue
		}
		if len(msgs) == 0 {
			sleep(ctx, pollInterval)
			continue
		}

		payloads := make([]string, len(msgs))
		for i, m := range msgs {
			if m.MessageText != nil {
				payloads[i] = *m.MessageText
			}
		}

		report := processBatch(ctx, payloads, store, notifier, logger, time.Now)
		persisted, skipped, failed := report.Counts()
		logger.WithFields(log.Fields{
			"batch":     len(msgs),
			"persisted": persisted,
			"skipped":   skipped,
			"failed":    failed,
		}).Info("batch processed")

		// at-least-once with no retry: messages are deleted whether or
		// not their item persisted, and a failed delete surfaces the
		// same payload again on a later dequeue.
		for _, m := range msgs {
			if m.MessageID == nil || m.PopReceipt == nil {
				continue
			}
			if err := store.DeleteMessage(ctx, *m.MessageID, *m.PopReceipt); err != nil {
				logger.WithError(err).Error("delete message")
			}
		}
	}

	log.Info("event processor stopped")
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
