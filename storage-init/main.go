package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ecommerce-pipeline/sink"
)

func main() {
	_ = godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	if err := createQueue(ctx, os.Getenv("EVENTS_QUEUE_CONNECTION_STRING"), os.Getenv("EVENTS_QUEUE")); err != nil {
		log.Fatalf("create queue: %v", err)
	}

	if err := createTable(ctx, os.Getenv("SQL_DRIVER"), os.Getenv("SQL_CONNECTION_STRING")); err != nil {
		log.Fatalf("create table: %v", err)
	}

	log.Info("storage init complete")
}

func createQueue(ctx context.Context, connStr, name string) error {
	if connStr == "" || name == "" {
		log.Warn("queue settings missing, skipping queue creation")
		return nil
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	log.WithField("queue", name).Info("queue ready")
	return nil
}

func createTable(ctx context.Context, driver, dsn string) error {
	if dsn == "" {
		log.Warn("SQL_CONNECTION_STRING missing, skipping table creation")
		return nil
	}
	if driver == "" {
		driver = "postgres"
	}
	s, err := sink.New(driver, dsn, log.StandardLogger())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Provision(ctx); err != nil {
		return err
	}
	log.Info("processed_events table ready")
	return nil
}
