// Package storage wraps the queue and relational clients used by the
// event-processor service.
package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"ecommerce-pipeline/sink"
)

// Storage combines the inbound events queue with the relational sink. The
// sink's write and read methods are promoted onto Storage.
type Storage struct {
	*sink.Sink
	queue *azqueue.QueueClient
}

// New connects to the events queue and opens the sink. Unlike the ingress
// API, the processor has no degraded mode: both dependencies are mandatory.
func New(queueConn, queueName, sqlDriver, sqlConn string, logger *log.Logger) (*Storage, error) {
	queue, err := azqueue.NewQueueClientFromConnectionString(queueConn, queueName, nil)
	if err != nil {
		return nil, fmt.Errorf("queue client: %w", err)
	}
	s, err := sink.New(sqlDriver, sqlConn, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{Sink: s, queue: queue}, nil
}

// Dequeue retrieves up to max messages from the events queue.
func (s *Storage) Dequeue(ctx context.Context, max int32) ([]*azqueue.DequeuedMessage, error) {
	opts := &azqueue.DequeueMessagesOptions{NumberOfMessages: &max}
	resp, err := s.queue.DequeueMessages(ctx, opts)
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// DeleteMessage removes a processed message from the queue.
func (s *Storage) DeleteMessage(ctx context.Context, id, receipt string) error {
	_, err := s.queue.DeleteMessage(ctx, id, receipt, nil)
	return err
}
