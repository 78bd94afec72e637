// Package publisher enqueues events onto the durable event stream. When the
// broker is unconfigured it degrades to a logging no-op instead of failing,
// so the demo keeps serving requests without a provisioned queue.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"ecommerce-pipeline/ingest-api/domain"
)

// ErrPayloadTooLarge is returned when the broker rejects a message that
// exceeds its single-message capacity. The limit is observed from the broker
// response, not pre-checked.
var ErrPayloadTooLarge = errors.New("event payload exceeds broker message capacity")

// queueClient is the slice of azqueue.QueueClient the publisher uses.
type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	GetProperties(ctx context.Context, o *azqueue.GetQueuePropertiesOptions) (azqueue.GetQueuePropertiesResponse, error)
}

// Publisher sends events to the configured queue. The queue field is only set
// when the broker was configured at construction; every operation checks the
// configured state first rather than null-checking mid-flight.
type Publisher struct {
	queue     queueClient
	queueName string
	logger    *log.Logger
}

// New builds a Publisher. Empty connection details put it in degraded mode:
// construction succeeds and Send becomes a warning no-op.
func New(connStr, queueName string, logger *log.Logger) (*Publisher, error) {
	p := &Publisher{queueName: queueName, logger: logger}
	if connStr == "" || queueName == "" {
		logger.Warn("event queue not configured, publisher running in degraded mode")
		return p, nil
	}
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, fmt.Errorf("queue client: %w", err)
	}
	p.queue = q
	logger.WithField("queue", queueName).Info("event queue publisher initialized")
	return p, nil
}

// Configured reports whether the publisher has a live broker connection.
func (p *Publisher) Configured() bool {
	return p.queue != nil
}

// Send serializes the event and enqueues it as a single message. In degraded
// mode it logs and returns nil without any I/O. Transport failures propagate
// to the caller; there is no retry or backoff here beyond what the SDK client
// was configured with.
func (p *Publisher) Send(ctx context.Context, ev domain.Event) error {
	if p.queue == nil {
		p.logger.Warn("event queue not configured, event not sent")
		return nil
	}
	data, err := sonic.ConfigStd.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.StatusCode == 413 || respErr.ErrorCode == "RequestBodyTooLarge") {
			return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
		}
		return fmt.Errorf("enqueue event: %w", err)
	}
	p.logger.WithFields(log.Fields{
		"queue":      p.queueName,
		"event_type": ev.EventType,
		"bytes":      len(data),
	}).Debug("event sent")
	return nil
}

// TestConnection performs a metadata round-trip against the broker and
// reports health as a boolean. Degraded publishers are always unhealthy.
func (p *Publisher) TestConnection(ctx context.Context) bool {
	if p.queue == nil {
		return false
	}
	if _, err := p.queue.GetProperties(ctx, nil); err != nil {
		p.logger.WithError(err).Error("event queue connection test failed")
		return false
	}
	return true
}
