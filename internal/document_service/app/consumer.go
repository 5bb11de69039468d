package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/beanstack/docchase/internal/platform/messagebroker"
)

// Consumer subscribes to the conversion subject and feeds jobs to the
// Processor. Each job is handled inline on the NATS delivery goroutine;
// conversion latency is acceptable there because the queue group spreads
// load across worker instances.
type Consumer struct {
	natsClient *messagebroker.NATSClient
	processor  *Processor
	logger     *slog.Logger
}

func NewConsumer(natsClient *messagebroker.NATSClient, processor *Processor, logger *slog.Logger) *Consumer {
	return &Consumer{
		natsClient: natsClient,
		processor:  processor,
		logger:     logger.With("component", "document_consumer"),
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, subject, queueGroup string) error {
	handler := func(msg *nats.Msg) {
		var job ConversionJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			c.logger.ErrorContext(ctx, "failed to decode conversion job",
				"error", err, "subject", msg.Subject, "data", string(msg.Data))
			return
		}

		if err := c.processor.Process(ctx, job.DocumentID); err != nil {
			c.logger.ErrorContext(ctx, "conversion job failed",
				"error", err, "document_id", job.DocumentID)
		}
	}

	sub, err := c.natsClient.Subscribe(ctx, subject, queueGroup, handler)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "document consumer subscribed", "subject", subject, "queue_group", queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		c.logger.WarnContext(ctx, "failed to drain subscription", "error", err)
	}
	return ctx.Err()
}
