package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/beanstack/docchase/internal/platform/messagebroker"
)

// ConversionJob is the NATS payload scheduling one document through the
// upload/conversion pipeline.
type ConversionJob struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// PipelinePublisher dispatches conversion work without blocking the caller.
// Ingestion uses it so a slow conversion can never hold up a webhook ack.
type PipelinePublisher interface {
	EnqueueConversion(ctx context.Context, documentID uuid.UUID) error
}

// NATSPipelinePublisher publishes ConversionJob payloads on a subject
// consumed by the docworker binary.
type NATSPipelinePublisher struct {
	nats    *messagebroker.NATSClient
	subject string
	logger  *slog.Logger
}

func NewNATSPipelinePublisher(nats *messagebroker.NATSClient, subject string, logger *slog.Logger) *NATSPipelinePublisher {
	return &NATSPipelinePublisher{
		nats:    nats,
		subject: subject,
		logger:  logger.With("component", "pipeline_publisher"),
	}
}

func (p *NATSPipelinePublisher) EnqueueConversion(ctx context.Context, documentID uuid.UUID) error {
	data, err := json.Marshal(ConversionJob{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal conversion job: %w", err)
	}
	if err := p.nats.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("enqueue conversion for document %s: %w", documentID, err)
	}
	p.logger.InfoContext(ctx, "conversion job enqueued", "document_id", documentID, "subject", p.subject)
	return nil
}
