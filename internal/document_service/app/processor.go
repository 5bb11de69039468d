package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

var documentsProcessedCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "docchase",
		Subsystem: "documents",
		Name:      "processed_total",
		Help:      "Documents run through the conversion pipeline, by outcome.",
	},
	[]string{"outcome"},
)

// Converter fetches the media from the provider, uploads it to storage and
// converts it (e.g. PDF to CSV). The implementation lives outside this
// repository; the worker only drives the status machine around it.
type Converter interface {
	Convert(ctx context.Context, doc *domain.Document) error
}

// Processor walks a document through converting -> converted or
// conversion_failed. Failures land in the document's status and error
// column; they are never surfaced back to the ingestion path.
type Processor struct {
	documents domain.DocumentRepository
	converter Converter
	logger    *slog.Logger
}

func NewProcessor(documents domain.DocumentRepository, converter Converter, logger *slog.Logger) *Processor {
	return &Processor{
		documents: documents,
		converter: converter,
		logger:    logger.With("component", "document_processor"),
	}
}

// Process handles one conversion job. The returned error is for the
// consumer's logging only; the document row always ends in a final status.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) error {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	if doc.Status != domain.ConversionStatusPendingUpload {
		// Duplicate delivery of the job; the first consumer already ran.
		p.logger.InfoContext(ctx, "document already processed, skipping",
			"document_id", documentID, "status", doc.Status)
		return nil
	}

	if err := p.documents.SetStatus(ctx, doc.ID, domain.ConversionStatusConverting, sql.NullString{}); err != nil {
		return fmt.Errorf("mark document converting: %w", err)
	}

	if convErr := p.converter.Convert(ctx, doc); convErr != nil {
		documentsProcessedCounter.WithLabelValues("failed").Inc()
		p.logger.ErrorContext(ctx, "document conversion failed",
			"error", convErr, "document_id", doc.ID, "content_type", doc.ContentType)
		errMsg := sql.NullString{String: convErr.Error(), Valid: true}
		if err := p.documents.SetStatus(ctx, doc.ID, domain.ConversionStatusFailed, errMsg); err != nil {
			return fmt.Errorf("record conversion failure: %w", err)
		}
		return nil
	}

	documentsProcessedCounter.WithLabelValues("converted").Inc()
	if err := p.documents.SetStatus(ctx, doc.ID, domain.ConversionStatusConverted, sql.NullString{}); err != nil {
		return fmt.Errorf("mark document converted: %w", err)
	}
	p.logger.InfoContext(ctx, "document converted", "document_id", doc.ID)
	return nil
}
