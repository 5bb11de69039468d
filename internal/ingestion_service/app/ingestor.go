package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beanstack/docchase/internal/assistant"
	"github.com/beanstack/docchase/internal/core_campaign/domain"
	"github.com/beanstack/docchase/internal/core_campaign/progress"
	documentapp "github.com/beanstack/docchase/internal/document_service/app"
	messagingapp "github.com/beanstack/docchase/internal/messaging_service/app"
	notificationapp "github.com/beanstack/docchase/internal/notification_service/app"
)

// InboundMessage is the normalized form of one transport webhook event.
type InboundMessage struct {
	FromPhone         string
	Body              string
	MediaURL          string
	MediaContentType  string
	ProviderMessageID string
}

func (m InboundMessage) HasMedia() bool {
	return m.MediaURL != ""
}

// Ingestor translates inbound transport events into enrollment, message and
// document updates. Errors returned here are for the caller's logging only:
// the webhook layer always acks the transport so it never retries delivery
// of an event we have already seen.
type Ingestor struct {
	clients     domain.ClientRepository
	campaigns   domain.CampaignRepository
	enrollments domain.EnrollmentRepository
	messages    domain.MessageRepository
	documents   domain.DocumentRepository
	machine     *progress.Machine
	sender      messagingapp.MessageSender
	replies     assistant.ReplyGenerator
	pipeline    documentapp.PipelinePublisher
	notifier    notificationapp.Notifier
	logger      *slog.Logger
}

func NewIngestor(
	clients domain.ClientRepository,
	campaigns domain.CampaignRepository,
	enrollments domain.EnrollmentRepository,
	messages domain.MessageRepository,
	documents domain.DocumentRepository,
	machine *progress.Machine,
	sender messagingapp.MessageSender,
	replies assistant.ReplyGenerator,
	pipeline documentapp.PipelinePublisher,
	notifier notificationapp.Notifier,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		clients:     clients,
		campaigns:   campaigns,
		enrollments: enrollments,
		messages:    messages,
		documents:   documents,
		machine:     machine,
		sender:      sender,
		replies:     replies,
		pipeline:    pipeline,
		notifier:    notifier,
		logger:      logger.With("component", "ingestor"),
	}
}

// HandleInbound processes one inbound message event.
func (s *Ingestor) HandleInbound(ctx context.Context, in InboundMessage) error {
	client, err := s.clients.GetByPhone(ctx, in.FromPhone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown senders are dropped silently so the transport sees a
			// clean ack and has no reason to retry.
			inboundEventsCounter.WithLabelValues("unknown_sender").Inc()
			s.logger.InfoContext(ctx, "inbound message from unknown sender dropped", "from", in.FromPhone)
			return nil
		}
		inboundEventsCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("resolve sender %s: %w", in.FromPhone, err)
	}

	enrollment, err := s.enrollments.GetLatestActiveByClient(ctx, client.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			inboundEventsCounter.WithLabelValues("no_active_enrollment").Inc()
			s.logger.InfoContext(ctx, "inbound message without active enrollment dropped",
				"client_id", client.ID, "from", in.FromPhone)
			return nil
		}
		inboundEventsCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("resolve active enrollment for client %s: %w", client.ID, err)
	}

	campaign, err := s.campaigns.GetByID(ctx, enrollment.CampaignID)
	if err != nil {
		inboundEventsCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("load campaign %s: %w", enrollment.CampaignID, err)
	}

	if err := s.appendInboundLog(ctx, client, campaign, in); err != nil {
		inboundEventsCounter.WithLabelValues("store_error").Inc()
		return err
	}

	if in.HasMedia() {
		s.handleMediaArrival(ctx, client, campaign, enrollment, in)
	}

	s.maybeReply(ctx, client, campaign, in)

	inboundEventsCounter.WithLabelValues("processed").Inc()
	return nil
}

func (s *Ingestor) appendInboundLog(ctx context.Context, client *domain.Client, campaign *domain.Campaign, in InboundMessage) error {
	entry := &domain.MessageLog{
		ID:             uuid.New(),
		AccountID:      client.AccountID,
		ClientID:       client.ID,
		CampaignID:     uuid.NullUUID{UUID: campaign.ID, Valid: true},
		Direction:      domain.DirectionInbound,
		Body:           in.Body,
		DeliveryStatus: domain.DeliveryStatusDelivered,
		CreatedAt:      time.Now().UTC(),
	}
	if in.ProviderMessageID != "" {
		entry.ProviderMessageID.String = in.ProviderMessageID
		entry.ProviderMessageID.Valid = true
	}
	if err := s.messages.Create(ctx, entry); err != nil {
		return fmt.Errorf("append inbound message log: %w", err)
	}
	return nil
}

// handleMediaArrival records the document, advances the enrollment and
// dispatches the conversion pipeline. Every step past the document insert is
// best-effort: a pipeline or notification hiccup is logged, never bubbled up
// to the transport.
func (s *Ingestor) handleMediaArrival(ctx context.Context, client *domain.Client, campaign *domain.Campaign, enrollment *domain.Enrollment, in InboundMessage) {
	doc := domain.NewDocument(uuid.New(), client.ID,
		uuid.NullUUID{UUID: campaign.ID, Valid: true}, in.MediaURL, in.MediaContentType)
	if err := s.documents.Create(ctx, doc); err != nil {
		s.logger.ErrorContext(ctx, "failed to record received document",
			"error", err, "client_id", client.ID, "media_url", in.MediaURL)
		return
	}

	receivedAt := time.Now().UTC()
	if err := s.machine.MarkReceived(ctx, enrollment.ID, receivedAt); err != nil {
		// A failed enrollment can still send media; the document is kept
		// but the terminal status stands.
		s.logger.WarnContext(ctx, "could not mark enrollment received",
			"error", err, "enrollment_id", enrollment.ID)
	}

	if err := s.pipeline.EnqueueConversion(ctx, doc.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue document conversion",
			"error", err, "document_id", doc.ID)
	}

	if err := s.notifier.DocumentReceived(ctx, notificationapp.DocumentReceivedEvent{
		AccountID:  client.AccountID,
		ClientID:   client.ID,
		CampaignID: uuid.NullUUID{UUID: campaign.ID, Valid: true},
		DocumentID: doc.ID,
		ClientName: client.Name,
		ReceivedAt: receivedAt,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to raise document received notification",
			"error", err, "document_id", doc.ID)
	}

	inboundEventsCounter.WithLabelValues("media_received").Inc()
}

// maybeReply sends at most one automated reply per inbound event.
func (s *Ingestor) maybeReply(ctx context.Context, client *domain.Client, campaign *domain.Campaign, in InboundMessage) {
	if !shouldAutoReply(in.Body, in.HasMedia()) {
		return
	}

	replyText, err := s.replies.GenerateReply(ctx, assistant.ReplyContext{
		ClientName:          client.Name,
		InboundBody:         in.Body,
		DocumentDescription: campaign.DocumentDescription(),
		HasMedia:            in.HasMedia(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "reply generation failed", "error", err, "client_id", client.ID)
		return
	}

	if _, err := s.sender.Send(ctx, messagingapp.OutboundMessage{
		AccountID:  client.AccountID,
		ClientID:   client.ID,
		CampaignID: uuid.NullUUID{UUID: campaign.ID, Valid: true},
		Recipient:  client.Phone,
		Body:       replyText,
	}); err != nil {
		s.logger.ErrorContext(ctx, "auto-reply send failed", "error", err, "client_id", client.ID)
	}
}

// HandleStatusCallback overwrites a logged message's delivery status. The
// callback is purely observational; unknown correlation ids are a no-op.
func (s *Ingestor) HandleStatusCallback(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) error {
	updated, err := s.messages.UpdateDeliveryStatus(ctx, providerMessageID, status)
	if err != nil {
		statusCallbacksCounter.WithLabelValues("store_error").Inc()
		return fmt.Errorf("update delivery status for %s: %w", providerMessageID, err)
	}
	if !updated {
		statusCallbacksCounter.WithLabelValues("unknown_id").Inc()
		s.logger.DebugContext(ctx, "status callback for unknown provider message id",
			"provider_message_id", providerMessageID, "status", status)
		return nil
	}
	statusCallbacksCounter.WithLabelValues("updated").Inc()
	return nil
}
