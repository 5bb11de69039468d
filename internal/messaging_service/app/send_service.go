package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	"github.com/beanstack/docchase/internal/messaging_service/provider"
)

// OutboundMessage describes one message to push to a client. Either Body or
// TemplateName must be set.
type OutboundMessage struct {
	AccountID    uuid.UUID
	ClientID     uuid.UUID
	CampaignID   uuid.NullUUID
	Recipient    string // E.164 phone
	Body         string
	TemplateName string
	TemplateVars []string
}

// MessageSender is the outbound contract the launch controller, reminder
// engine and auto-reply path depend on.
type MessageSender interface {
	Send(ctx context.Context, msg OutboundMessage) (*domain.MessageLog, error)
}

// SendService pushes messages through the transport provider and records
// every attempt in the message log, successful or not.
type SendService struct {
	prov     provider.WhatsAppSenderProvider
	messages domain.MessageRepository
	logger   *slog.Logger
}

func NewSendService(prov provider.WhatsAppSenderProvider, messages domain.MessageRepository, logger *slog.Logger) *SendService {
	return &SendService{
		prov:     prov,
		messages: messages,
		logger:   logger.With("component", "send_service"),
	}
}

// Send submits the message and appends the log row. The returned error is
// the transport failure, if any; the log row is written either way so the
// chat history reflects the attempt.
func (s *SendService) Send(ctx context.Context, msg OutboundMessage) (*domain.MessageLog, error) {
	logEntry := &domain.MessageLog{
		ID:             uuid.New(),
		AccountID:      msg.AccountID,
		ClientID:       msg.ClientID,
		CampaignID:     msg.CampaignID,
		Direction:      domain.DirectionOutbound,
		Body:           msg.Body,
		DeliveryStatus: domain.DeliveryStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}
	if msg.TemplateName != "" {
		logEntry.TemplateName = sql.NullString{String: msg.TemplateName, Valid: true}
	}

	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(s.prov.GetName()))
	resp, sendErr := s.prov.Send(ctx, provider.SendRequestDetails{
		InternalMessageID: logEntry.ID.String(),
		Recipient:         msg.Recipient,
		Body:              msg.Body,
		TemplateName:      msg.TemplateName,
		TemplateVars:      msg.TemplateVars,
	})
	timer.ObserveDuration()

	if sendErr != nil {
		outboundMessagesCounter.WithLabelValues(s.prov.GetName(), "failed").Inc()
		logEntry.DeliveryStatus = domain.DeliveryStatusFailed
		if err := s.messages.Create(ctx, logEntry); err != nil {
			s.logger.ErrorContext(ctx, "failed to log failed outbound message",
				"error", err, "message_id", logEntry.ID, "client_id", msg.ClientID)
		}
		return nil, fmt.Errorf("send to %s: %w", msg.Recipient, sendErr)
	}

	outboundMessagesCounter.WithLabelValues(s.prov.GetName(), "success").Inc()
	logEntry.ProviderMessageID = sql.NullString{String: resp.ProviderMessageID, Valid: true}
	if resp.ProviderStatus != "" {
		logEntry.DeliveryStatus = domain.DeliveryStatus(resp.ProviderStatus)
	}
	if err := s.messages.Create(ctx, logEntry); err != nil {
		// The message is already on its way; losing the log row is an
		// observability gap, not a send failure.
		s.logger.ErrorContext(ctx, "failed to log outbound message",
			"error", err, "message_id", logEntry.ID, "provider_message_id", resp.ProviderMessageID)
	}
	return logEntry, nil
}
