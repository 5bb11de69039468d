package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beanstack/docchase/internal/platform/messagebroker"
)

// DocumentReceivedEvent is published once per media arrival so the
// out-of-band surfaces (email digests, dashboard) can react.
type DocumentReceivedEvent struct {
	AccountID  uuid.UUID     `json:"account_id"`
	ClientID   uuid.UUID     `json:"client_id"`
	CampaignID uuid.NullUUID `json:"campaign_id,omitempty"`
	DocumentID uuid.UUID     `json:"document_id"`
	ClientName string        `json:"client_name"`
	ReceivedAt time.Time     `json:"received_at"`
}

// Notifier raises domain notifications.
type Notifier interface {
	DocumentReceived(ctx context.Context, ev DocumentReceivedEvent) error
}

// NATSNotifier publishes notification events on a NATS subject.
type NATSNotifier struct {
	nats    *messagebroker.NATSClient
	subject string
	logger  *slog.Logger
}

func NewNATSNotifier(nats *messagebroker.NATSClient, subject string, logger *slog.Logger) *NATSNotifier {
	return &NATSNotifier{
		nats:    nats,
		subject: subject,
		logger:  logger.With("component", "notifier"),
	}
}

func (n *NATSNotifier) DocumentReceived(ctx context.Context, ev DocumentReceivedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal document received event: %w", err)
	}
	if err := n.nats.Publish(ctx, n.subject, data); err != nil {
		return fmt.Errorf("publish document received event: %w", err)
	}
	n.logger.InfoContext(ctx, "document received notification raised",
		"document_id", ev.DocumentID, "client_id", ev.ClientID)
	return nil
}
