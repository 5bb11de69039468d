package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// MessageDirection distinguishes chat log entries.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// DeliveryStatus mirrors the transport provider's delivery lifecycle.
type DeliveryStatus string

const (
	DeliveryStatusQueued      DeliveryStatus = "queued"
	DeliveryStatusSending     DeliveryStatus = "sending"
	DeliveryStatusSent        DeliveryStatus = "sent"
	DeliveryStatusDelivered   DeliveryStatus = "delivered"
	DeliveryStatusUndelivered DeliveryStatus = "undelivered"
	DeliveryStatusFailed      DeliveryStatus = "failed"
)

// MessageLog is an immutable log line of one inbound or outbound chat event.
// Rows are append-only; DeliveryStatus is the only field updated after
// insert, keyed by the provider correlation id.
type MessageLog struct {
	ID                uuid.UUID        `json:"id"`
	AccountID         uuid.UUID        `json:"account_id"`
	ClientID          uuid.UUID        `json:"client_id"`
	CampaignID        uuid.NullUUID    `json:"campaign_id,omitempty"`
	Direction         MessageDirection `json:"direction"`
	Body              string           `json:"body"`
	TemplateName      sql.NullString   `json:"template_name,omitempty"`
	DeliveryStatus    DeliveryStatus   `json:"delivery_status"`
	ProviderMessageID sql.NullString   `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
