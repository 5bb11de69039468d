package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ConversionStatus tracks a document through the upload/conversion
// pipeline. The pipeline itself runs out of band; ingestion only ever
// creates rows in pending_upload.
type ConversionStatus string

const (
	ConversionStatusPendingUpload ConversionStatus = "pending_upload"
	ConversionStatusConverting    ConversionStatus = "converting"
	ConversionStatusConverted     ConversionStatus = "converted"
	ConversionStatusFailed        ConversionStatus = "conversion_failed"
)

// Document is one piece of media received from a client over WhatsApp.
type Document struct {
	ID          uuid.UUID        `json:"id"`
	ClientID    uuid.UUID        `json:"client_id"`
	CampaignID  uuid.NullUUID    `json:"campaign_id,omitempty"`
	MediaURL    string           `json:"media_url"`
	ContentType string           `json:"content_type"`
	Status      ConversionStatus `json:"status"`
	Error       sql.NullString   `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewDocument creates a document awaiting upload/conversion.
func NewDocument(id, clientID uuid.UUID, campaignID uuid.NullUUID, mediaURL, contentType string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:          id,
		ClientID:    clientID,
		CampaignID:  campaignID,
		MediaURL:    mediaURL,
		ContentType: contentType,
		Status:      ConversionStatusPendingUpload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
