package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CampaignRepository manages campaign rows.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	// SetStatus moves a campaign between lifecycle states. completedAt is
	// only stamped for the completed status.
	SetStatus(ctx context.Context, id uuid.UUID, status CampaignStatus, completedAt sql.NullTime) error
}

// EnrollmentRepository manages campaign-client enrollment rows. The
// Set*/Mark* methods are conditional updates: they only touch rows still
// satisfying the state-machine guard and report whether a row changed, so
// two overlapping passes cannot both stamp the same timestamp.
type EnrollmentRepository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error)

	// GetLatestActiveByClient resolves the client's single active
	// enrollment: the one in the most recently created active campaign.
	// Returns ErrNotFound when the client is in no active campaign.
	GetLatestActiveByClient(ctx context.Context, clientID uuid.UUID) (*Enrollment, error)

	// ListByCampaign returns the campaign roster with client contact
	// details, for launch iteration.
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*EnrollmentClient, error)

	// ListDueForTier returns pending enrollments whose tier timestamp is
	// null, whose campaign enables the tier, and whose anchor is at least
	// the tier's day offset before asOf. Enrollments with a null anchor
	// never match.
	ListDueForTier(ctx context.Context, tier ReminderTier, asOf time.Time, limit int) ([]*DueEnrollment, error)

	SetFirstMessageSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetReminderSent(ctx context.Context, id uuid.UUID, tier ReminderTier, at time.Time) (bool, error)
	MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkStuck(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// MessageRepository appends chat log rows and tracks delivery status.
type MessageRepository interface {
	Create(ctx context.Context, m *MessageLog) error
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*MessageLog, error)
	// UpdateDeliveryStatus overwrites the delivery status of the row with
	// the given provider correlation id. Unknown ids report false, nil.
	UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status DeliveryStatus) (bool, error)
}

// DocumentRepository manages received-media rows.
type DocumentRepository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	SetStatus(ctx context.Context, id uuid.UUID, status ConversionStatus, errMsg sql.NullString) error
}

// ClientRepository resolves accountant clients.
type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	// GetByPhone resolves a sender identity. Returns ErrNotFound for
	// numbers that belong to no client.
	GetByPhone(ctx context.Context, phone string) (*Client, error)
}

// AccountRepository exposes the quota fields used by launch.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// IncrementCampaignsUsed counts one launch against the account,
	// regardless of how many clients it reached.
	IncrementCampaignsUsed(ctx context.Context, id uuid.UUID) error
}
