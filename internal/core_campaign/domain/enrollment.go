package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus represents one client's progress within one campaign.
// received and failed are terminal; nothing transitions out of them.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "pending"
	EnrollmentStatusReceived EnrollmentStatus = "received"
	EnrollmentStatusFailed   EnrollmentStatus = "failed"
)

// Enrollment is the join record tracking one client's progress through one
// campaign. FirstMessageSentAt is the anchor instant from which all reminder
// day offsets are measured; while it is null the client has not been
// launched and no reminder or flag action may touch the row.
type Enrollment struct {
	ID         uuid.UUID        `json:"id"`
	CampaignID uuid.UUID        `json:"campaign_id"`
	ClientID   uuid.UUID        `json:"client_id"`
	Status     EnrollmentStatus `json:"status"`

	FirstMessageSentAt sql.NullTime `json:"first_message_sent_at,omitempty"`
	Reminder1SentAt    sql.NullTime `json:"reminder_1_sent_at,omitempty"`
	Reminder2SentAt    sql.NullTime `json:"reminder_2_sent_at,omitempty"`
	Reminder3SentAt    sql.NullTime `json:"reminder_3_sent_at,omitempty"`
	ReceivedAt         sql.NullTime `json:"received_at,omitempty"`
	StuckAt            sql.NullTime `json:"stuck_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewEnrollment creates a pending enrollment with all timestamps null.
func NewEnrollment(id, campaignID, clientID uuid.UUID) *Enrollment {
	return &Enrollment{
		ID:         id,
		CampaignID: campaignID,
		ClientID:   clientID,
		Status:     EnrollmentStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Terminal reports whether the enrollment reached a final state.
func (e *Enrollment) Terminal() bool {
	return e.Status == EnrollmentStatusReceived || e.Status == EnrollmentStatusFailed
}

// ReminderSentAt returns the sent timestamp recorded for a tier.
func (e *Enrollment) ReminderSentAt(tier ReminderTier) sql.NullTime {
	switch tier {
	case TierFirstReminder:
		return e.Reminder1SentAt
	case TierSecondReminder:
		return e.Reminder2SentAt
	case TierStuckFlag:
		return e.Reminder3SentAt
	}
	return sql.NullTime{}
}

// DueEnrollment pairs an enrollment with its campaign and client contact
// details for scheduler passes, so eligibility filtering does not re-fetch
// campaigns row by row.
type DueEnrollment struct {
	Enrollment  *Enrollment
	Campaign    *Campaign
	ClientName  string
	ClientPhone string
}

// EnrollmentClient is an enrollment joined to its client's contact details,
// used when iterating a campaign roster.
type EnrollmentClient struct {
	Enrollment  *Enrollment
	ClientName  string
	ClientPhone string
}
