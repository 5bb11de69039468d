package domain

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the lifecycle state of a collection campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// ReminderTier identifies one of the three reminder stages. Tiers 1 and 2
// send an outbound reminder; tier 3 is the stuck flag and sends nothing.
type ReminderTier int

const (
	TierFirstReminder  ReminderTier = 1
	TierSecondReminder ReminderTier = 2
	TierStuckFlag      ReminderTier = 3
)

func (t ReminderTier) Valid() bool {
	return t >= TierFirstReminder && t <= TierStuckFlag
}

// Campaign is one document-collection run owned by one accountant account.
// A campaign is mutable only while in draft; once active, only status and
// completion time change.
type Campaign struct {
	ID           uuid.UUID      `json:"id"`
	AccountID    uuid.UUID      `json:"account_id"`
	Name         string         `json:"name"`
	DocumentType string         `json:"document_type"` // e.g. "bank statement"
	PeriodLabel  string         `json:"period_label"`  // e.g. "Q2 2026"
	Status       CampaignStatus `json:"status"`

	// Day offsets measured from each enrollment's first_message_sent_at.
	// Expected ordering offset1 < offset2 < offset3 is not enforced; the
	// product has not decided whether to validate it.
	Reminder1Days int `json:"reminder_1_days"`
	Reminder2Days int `json:"reminder_2_days"`
	Reminder3Days int `json:"reminder_3_days"`

	Reminder1Enabled bool `json:"reminder_1_enabled"`
	Reminder2Enabled bool `json:"reminder_2_enabled"`
	FlagStepEnabled  bool `json:"flag_step_enabled"`

	// Daily clock time reminders are allowed to go out, in the account's
	// operating timezone.
	SendHour   int `json:"send_hour"`
	SendMinute int `json:"send_minute"`

	CustomIntroText sql.NullString `json:"custom_intro_text,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     sql.NullTime   `json:"completed_at,omitempty"`
}

const (
	DefaultReminder1Days = 3
	DefaultReminder2Days = 6
	DefaultReminder3Days = 9
)

// NewCampaign creates a draft campaign with the default reminder plan.
func NewCampaign(id, accountID uuid.UUID, name, documentType, periodLabel string, sendHour, sendMinute int) *Campaign {
	return &Campaign{
		ID:               id,
		AccountID:        accountID,
		Name:             name,
		DocumentType:     documentType,
		PeriodLabel:      periodLabel,
		Status:           CampaignStatusDraft,
		Reminder1Days:    DefaultReminder1Days,
		Reminder2Days:    DefaultReminder2Days,
		Reminder3Days:    DefaultReminder3Days,
		Reminder1Enabled: true,
		Reminder2Enabled: true,
		FlagStepEnabled:  true,
		SendHour:         sendHour,
		SendMinute:       sendMinute,
		CreatedAt:        time.Now().UTC(),
	}
}

// OffsetDays returns the day offset configured for a tier.
func (c *Campaign) OffsetDays(tier ReminderTier) int {
	switch tier {
	case TierFirstReminder:
		return c.Reminder1Days
	case TierSecondReminder:
		return c.Reminder2Days
	case TierStuckFlag:
		return c.Reminder3Days
	}
	return 0
}

// TierEnabled reports whether the campaign has a tier switched on.
func (c *Campaign) TierEnabled(tier ReminderTier) bool {
	switch tier {
	case TierFirstReminder:
		return c.Reminder1Enabled
	case TierSecondReminder:
		return c.Reminder2Enabled
	case TierStuckFlag:
		return c.FlagStepEnabled
	}
	return false
}

// SendTimeOn returns the campaign's configured send time anchored to the
// date of ref, in ref's location.
func (c *Campaign) SendTimeOn(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), c.SendHour, c.SendMinute, 0, 0, ref.Location())
}

// DocumentDescription is the human phrase used in reminder templates,
// e.g. "Q2 2026 bank statement".
func (c *Campaign) DocumentDescription() string {
	return fmt.Sprintf("%s %s", c.PeriodLabel, c.DocumentType)
}
