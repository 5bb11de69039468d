package http

import (
	"database/sql"
	"time"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type CreateCampaignRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	DocumentType     string `json:"document_type" validate:"required,max=100"`
	PeriodLabel      string `json:"period_label" validate:"required,max=100"`
	Reminder1Days    *int   `json:"reminder_1_days" validate:"omitempty,min=1,max=90"`
	Reminder2Days    *int   `json:"reminder_2_days" validate:"omitempty,min=1,max=90"`
	Reminder3Days    *int   `json:"reminder_3_days" validate:"omitempty,min=1,max=90"`
	Reminder1Enabled *bool  `json:"reminder_1_enabled"`
	Reminder2Enabled *bool  `json:"reminder_2_enabled"`
	FlagStepEnabled  *bool  `json:"flag_step_enabled"`
	SendHour         *int   `json:"send_hour" validate:"omitempty,min=0,max=23"`
	SendMinute       *int   `json:"send_minute" validate:"omitempty,min=0,max=59"`
	CustomIntroText  string `json:"custom_intro_text" validate:"omitempty,max=1600"`
}

type AddClientRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
}

type CreateClientRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"required,e164"`
}

type CampaignResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	DocumentType    string     `json:"document_type"`
	PeriodLabel     string     `json:"period_label"`
	Status          string     `json:"status"`
	Reminder1Days   int        `json:"reminder_1_days"`
	Reminder2Days   int        `json:"reminder_2_days"`
	Reminder3Days   int        `json:"reminder_3_days"`
	SendHour        int        `json:"send_hour"`
	SendMinute      int        `json:"send_minute"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CustomIntroText string     `json:"custom_intro_text,omitempty"`
}

func NewCampaignResponse(c *domain.Campaign) CampaignResponse {
	resp := CampaignResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		DocumentType:  c.DocumentType,
		PeriodLabel:   c.PeriodLabel,
		Status:        string(c.Status),
		Reminder1Days: c.Reminder1Days,
		Reminder2Days: c.Reminder2Days,
		Reminder3Days: c.Reminder3Days,
		SendHour:      c.SendHour,
		SendMinute:    c.SendMinute,
		CreatedAt:     c.CreatedAt,
	}
	if c.CompletedAt.Valid {
		t := c.CompletedAt.Time
		resp.CompletedAt = &t
	}
	if c.CustomIntroText.Valid {
		resp.CustomIntroText = c.CustomIntroText.String
	}
	return resp
}

type ClientResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func NewClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{ID: c.ID.String(), Name: c.Name, Phone: c.Phone}
}

type EnrollmentResponse struct {
	ID               string     `json:"id"`
	ClientID         string     `json:"client_id"`
	ClientName       string     `json:"client_name"`
	ClientPhone      string     `json:"client_phone"`
	Status           string     `json:"status"`
	FirstMessageSent *time.Time `json:"first_message_sent_at,omitempty"`
	Reminder1SentAt  *time.Time `json:"reminder_1_sent_at,omitempty"`
	Reminder2SentAt  *time.Time `json:"reminder_2_sent_at,omitempty"`
	Reminder3SentAt  *time.Time `json:"reminder_3_sent_at,omitempty"`
	ReceivedAt       *time.Time `json:"received_at,omitempty"`
	StuckAt          *time.Time `json:"stuck_at,omitempty"`
}

func NewEnrollmentResponse(ec domain.EnrollmentClient) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:          ec.Enrollment.ID.String(),
		ClientID:    ec.Enrollment.ClientID.String(),
		ClientName:  ec.ClientName,
		ClientPhone: ec.ClientPhone,
		Status:      string(ec.Enrollment.Status),
	}
	resp.FirstMessageSent = nullTimePtr(ec.Enrollment.FirstMessageSentAt)
	resp.Reminder1SentAt = nullTimePtr(ec.Enrollment.Reminder1SentAt)
	resp.Reminder2SentAt = nullTimePtr(ec.Enrollment.Reminder2SentAt)
	resp.Reminder3SentAt = nullTimePtr(ec.Enrollment.Reminder3SentAt)
	resp.ReceivedAt = nullTimePtr(ec.Enrollment.ReceivedAt)
	resp.StuckAt = nullTimePtr(ec.Enrollment.StuckAt)
	return resp
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

type LaunchResponse struct {
	CampaignID string   `json:"campaign_id"`
	Status     string   `json:"status"`
	Success    int      `json:"success"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

type SchedulerPassResponse struct {
	Tier1   TierResultResponse `json:"tier_1"`
	Tier2   TierResultResponse `json:"tier_2"`
	Flagged int                `json:"flagged"`
	Errors  []string           `json:"errors,omitempty"`
}

type TierResultResponse struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
