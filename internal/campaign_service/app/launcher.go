package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	"github.com/beanstack/docchase/internal/core_campaign/progress"
	messagingapp "github.com/beanstack/docchase/internal/messaging_service/app"
)

// TemplateIntro is the provider-side template for the initial document
// request. Variables: 1 = client name, 2 = document description.
const TemplateIntro = "document_request_intro"

// LaunchResult reports a launch over the campaign roster. A partial launch
// is a valid outcome: the campaign goes active even when some sends failed.
type LaunchResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Launcher flips a draft campaign to active, sending the first message to
// every enrolled client independently.
type Launcher struct {
	campaigns   domain.CampaignRepository
	enrollments domain.EnrollmentRepository
	accounts    domain.AccountRepository
	machine     *progress.Machine
	sender      messagingapp.MessageSender
	logger      *slog.Logger
}

func NewLauncher(
	campaigns domain.CampaignRepository,
	enrollments domain.EnrollmentRepository,
	accounts domain.AccountRepository,
	machine *progress.Machine,
	sender messagingapp.MessageSender,
	logger *slog.Logger,
) *Launcher {
	return &Launcher{
		campaigns:   campaigns,
		enrollments: enrollments,
		accounts:    accounts,
		machine:     machine,
		sender:      sender,
		logger:      logger.With("component", "launcher"),
	}
}

// Launch validates ownership, draft status and quota, then attempts the
// initial message for each enrolled client. A failed send leaves that
// client's anchor null, which permanently excludes them from reminder
// eligibility; the loop always continues to the next client.
func (l *Launcher) Launch(ctx context.Context, accountID, campaignID uuid.UUID) (LaunchResult, error) {
	var result LaunchResult

	campaign, err := l.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return result, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.AccountID != accountID {
		return result, domain.ErrForbidden
	}
	if campaign.Status != domain.CampaignStatusDraft {
		return result, domain.ErrCampaignNotDraft
	}

	// Quota is checked once before iterating, not per client.
	account, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return result, fmt.Errorf("load account: %w", err)
	}
	if !account.QuotaRemaining() {
		return result, domain.ErrQuotaExceeded
	}

	roster, err := l.enrollments.ListByCampaign(ctx, campaignID)
	if err != nil {
		return result, fmt.Errorf("load campaign roster: %w", err)
	}

	for _, entry := range roster {
		if err := l.launchClient(ctx, campaign, entry); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.ClientName, err))
			l.logger.WarnContext(ctx, "initial message failed for client",
				"error", err, "client", entry.ClientName, "campaign_id", campaignID)
			continue
		}
		result.Success++
	}

	// The campaign goes active regardless of per-client outcomes.
	if err := l.campaigns.SetStatus(ctx, campaignID, domain.CampaignStatusActive, sql.NullTime{}); err != nil {
		return result, fmt.Errorf("activate campaign: %w", err)
	}
	if err := l.accounts.IncrementCampaignsUsed(ctx, accountID); err != nil {
		// The launch itself succeeded; a quota bookkeeping failure is
		// logged but does not undo it.
		l.logger.ErrorContext(ctx, "failed to increment campaign quota usage",
			"error", err, "account_id", accountID)
	}

	l.logger.InfoContext(ctx, "campaign launched",
		"campaign_id", campaignID, "success", result.Success, "failed", result.Failed)
	return result, nil
}

func (l *Launcher) launchClient(ctx context.Context, campaign *domain.Campaign, entry *domain.EnrollmentClient) error {
	msg := messagingapp.OutboundMessage{
		AccountID:  campaign.AccountID,
		ClientID:   entry.Enrollment.ClientID,
		CampaignID: uuid.NullUUID{UUID: campaign.ID, Valid: true},
		Recipient:  entry.ClientPhone,
	}
	if campaign.CustomIntroText.Valid && campaign.CustomIntroText.String != "" {
		msg.Body = campaign.CustomIntroText.String
	} else {
		msg.TemplateName = TemplateIntro
		msg.TemplateVars = []string{entry.ClientName, campaign.DocumentDescription()}
	}

	if _, err := l.sender.Send(ctx, msg); err != nil {
		return err
	}

	if err := l.machine.MarkFirstMessageSent(ctx, entry.Enrollment.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("stamp first message sent: %w", err)
	}
	return nil
}
