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
)

// CreateCampaignInput carries the draft campaign parameters. Zero reminder
// offsets fall back to the 3/6/9 defaults. The expected offset ordering
// (offset1 < offset2 < offset3) is intentionally not validated; see the
// product's open question on nonsensical configurations.
type CreateCampaignInput struct {
	AccountID       uuid.UUID
	Name            string
	DocumentType    string
	PeriodLabel     string
	SendHour        int
	SendMinute      int
	Reminder1Days   int
	Reminder2Days   int
	Reminder3Days   int
	DisableTier1    bool
	DisableTier2    bool
	DisableFlagStep bool
	CustomIntroText string
}

// CampaignService covers the draft-phase operations: creating a campaign
// and enrolling clients. Enrollment goes through the state machine so the
// draft-only guard lives in one place.
type CampaignService struct {
	campaigns domain.CampaignRepository
	clients   domain.ClientRepository
	machine   *progress.Machine
	logger    *slog.Logger
}

func NewCampaignService(
	campaigns domain.CampaignRepository,
	clients domain.ClientRepository,
	machine *progress.Machine,
	logger *slog.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		clients:   clients,
		machine:   machine,
		logger:    logger.With("component", "campaign_service"),
	}
}

func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*domain.Campaign, error) {
	c := domain.NewCampaign(uuid.New(), in.AccountID, in.Name, in.DocumentType, in.PeriodLabel, in.SendHour, in.SendMinute)
	if in.Reminder1Days > 0 {
		c.Reminder1Days = in.Reminder1Days
	}
	if in.Reminder2Days > 0 {
		c.Reminder2Days = in.Reminder2Days
	}
	if in.Reminder3Days > 0 {
		c.Reminder3Days = in.Reminder3Days
	}
	c.Reminder1Enabled = !in.DisableTier1
	c.Reminder2Enabled = !in.DisableTier2
	c.FlagStepEnabled = !in.DisableFlagStep
	if in.CustomIntroText != "" {
		c.CustomIntroText = sql.NullString{String: in.CustomIntroText, Valid: true}
	}

	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	s.logger.InfoContext(ctx, "campaign created", "campaign_id", c.ID, "account_id", in.AccountID)
	return c, nil
}

// AddClient enrolls an existing client into a draft campaign owned by the
// same account.
func (s *CampaignService) AddClient(ctx context.Context, accountID, campaignID, clientID uuid.UUID) (*domain.Enrollment, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if campaign.AccountID != accountID {
		return nil, domain.ErrForbidden
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client.AccountID != accountID {
		return nil, domain.ErrForbidden
	}

	return s.machine.Enroll(ctx, campaign, clientID)
}

// CompleteCampaign marks an active campaign completed, stamping the
// completion time.
func (s *CampaignService) CompleteCampaign(ctx context.Context, accountID, campaignID uuid.UUID) error {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign.AccountID != accountID {
		return domain.ErrForbidden
	}
	if campaign.Status != domain.CampaignStatusActive {
		return fmt.Errorf("campaign %s is %s: %w", campaignID, campaign.Status, domain.ErrInvalidTransition)
	}
	now := sql.NullTime{Time: time.Now().UTC(), Valid: true}
	return s.campaigns.SetStatus(ctx, campaignID, domain.CampaignStatusCompleted, now)
}
