package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is one of an accountant's customers, identified on the transport
// by their phone number (E.164).
type Client struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is the accountant tenant owning campaigns and clients.
// CampaignQuota of zero means the plan is uncapped.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	PlanTier       string    `json:"plan_tier"`
	CampaignQuota  int       `json:"campaign_quota"`
	CampaignsUsed  int       `json:"campaigns_used"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuotaRemaining reports whether the account may launch another campaign.
func (a *Account) QuotaRemaining() bool {
	return a.CampaignQuota == 0 || a.CampaignsUsed < a.CampaignQuota
}
