package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgCampaignRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgCampaignRepository(db Querier, logger *slog.Logger) *PgCampaignRepository {
	return &PgCampaignRepository{db: db, logger: logger}
}

func (r *PgCampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, account_id, name, document_type, period_label, status,
			reminder_1_days, reminder_2_days, reminder_3_days,
			reminder_1_enabled, reminder_2_enabled, flag_step_enabled,
			send_hour, send_minute, custom_intro_text, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.AccountID, c.Name, c.DocumentType, c.PeriodLabel, c.Status,
		c.Reminder1Days, c.Reminder2Days, c.Reminder3Days,
		c.Reminder1Enabled, c.Reminder2Enabled, c.FlagStepEnabled,
		c.SendHour, c.SendMinute, c.CustomIntroText, c.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "error creating campaign", "error", err, "campaign_id", c.ID)
		return err
	}
	return nil
}

const campaignColumns = `
	id, account_id, name, document_type, period_label, status,
	reminder_1_days, reminder_2_days, reminder_3_days,
	reminder_1_enabled, reminder_2_enabled, flag_step_enabled,
	send_hour, send_minute, custom_intro_text, created_at, completed_at
`

func (r *PgCampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c := &domain.Campaign{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.AccountID, &c.Name, &c.DocumentType, &c.PeriodLabel, &c.Status,
		&c.Reminder1Days, &c.Reminder2Days, &c.Reminder3Days,
		&c.Reminder1Enabled, &c.Reminder2Enabled, &c.FlagStepEnabled,
		&c.SendHour, &c.SendMinute, &c.CustomIntroText, &c.CreatedAt, &c.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting campaign by id", "error", err, "campaign_id", id)
		return nil, err
	}
	return c, nil
}

func (r *PgCampaignRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus, completedAt sql.NullTime) error {
	query := `UPDATE campaigns SET status = $2, completed_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status, completedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "error updating campaign status", "error", err, "campaign_id", id, "status", status)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
