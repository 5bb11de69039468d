package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgAccountRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgAccountRepository(db Querier, logger *slog.Logger) *PgAccountRepository {
	return &PgAccountRepository{db: db, logger: logger}
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, name, plan_tier, campaign_quota, campaigns_used, created_at
		FROM accounts WHERE id = $1
	`
	a := &domain.Account{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.PlanTier, &a.CampaignQuota, &a.CampaignsUsed, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting account by id", "error", err, "account_id", id)
		return nil, err
	}
	return a, nil
}

func (r *PgAccountRepository) IncrementCampaignsUsed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE accounts SET campaigns_used = campaigns_used + 1 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "error incrementing campaigns used", "error", err, "account_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
