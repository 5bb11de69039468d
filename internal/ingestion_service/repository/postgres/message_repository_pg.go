package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgMessageRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgMessageRepository(db Querier, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger}
}

func (r *PgMessageRepository) Create(ctx context.Context, m *domain.MessageLog) error {
	query := `
		INSERT INTO messages (
			id, account_id, client_id, campaign_id, direction, body,
			template_name, delivery_status, provider_message_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.AccountID, m.ClientID, m.CampaignID, m.Direction, m.Body,
		m.TemplateName, m.DeliveryStatus, m.ProviderMessageID, m.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "error creating message log", "error", err, "message_id", m.ID)
		return err
	}
	return nil
}

func (r *PgMessageRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageLog, error) {
	query := `
		SELECT id, account_id, client_id, campaign_id, direction, body,
			template_name, delivery_status, provider_message_id, created_at
		FROM messages WHERE provider_message_id = $1
	`
	m := &domain.MessageLog{}
	err := r.db.QueryRow(ctx, query, providerMessageID).Scan(
		&m.ID, &m.AccountID, &m.ClientID, &m.CampaignID, &m.Direction, &m.Body,
		&m.TemplateName, &m.DeliveryStatus, &m.ProviderMessageID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting message by provider id", "error", err)
		return nil, err
	}
	return m, nil
}

// UpdateDeliveryStatus overwrites the delivery status of the row matching
// the provider correlation id. Unknown ids affect zero rows and report
// false, nil: status callbacks are observational and must not error.
func (r *PgMessageRepository) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) (bool, error) {
	query := `UPDATE messages SET delivery_status = $2 WHERE provider_message_id = $1`
	tag, err := r.db.Exec(ctx, query, providerMessageID, status)
	if err != nil {
		r.logger.ErrorContext(ctx, "error updating delivery status", "error", err, "provider_message_id", providerMessageID)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
