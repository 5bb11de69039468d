package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgClientRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgClientRepository(db Querier, logger *slog.Logger) *PgClientRepository {
	return &PgClientRepository{db: db, logger: logger}
}

func (r *PgClientRepository) Create(ctx context.Context, c *domain.Client) error {
	query := `
		INSERT INTO clients (id, account_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.AccountID, c.Name, c.Phone, c.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "error creating client", "error", err, "client_id", c.ID)
		return err
	}
	return nil
}

func (r *PgClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `SELECT id, account_id, name, phone, created_at FROM clients WHERE id = $1`
	c := &domain.Client{}
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.AccountID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting client by id", "error", err, "client_id", id)
		return nil, err
	}
	return c, nil
}

func (r *PgClientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	query := `SELECT id, account_id, name, phone, created_at FROM clients WHERE phone = $1`
	c := &domain.Client{}
	err := r.db.QueryRow(ctx, query, phone).Scan(&c.ID, &c.AccountID, &c.Name, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting client by phone", "error", err)
		return nil, err
	}
	return c, nil
}
