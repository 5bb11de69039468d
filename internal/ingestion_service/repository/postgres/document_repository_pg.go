package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgDocumentRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgDocumentRepository(db Querier, logger *slog.Logger) *PgDocumentRepository {
	return &PgDocumentRepository{db: db, logger: logger}
}

func (r *PgDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	query := `
		INSERT INTO documents (id, client_id, campaign_id, media_url, content_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		d.ID, d.ClientID, d.CampaignID, d.MediaURL, d.ContentType, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "error creating document", "error", err, "document_id", d.ID)
		return err
	}
	return nil
}

func (r *PgDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, client_id, campaign_id, media_url, content_type, status, error, created_at, updated_at
		FROM documents WHERE id = $1
	`
	d := &domain.Document{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ClientID, &d.CampaignID, &d.MediaURL, &d.ContentType, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting document by id", "error", err, "document_id", id)
		return nil, err
	}
	return d, nil
}

func (r *PgDocumentRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ConversionStatus, errMsg sql.NullString) error {
	query := `UPDATE documents SET status = $2, error = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status, errMsg, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "error updating document status", "error", err, "document_id", id, "status", status)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
