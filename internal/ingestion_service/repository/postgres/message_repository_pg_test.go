package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

func setupMessageTest(t *testing.T) (*PgMessageRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewPgMessageRepository(mockPool, logger)
	return repo, mockPool
}

func TestPgMessageRepository_Create(t *testing.T) {
	repo, mockPool := setupMessageTest(t)
	defer mockPool.Close()

	m := &domain.MessageLog{
		ID:             uuid.New(),
		AccountID:      uuid.New(),
		ClientID:       uuid.New(),
		CampaignID:     uuid.NullUUID{UUID: uuid.New(), Valid: true},
		Direction:      domain.DirectionOutbound,
		Body:           "",
		TemplateName:   sql.NullString{String: "document_reminder_1", Valid: true},
		DeliveryStatus: domain.DeliveryStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}

	mockPool.ExpectExec(`INSERT INTO messages`).
		WithArgs(m.ID, m.AccountID, m.ClientID, m.CampaignID, m.Direction, m.Body,
			m.TemplateName, m.DeliveryStatus, m.ProviderMessageID, m.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), m)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_GetByProviderMessageID_NotFound(t *testing.T) {
	repo, mockPool := setupMessageTest(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT .+ FROM messages WHERE provider_message_id = \$1`).
		WithArgs("SM404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByProviderMessageID(context.Background(), "SM404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgMessageRepository_UpdateDeliveryStatus(t *testing.T) {
	repo, mockPool := setupMessageTest(t)
	defer mockPool.Close()

	t.Run("KnownID", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE messages SET delivery_status = \$2 WHERE provider_message_id = \$1`).
			WithArgs("SM123", domain.DeliveryStatusDelivered).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		updated, err := repo.UpdateDeliveryStatus(context.Background(), "SM123", domain.DeliveryStatusDelivered)
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("UnknownIDNoError", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE messages SET delivery_status = \$2 WHERE provider_message_id = \$1`).
			WithArgs("SM999", domain.DeliveryStatusFailed).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		updated, err := repo.UpdateDeliveryStatus(context.Background(), "SM999", domain.DeliveryStatusFailed)
		require.NoError(t, err)
		assert.False(t, updated)
	})
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
