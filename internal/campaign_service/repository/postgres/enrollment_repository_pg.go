package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type PgEnrollmentRepository struct {
	db     Querier
	logger *slog.Logger
}

func NewPgEnrollmentRepository(db Querier, logger *slog.Logger) *PgEnrollmentRepository {
	return &PgEnrollmentRepository{db: db, logger: logger}
}

const enrollmentColumns = `
	e.id, e.campaign_id, e.client_id, e.status,
	e.first_message_sent_at, e.reminder_1_sent_at, e.reminder_2_sent_at, e.reminder_3_sent_at,
	e.received_at, e.stuck_at, e.created_at
`

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	e := &domain.Enrollment{}
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.ClientID, &e.Status,
		&e.FirstMessageSentAt, &e.Reminder1SentAt, &e.Reminder2SentAt, &e.Reminder3SentAt,
		&e.ReceivedAt, &e.StuckAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PgEnrollmentRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, campaign_id, client_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.CampaignID, e.ClientID, e.Status, e.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "error creating enrollment", "error", err, "enrollment_id", e.ID)
		return err
	}
	return nil
}

func (r *PgEnrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments e WHERE e.id = $1`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting enrollment by id", "error", err, "enrollment_id", id)
		return nil, err
	}
	return e, nil
}

// GetLatestActiveByClient resolves the enrollment in the client's most
// recently created active campaign.
func (r *PgEnrollmentRepository) GetLatestActiveByClient(ctx context.Context, clientID uuid.UUID) (*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments e
		JOIN campaigns c ON c.id = e.campaign_id
		WHERE e.client_id = $1 AND c.status = $2
		ORDER BY c.created_at DESC
		LIMIT 1
	`
	e, err := scanEnrollment(r.db.QueryRow(ctx, query, clientID, domain.CampaignStatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "error getting latest active enrollment", "error", err, "client_id", clientID)
		return nil, err
	}
	return e, nil
}

func (r *PgEnrollmentRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*domain.EnrollmentClient, error) {
	query := `
		SELECT ` + enrollmentColumns + `, cl.name, cl.phone
		FROM enrollments e
		JOIN clients cl ON cl.id = e.client_id
		WHERE e.campaign_id = $1
		ORDER BY e.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		r.logger.ErrorContext(ctx, "error listing campaign roster", "error", err, "campaign_id", campaignID)
		return nil, err
	}
	defer rows.Close()

	var roster []*domain.EnrollmentClient
	for rows.Next() {
		e := &domain.Enrollment{}
		entry := &domain.EnrollmentClient{Enrollment: e}
		if err := rows.Scan(
			&e.ID, &e.CampaignID, &e.ClientID, &e.Status,
			&e.FirstMessageSentAt, &e.Reminder1SentAt, &e.Reminder2SentAt, &e.Reminder3SentAt,
			&e.ReceivedAt, &e.StuckAt, &e.CreatedAt,
			&entry.ClientName, &entry.ClientPhone,
		); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}

// tierColumns maps a tier to its sent-timestamp, enabled-flag and offset
// columns. Column names are compiled in; only values are parameterized.
func tierColumns(tier domain.ReminderTier) (sentCol, enabledCol, offsetCol string, err error) {
	switch tier {
	case domain.TierFirstReminder:
		return "reminder_1_sent_at", "reminder_1_enabled", "reminder_1_days", nil
	case domain.TierSecondReminder:
		return "reminder_2_sent_at", "reminder_2_enabled", "reminder_2_days", nil
	case domain.TierStuckFlag:
		return "reminder_3_sent_at", "flag_step_enabled", "reminder_3_days", nil
	}
	return "", "", "", fmt.Errorf("unknown reminder tier %d", tier)
}

// ListDueForTier re-derives tier eligibility from absolute timestamps:
// pending enrollments in active campaigns with the tier enabled, the tier's
// timestamp still null, and an anchor at least the tier's day offset before
// asOf. Null anchors never match.
func (r *PgEnrollmentRepository) ListDueForTier(ctx context.Context, tier domain.ReminderTier, asOf time.Time, limit int) ([]*domain.DueEnrollment, error) {
	sentCol, enabledCol, offsetCol, err := tierColumns(tier)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + enrollmentColumns + `,
			c.id, c.account_id, c.name, c.document_type, c.period_label, c.status,
			c.reminder_1_days, c.reminder_2_days, c.reminder_3_days,
			c.reminder_1_enabled, c.reminder_2_enabled, c.flag_step_enabled,
			c.send_hour, c.send_minute, c.custom_intro_text, c.created_at, c.completed_at,
			cl.name, cl.phone
		FROM enrollments e
		JOIN campaigns c ON c.id = e.campaign_id
		JOIN clients cl ON cl.id = e.client_id
		WHERE e.status = $1
		  AND c.status = $2
		  AND c.` + enabledCol + ` = TRUE
		  AND e.` + sentCol + ` IS NULL
		  AND e.first_message_sent_at IS NOT NULL
		  AND e.first_message_sent_at <= $3 - (c.` + offsetCol + ` * INTERVAL '1 day')
		ORDER BY e.first_message_sent_at ASC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query,
		domain.EnrollmentStatusPending, domain.CampaignStatusActive, asOf, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "error listing due enrollments", "error", err, "tier", int(tier))
		return nil, err
	}
	defer rows.Close()

	var due []*domain.DueEnrollment
	for rows.Next() {
		e := &domain.Enrollment{}
		c := &domain.Campaign{}
		d := &domain.DueEnrollment{Enrollment: e, Campaign: c}
		if err := rows.Scan(
			&e.ID, &e.CampaignID, &e.ClientID, &e.Status,
			&e.FirstMessageSentAt, &e.Reminder1SentAt, &e.Reminder2SentAt, &e.Reminder3SentAt,
			&e.ReceivedAt, &e.StuckAt, &e.CreatedAt,
			&c.ID, &c.AccountID, &c.Name, &c.DocumentType, &c.PeriodLabel, &c.Status,
			&c.Reminder1Days, &c.Reminder2Days, &c.Reminder3Days,
			&c.Reminder1Enabled, &c.Reminder2Enabled, &c.FlagStepEnabled,
			&c.SendHour, &c.SendMinute, &c.CustomIntroText, &c.CreatedAt, &c.CompletedAt,
			&d.ClientName, &d.ClientPhone,
		); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// The conditional updates below are the state machine's write path: each
// WHERE clause restates the guard so a row that lost a race is simply not
// updated, and the caller learns it from the affected count.

func (r *PgEnrollmentRepository) SetFirstMessageSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE enrollments SET first_message_sent_at = $2
		WHERE id = $1 AND status = $3 AND first_message_sent_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, at, domain.EnrollmentStatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "error setting first message sent", "error", err, "enrollment_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEnrollmentRepository) SetReminderSent(ctx context.Context, id uuid.UUID, tier domain.ReminderTier, at time.Time) (bool, error) {
	sentCol, _, _, err := tierColumns(tier)
	if err != nil {
		return false, err
	}
	query := `
		UPDATE enrollments SET ` + sentCol + ` = $2
		WHERE id = $1 AND status = $3 AND ` + sentCol + ` IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, at, domain.EnrollmentStatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "error setting reminder sent", "error", err, "enrollment_id", id, "tier", int(tier))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEnrollmentRepository) MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE enrollments SET status = $2, received_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, domain.EnrollmentStatusReceived, at, domain.EnrollmentStatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "error marking enrollment received", "error", err, "enrollment_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgEnrollmentRepository) MarkStuck(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE enrollments SET status = $2, stuck_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, domain.EnrollmentStatusFailed, at, domain.EnrollmentStatusPending)
	if err != nil {
		r.logger.ErrorContext(ctx, "error marking enrollment stuck", "error", err, "enrollment_id", id)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
