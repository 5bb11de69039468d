// Package progress holds the enrollment state machine. It is the only code
// path that moves an enrollment between statuses or stamps its timestamps;
// ingestion, the reminder scheduler and campaign launch all go through it.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

// Machine enforces the transition guards and delegates the actual writes to
// conditional repository updates, so a guard that raced another pass simply
// results in a no-op at the store.
type Machine struct {
	enrollments domain.EnrollmentRepository
	logger      *slog.Logger
}

func New(enrollments domain.EnrollmentRepository, logger *slog.Logger) *Machine {
	return &Machine{
		enrollments: enrollments,
		logger:      logger.With("component", "progress_machine"),
	}
}

// Enroll adds a client to a campaign. Only draft campaigns accept clients.
func (m *Machine) Enroll(ctx context.Context, campaign *domain.Campaign, clientID uuid.UUID) (*domain.Enrollment, error) {
	if campaign.Status != domain.CampaignStatusDraft {
		return nil, domain.ErrCampaignNotDraft
	}

	e := domain.NewEnrollment(uuid.New(), campaign.ID, clientID)
	if err := m.enrollments.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	m.logger.InfoContext(ctx, "client enrolled", "enrollment_id", e.ID, "campaign_id", campaign.ID, "client_id", clientID)
	return e, nil
}

// MarkFirstMessageSent stamps the reminder anchor after launch delivered the
// initial message. Legal only once, while the enrollment is still pending.
func (m *Machine) MarkFirstMessageSent(ctx context.Context, enrollmentID uuid.UUID, at time.Time) error {
	updated, err := m.enrollments.SetFirstMessageSent(ctx, enrollmentID, at)
	if err != nil {
		return fmt.Errorf("set first message sent: %w", err)
	}
	if !updated {
		return fmt.Errorf("enrollment %s: %w", enrollmentID, domain.ErrInvalidTransition)
	}
	return nil
}

// MarkReceived transitions a pending enrollment to received. Calling it on
// an enrollment that is already received is a no-op; calling it on a failed
// enrollment is rejected.
func (m *Machine) MarkReceived(ctx context.Context, enrollmentID uuid.UUID, at time.Time) error {
	updated, err := m.enrollments.MarkReceived(ctx, enrollmentID, at)
	if err != nil {
		return fmt.Errorf("mark received: %w", err)
	}
	if updated {
		m.logger.InfoContext(ctx, "enrollment received", "enrollment_id", enrollmentID)
		return nil
	}

	current, err := m.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		return fmt.Errorf("reload enrollment after no-op receive: %w", err)
	}
	if current.Status == domain.EnrollmentStatusReceived {
		return nil
	}
	return fmt.Errorf("enrollment %s in status %s: %w", enrollmentID, current.Status, domain.ErrInvalidTransition)
}

// MarkReminderSent stamps one reminder tier as sent. Guards: the enrollment
// is pending with a non-null anchor and a null tier timestamp, the campaign
// enables the tier, and the tier's day offset has elapsed.
func (m *Machine) MarkReminderSent(ctx context.Context, e *domain.Enrollment, c *domain.Campaign, tier domain.ReminderTier, at time.Time) error {
	if tier != domain.TierFirstReminder && tier != domain.TierSecondReminder {
		return fmt.Errorf("tier %d is not a sendable reminder: %w", tier, domain.ErrInvalidTransition)
	}
	if err := m.checkReminderGuards(e, c, tier, at); err != nil {
		return err
	}

	updated, err := m.enrollments.SetReminderSent(ctx, e.ID, tier, at)
	if err != nil {
		return fmt.Errorf("set reminder %d sent: %w", tier, err)
	}
	if !updated {
		// Another pass stamped the row between our read and this write.
		return fmt.Errorf("enrollment %s reminder %d already stamped: %w", e.ID, tier, domain.ErrInvalidTransition)
	}
	return nil
}

// MarkStuck flips a pending enrollment to failed once the third offset has
// elapsed with no response. The flag step represents giving up, so there is
// no outbound message tied to it.
func (m *Machine) MarkStuck(ctx context.Context, e *domain.Enrollment, c *domain.Campaign, at time.Time) error {
	if err := m.checkReminderGuards(e, c, domain.TierStuckFlag, at); err != nil {
		return err
	}

	updated, err := m.enrollments.MarkStuck(ctx, e.ID, at)
	if err != nil {
		return fmt.Errorf("mark stuck: %w", err)
	}
	if !updated {
		return fmt.Errorf("enrollment %s already resolved: %w", e.ID, domain.ErrInvalidTransition)
	}
	m.logger.InfoContext(ctx, "enrollment flagged stuck", "enrollment_id", e.ID, "campaign_id", c.ID)
	return nil
}

func (m *Machine) checkReminderGuards(e *domain.Enrollment, c *domain.Campaign, tier domain.ReminderTier, at time.Time) error {
	if e.Status != domain.EnrollmentStatusPending {
		return fmt.Errorf("enrollment %s in terminal status %s: %w", e.ID, e.Status, domain.ErrInvalidTransition)
	}
	if !e.FirstMessageSentAt.Valid {
		return fmt.Errorf("enrollment %s has no anchor: %w", e.ID, domain.ErrInvalidTransition)
	}
	if sent := e.ReminderSentAt(tier); sent.Valid {
		return fmt.Errorf("enrollment %s tier %d already sent: %w", e.ID, tier, domain.ErrInvalidTransition)
	}
	if !c.TierEnabled(tier) {
		return fmt.Errorf("campaign %s disables tier %d: %w", c.ID, tier, domain.ErrInvalidTransition)
	}
	offset := time.Duration(c.OffsetDays(tier)) * 24 * time.Hour
	if at.Sub(e.FirstMessageSentAt.Time) < offset {
		return fmt.Errorf("enrollment %s tier %d not yet due: %w", e.ID, tier, domain.ErrInvalidTransition)
	}
	return nil
}
