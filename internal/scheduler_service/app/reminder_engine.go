package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	"github.com/beanstack/docchase/internal/core_campaign/progress"
	messagingapp "github.com/beanstack/docchase/internal/messaging_service/app"
)

// Template identifiers registered with the transport provider for the two
// reminder tiers. Variables: 1 = client name, 2 = document description.
const (
	TemplateReminderTier1 = "document_reminder_1"
	TemplateReminderTier2 = "document_reminder_2"
)

// EngineConfig holds the scheduling knobs that used to be implicit
// constants: the daily send-window tolerance and the per-tier query cap.
type EngineConfig struct {
	WindowTolerance time.Duration `mapstructure:"SEND_WINDOW_TOLERANCE"`
	BatchSize       int           `mapstructure:"REMINDER_BATCH_SIZE"`
}

// TierResult reports one reminder tier's outcome over its cohort.
type TierResult struct {
	Tier    domain.ReminderTier `json:"tier"`
	Sent    int                 `json:"sent"`
	Failed  int                 `json:"failed"`
	Skipped int                 `json:"skipped"`
	Errors  []string            `json:"errors,omitempty"`
}

// FlagResult reports the stuck-flag step's outcome.
type FlagResult struct {
	Flagged int      `json:"flagged"`
	Errors  []string `json:"errors,omitempty"`
}

// PassResult bundles one full scheduling pass.
type PassResult struct {
	Tier1 TierResult `json:"tier_1"`
	Tier2 TierResult `json:"tier_2"`
	Flag  FlagResult `json:"flag"`
}

// Engine re-derives reminder eligibility from absolute timestamps on every
// pass. There is no persisted cursor: a crashed or skipped pass self-heals
// on the next run, and re-running a pass is a no-op once timestamps are
// stamped.
type Engine struct {
	enrollments domain.EnrollmentRepository
	machine     *progress.Machine
	sender      messagingapp.MessageSender
	logger      *slog.Logger
	cfg         EngineConfig
}

func NewEngine(
	enrollments domain.EnrollmentRepository,
	machine *progress.Machine,
	sender messagingapp.MessageSender,
	logger *slog.Logger,
	cfg EngineConfig,
) *Engine {
	if cfg.WindowTolerance <= 0 {
		cfg.WindowTolerance = time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Engine{
		enrollments: enrollments,
		machine:     machine,
		sender:      sender,
		logger:      logger.With("component", "reminder_engine"),
		cfg:         cfg,
	}
}

// RunTier sends one reminder tier (1 or 2) to every eligible enrollment
// whose campaign send time falls within the tolerance window of now. One
// client's failure never aborts the cohort; failed rows keep a null
// timestamp and are retried on the next pass.
func (e *Engine) RunTier(ctx context.Context, tier domain.ReminderTier, now time.Time) (TierResult, error) {
	result := TierResult{Tier: tier}
	if tier != domain.TierFirstReminder && tier != domain.TierSecondReminder {
		return result, fmt.Errorf("tier %d is not a sendable reminder tier", tier)
	}

	timer := prometheus.NewTimer(passDurationHist.WithLabelValues("tier_" + strconv.Itoa(int(tier))))
	defer timer.ObserveDuration()

	due, err := e.enrollments.ListDueForTier(ctx, tier, now, e.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("list due enrollments for tier %d: %w", tier, err)
	}
	e.logger.InfoContext(ctx, "reminder tier pass started",
		"tier", int(tier), "candidates", len(due), "as_of", now.UTC().Format(time.RFC3339))

	tierLabel := strconv.Itoa(int(tier))
	for _, d := range due {
		if !e.withinSendWindow(d.Campaign, now) {
			result.Skipped++
			remindersCounter.WithLabelValues(tierLabel, "skipped_window").Inc()
			continue
		}

		if err := e.sendReminder(ctx, tier, d, now); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", d.ClientName, err))
			remindersCounter.WithLabelValues(tierLabel, "failed").Inc()
			e.logger.ErrorContext(ctx, "reminder send failed",
				"error", err, "tier", int(tier),
				"enrollment_id", d.Enrollment.ID, "client", d.ClientName)
			continue
		}

		result.Sent++
		remindersCounter.WithLabelValues(tierLabel, "sent").Inc()
	}

	e.logger.InfoContext(ctx, "reminder tier pass finished",
		"tier", int(tier), "sent", result.Sent, "failed", result.Failed, "skipped_window", result.Skipped)
	return result, nil
}

func (e *Engine) sendReminder(ctx context.Context, tier domain.ReminderTier, d *domain.DueEnrollment, now time.Time) error {
	template := TemplateReminderTier1
	if tier == domain.TierSecondReminder {
		template = TemplateReminderTier2
	}

	_, err := e.sender.Send(ctx, messagingapp.OutboundMessage{
		AccountID:    d.Campaign.AccountID,
		ClientID:     d.Enrollment.ClientID,
		CampaignID:   uuid.NullUUID{UUID: d.Campaign.ID, Valid: true},
		Recipient:    d.ClientPhone,
		TemplateName: template,
		TemplateVars: []string{d.ClientName, d.Campaign.DocumentDescription()},
	})
	if err != nil {
		// Timestamp stays null so the next pass retries this client.
		return err
	}

	if err := e.machine.MarkReminderSent(ctx, d.Enrollment, d.Campaign, tier, now); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// An overlapping pass stamped the row first; the reminder went
			// out twice, which the design accepts as a rare duplicate.
			e.logger.WarnContext(ctx, "reminder stamp lost race with another pass",
				"enrollment_id", d.Enrollment.ID, "tier", int(tier))
			return nil
		}
		return fmt.Errorf("stamp reminder sent: %w", err)
	}
	return nil
}

// RunFlagStep flips eligible pending enrollments to failed once the third
// offset has elapsed. There is no send-window gate and no outbound message;
// the step represents giving up.
func (e *Engine) RunFlagStep(ctx context.Context, now time.Time) (FlagResult, error) {
	var result FlagResult

	timer := prometheus.NewTimer(passDurationHist.WithLabelValues("flag"))
	defer timer.ObserveDuration()

	due, err := e.enrollments.ListDueForTier(ctx, domain.TierStuckFlag, now, e.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("list due enrollments for flag step: %w", err)
	}
	e.logger.InfoContext(ctx, "flag step started", "candidates", len(due))

	for _, d := range due {
		if err := e.machine.MarkStuck(ctx, d.Enrollment, d.Campaign, now); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				// Already resolved by a concurrent event or pass.
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", d.ClientName, err))
			e.logger.ErrorContext(ctx, "flag step failed for enrollment",
				"error", err, "enrollment_id", d.Enrollment.ID)
			continue
		}
		result.Flagged++
		remindersCounter.WithLabelValues("3", "flagged").Inc()
	}

	e.logger.InfoContext(ctx, "flag step finished", "flagged", result.Flagged, "errors", len(result.Errors))
	return result, nil
}

// RunPass executes both reminder tiers and the flag step in sequence. A
// store failure in one step is reported but does not stop the later steps;
// each re-derives its own cohort.
func (e *Engine) RunPass(ctx context.Context, now time.Time) (PassResult, error) {
	var pass PassResult
	var firstErr error

	tier1, err := e.RunTier(ctx, domain.TierFirstReminder, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	pass.Tier1 = tier1

	tier2, err := e.RunTier(ctx, domain.TierSecondReminder, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	pass.Tier2 = tier2

	flag, err := e.RunFlagStep(ctx, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	pass.Flag = flag

	return pass, firstErr
}

// withinSendWindow checks the campaign's daily send time against now with
// the configured tolerance. The window bounds reminders to business hours
// and absorbs cron cadence drift without sub-hour scheduling.
func (e *Engine) withinSendWindow(c *domain.Campaign, now time.Time) bool {
	sendTime := c.SendTimeOn(now)
	diff := now.Sub(sendTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.cfg.WindowTolerance
}
