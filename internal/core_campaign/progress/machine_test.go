package progress

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

// --- Mocks ---

type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *MockEnrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}
func (m *MockEnrollmentRepository) GetLatestActiveByClient(ctx context.Context, clientID uuid.UUID) (*domain.Enrollment, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}
func (m *MockEnrollmentRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*domain.EnrollmentClient, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EnrollmentClient), args.Error(1)
}
func (m *MockEnrollmentRepository) ListDueForTier(ctx context.Context, tier domain.ReminderTier, asOf time.Time, limit int) ([]*domain.DueEnrollment, error) {
	args := m.Called(ctx, tier, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueEnrollment), args.Error(1)
}
func (m *MockEnrollmentRepository) SetFirstMessageSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockEnrollmentRepository) SetReminderSent(ctx context.Context, id uuid.UUID, tier domain.ReminderTier, at time.Time) (bool, error) {
	args := m.Called(ctx, id, tier, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockEnrollmentRepository) MarkReceived(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockEnrollmentRepository) MarkStuck(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// --- Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingEnrollment(anchor time.Time) *domain.Enrollment {
	e := domain.NewEnrollment(uuid.New(), uuid.New(), uuid.New())
	e.FirstMessageSentAt = sql.NullTime{Time: anchor, Valid: true}
	return e
}

func activeCampaign() *domain.Campaign {
	c := domain.NewCampaign(uuid.New(), uuid.New(), "Q2 chase", "bank statement", "Q2 2026", 10, 0)
	c.Status = domain.CampaignStatusActive
	return c
}

// --- Tests ---

func TestEnroll_DraftCampaign(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := domain.NewCampaign(uuid.New(), uuid.New(), "Q2 chase", "bank statement", "Q2 2026", 10, 0)
	clientID := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.Enrollment) bool {
		return e.CampaignID == campaign.ID && e.ClientID == clientID && e.Status == domain.EnrollmentStatusPending
	})).Return(nil).Once()

	e, err := machine.Enroll(context.Background(), campaign, clientID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentStatusPending, e.Status)
	assert.False(t, e.FirstMessageSentAt.Valid)
	repo.AssertExpectations(t)
}

func TestEnroll_RejectsNonDraftCampaign(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := activeCampaign()

	_, err := machine.Enroll(context.Background(), campaign, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCampaignNotDraft)
	repo.AssertNotCalled(t, "Create")
}

func TestMarkFirstMessageSent_LostRaceIsInvalidTransition(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	id := uuid.New()
	at := time.Now().UTC()

	repo.On("SetFirstMessageSent", mock.Anything, id, at).Return(false, nil).Once()

	err := machine.MarkFirstMessageSent(context.Background(), id, at)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkReceived_IdempotentOnReceivedEnrollment(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	id := uuid.New()
	at := time.Now().UTC()

	received := domain.NewEnrollment(id, uuid.New(), uuid.New())
	received.Status = domain.EnrollmentStatusReceived

	repo.On("MarkReceived", mock.Anything, id, at).Return(false, nil).Once()
	repo.On("GetByID", mock.Anything, id).Return(received, nil).Once()

	err := machine.MarkReceived(context.Background(), id, at)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarkReceived_RejectedOnFailedEnrollment(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	id := uuid.New()
	at := time.Now().UTC()

	failed := domain.NewEnrollment(id, uuid.New(), uuid.New())
	failed.Status = domain.EnrollmentStatusFailed

	repo.On("MarkReceived", mock.Anything, id, at).Return(false, nil).Once()
	repo.On("GetByID", mock.Anything, id).Return(failed, nil).Once()

	err := machine.MarkReceived(context.Background(), id, at)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMarkReminderSent_StampsDueTier(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := activeCampaign()
	now := time.Now().UTC()
	e := pendingEnrollment(now.Add(-4 * 24 * time.Hour)) // past the 3-day offset

	repo.On("SetReminderSent", mock.Anything, e.ID, domain.TierFirstReminder, now).Return(true, nil).Once()

	err := machine.MarkReminderSent(context.Background(), e, campaign, domain.TierFirstReminder, now)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarkReminderSent_GuardFailures(t *testing.T) {
	now := time.Now().UTC()
	dueAnchor := now.Add(-4 * 24 * time.Hour)

	tests := []struct {
		name     string
		mutateE  func(e *domain.Enrollment)
		mutateC  func(c *domain.Campaign)
		tier     domain.ReminderTier
	}{
		{
			name:    "terminal enrollment",
			mutateE: func(e *domain.Enrollment) { e.Status = domain.EnrollmentStatusReceived },
			tier:    domain.TierFirstReminder,
		},
		{
			name:    "null anchor",
			mutateE: func(e *domain.Enrollment) { e.FirstMessageSentAt = sql.NullTime{} },
			tier:    domain.TierFirstReminder,
		},
		{
			name: "tier already sent",
			mutateE: func(e *domain.Enrollment) {
				e.Reminder1SentAt = sql.NullTime{Time: now.Add(-time.Hour), Valid: true}
			},
			tier: domain.TierFirstReminder,
		},
		{
			name:    "tier disabled",
			mutateC: func(c *domain.Campaign) { c.Reminder2Enabled = false },
			tier:    domain.TierSecondReminder,
		},
		{
			name: "offset not yet elapsed",
			mutateE: func(e *domain.Enrollment) {
				e.FirstMessageSentAt = sql.NullTime{Time: now.Add(-24 * time.Hour), Valid: true}
			},
			tier: domain.TierFirstReminder,
		},
		{
			name: "stuck flag tier is not sendable",
			tier: domain.TierStuckFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockEnrollmentRepository)
			machine := New(repo, testLogger())
			campaign := activeCampaign()
			e := pendingEnrollment(dueAnchor)
			if tt.mutateE != nil {
				tt.mutateE(e)
			}
			if tt.mutateC != nil {
				tt.mutateC(campaign)
			}

			err := machine.MarkReminderSent(context.Background(), e, campaign, tt.tier, now)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			repo.AssertNotCalled(t, "SetReminderSent")
		})
	}
}

func TestMarkReminderSent_SecondTierUsesItsOwnOffset(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := activeCampaign()
	now := time.Now().UTC()

	// 4 days elapsed: past the tier-1 offset (3) but short of tier 2 (6).
	e := pendingEnrollment(now.Add(-4 * 24 * time.Hour))
	e.Reminder1SentAt = sql.NullTime{Time: now.Add(-24 * time.Hour), Valid: true}

	err := machine.MarkReminderSent(context.Background(), e, campaign, domain.TierSecondReminder, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	repo.AssertNotCalled(t, "SetReminderSent")
}

func TestMarkStuck_FlipsPendingToFailed(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := activeCampaign()
	now := time.Now().UTC()
	e := pendingEnrollment(now.Add(-10 * 24 * time.Hour)) // past the 9-day offset

	repo.On("MarkStuck", mock.Anything, e.ID, now).Return(true, nil).Once()

	err := machine.MarkStuck(context.Background(), e, campaign, now)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestMarkStuck_DisabledFlagStep(t *testing.T) {
	repo := new(MockEnrollmentRepository)
	machine := New(repo, testLogger())
	campaign := activeCampaign()
	campaign.FlagStepEnabled = false
	now := time.Now().UTC()
	e := pendingEnrollment(now.Add(-10 * 24 * time.Hour))

	err := machine.MarkStuck(context.Background(), e, campaign, now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	repo.AssertNotCalled(t, "MarkStuck")
}
