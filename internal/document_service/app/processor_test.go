package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}
func (m *MockDocumentRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ConversionStatus, errMsg sql.NullString) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func newProcessorFixture() (*Processor, *MockDocumentRepository, *MockConverter) {
	repo := new(MockDocumentRepository)
	conv := new(MockConverter)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProcessor(repo, conv, logger), repo, conv
}

func TestProcess_HappyPath(t *testing.T) {
	p, repo, conv := newProcessorFixture()
	doc := domain.NewDocument(uuid.New(), uuid.New(), uuid.NullUUID{}, "https://api.example.net/media/abc", "application/pdf")

	repo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Once()
	repo.On("SetStatus", mock.Anything, doc.ID, domain.ConversionStatusConverting, sql.NullString{}).Return(nil).Once()
	conv.On("Convert", mock.Anything, doc).Return(nil).Once()
	repo.On("SetStatus", mock.Anything, doc.ID, domain.ConversionStatusConverted, sql.NullString{}).Return(nil).Once()

	err := p.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	conv.AssertExpectations(t)
}

func TestProcess_ConversionFailureRecordedNotReturned(t *testing.T) {
	p, repo, conv := newProcessorFixture()
	doc := domain.NewDocument(uuid.New(), uuid.New(), uuid.NullUUID{}, "https://api.example.net/media/abc", "application/pdf")

	repo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Once()
	repo.On("SetStatus", mock.Anything, doc.ID, domain.ConversionStatusConverting, sql.NullString{}).Return(nil).Once()
	conv.On("Convert", mock.Anything, doc).Return(errors.New("unsupported page size")).Once()
	repo.On("SetStatus", mock.Anything, doc.ID, domain.ConversionStatusFailed,
		sql.NullString{String: "unsupported page size", Valid: true}).Return(nil).Once()

	err := p.Process(context.Background(), doc.ID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcess_DuplicateDeliverySkipped(t *testing.T) {
	p, repo, conv := newProcessorFixture()
	doc := domain.NewDocument(uuid.New(), uuid.New(), uuid.NullUUID{}, "https://api.example.net/media/abc", "application/pdf")
	doc.Status = domain.ConversionStatusConverted

	repo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil).Once()

	err := p.Process(context.Background(), doc.ID)
	assert.NoError(t, err)
	conv.AssertNotCalled(t, "Convert")
	repo.AssertNotCalled(t, "SetStatus")
}
