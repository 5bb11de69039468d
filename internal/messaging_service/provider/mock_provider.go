package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// MockWhatsAppProvider is a test implementation of WhatsAppSenderProvider.
type MockWhatsAppProvider struct {
	logger         *slog.Logger
	FailSend       bool          // simulate transport failure
	SimulatedDelay time.Duration // simulate network latency

	// SentRequests records every call for assertions.
	SentRequests []SendRequestDetails
}

func NewMockWhatsAppProvider(logger *slog.Logger) *MockWhatsAppProvider {
	return &MockWhatsAppProvider{logger: logger.With("provider", "mock")}
}

func (p *MockWhatsAppProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	if p.SimulatedDelay > 0 {
		time.Sleep(p.SimulatedDelay)
	}
	p.SentRequests = append(p.SentRequests, details)

	if p.FailSend {
		return nil, errors.New("mock provider simulated send failure")
	}

	return &SendResponseDetails{
		ProviderMessageID: "mock-" + uuid.NewString(),
		IsSuccess:         true,
		ProviderStatus:    "queued",
	}, nil
}

func (p *MockWhatsAppProvider) GetName() string {
	return "mock"
}
