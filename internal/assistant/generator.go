// Package assistant produces reply text for inbound client messages. The
// production deployment plugs an AI-backed implementation in here; the
// repository ships a deterministic template generator so the ingestion path
// works (and is testable) without one.
package assistant

import (
	"context"
	"fmt"
)

// ReplyContext is what the generator knows about the conversation.
type ReplyContext struct {
	ClientName          string
	InboundBody         string
	DocumentDescription string // e.g. "Q2 2026 bank statement", empty when no active campaign
	HasMedia            bool
}

// ReplyGenerator produces the body of an automated reply.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, rc ReplyContext) (string, error)
}

// TemplateGenerator answers with canned accountant-office phrasing.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) GenerateReply(_ context.Context, rc ReplyContext) (string, error) {
	if rc.HasMedia {
		return "Thanks! We received your document and will start processing it. We'll reach out if anything is missing.", nil
	}
	if rc.DocumentDescription != "" {
		return fmt.Sprintf("Thanks for your message. A reminder that we're still waiting on your %s — you can send it here as a photo or PDF.", rc.DocumentDescription), nil
	}
	return "Thanks for your message. Your accountant will get back to you shortly.", nil
}
