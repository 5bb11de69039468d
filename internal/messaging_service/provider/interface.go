package provider

import "context"

// SendRequestDetails holds the data needed to push one WhatsApp message to
// the transport provider. Either Body or TemplateName must be set; when
// TemplateName is set, TemplateVars substitute positionally into the
// provider-side template.
type SendRequestDetails struct {
	InternalMessageID string // our MessageLog id, for correlation in logs
	Recipient         string // E.164 phone
	Body              string
	TemplateName      string
	TemplateVars      []string
}

// SendResponseDetails holds the outcome of a send attempt.
type SendResponseDetails struct {
	ProviderMessageID string
	IsSuccess         bool
	ProviderStatus    string // provider's initial delivery status, e.g. "queued"
	ErrorMessage      string
}

// WhatsAppSenderProvider is the transport adapter. Implementations must
// return an error for transport-level failures (network, auth, rejected
// request); callers catch it per recipient and never let one failure stall
// a batch.
type WhatsAppSenderProvider interface {
	Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error)
	GetName() string
}
