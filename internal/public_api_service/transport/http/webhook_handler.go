package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	ingestapp "github.com/beanstack/docchase/internal/ingestion_service/app"
)

// InboundProcessor is the ingestion contract the webhook layer depends on.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, in ingestapp.InboundMessage) error
	HandleStatusCallback(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) error
}

// WebhookHandler terminates the transport provider's callbacks. Both
// endpoints always answer 200: the provider retries on any other status,
// and a retried event would be double-processed, which is worse than a
// dropped one.
type WebhookHandler struct {
	ingestor        InboundProcessor
	logger          *slog.Logger
	authToken       string
	baseURL         string
	verifySignature bool
}

func NewWebhookHandler(ingestor InboundProcessor, logger *slog.Logger, authToken, baseURL string, verifySignature bool) *WebhookHandler {
	return &WebhookHandler{
		ingestor:        ingestor,
		logger:          logger.With("handler", "webhook"),
		authToken:       authToken,
		baseURL:         baseURL,
		verifySignature: verifySignature,
	}
}

// HandleInboundMessage processes POST /webhooks/whatsapp/inbound.
func (h *WebhookHandler) HandleInboundMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "failed to parse webhook form", "error", err)
		h.ack(w)
		return
	}

	if !h.signatureOK(r) {
		// A bad signature is the one case that is not acked: the request
		// did not come from the transport, so there is no retry storm to
		// avoid.
		logger.WarnContext(ctx, "webhook signature validation failed")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	in := ingestapp.InboundMessage{
		FromPhone:         stripWhatsAppPrefix(r.PostFormValue("From")),
		Body:              r.PostFormValue("Body"),
		ProviderMessageID: r.PostFormValue("MessageSid"),
	}
	if numMedia := r.PostFormValue("NumMedia"); numMedia != "" && numMedia != "0" {
		in.MediaURL = r.PostFormValue("MediaUrl0")
		in.MediaContentType = r.PostFormValue("MediaContentType0")
	}

	if err := h.ingestor.HandleInbound(ctx, in); err != nil {
		// Internal failures are logged, never surfaced: the transport must
		// not be given a reason to retry this event.
		logger.ErrorContext(ctx, "inbound message processing failed", "error", err)
	}
	h.ack(w)
}

// HandleStatusCallback processes POST /webhooks/whatsapp/status.
func (h *WebhookHandler) HandleStatusCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "failed to parse status callback form", "error", err)
		h.ack(w)
		return
	}

	providerMessageID := r.PostFormValue("MessageSid")
	status := domain.DeliveryStatus(r.PostFormValue("MessageStatus"))
	if providerMessageID == "" || status == "" {
		logger.WarnContext(ctx, "status callback missing fields")
		h.ack(w)
		return
	}

	if err := h.ingestor.HandleStatusCallback(ctx, providerMessageID, status); err != nil {
		logger.ErrorContext(ctx, "status callback processing failed",
			"error", err, "provider_message_id", providerMessageID)
	}
	h.ack(w)
}

func (h *WebhookHandler) signatureOK(r *http.Request) bool {
	if !h.verifySignature {
		return true
	}
	callbackURL := strings.TrimRight(h.baseURL, "/") + r.URL.Path
	return validWebhookSignature(h.authToken, callbackURL, r.PostForm, r.Header.Get("X-Twilio-Signature"))
}

// ack returns the empty TwiML document the transport expects.
func (h *WebhookHandler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
}

func stripWhatsAppPrefix(from string) string {
	return strings.TrimPrefix(from, "whatsapp:")
}
