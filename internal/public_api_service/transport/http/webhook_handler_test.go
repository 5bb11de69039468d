package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/beanstack/docchase/internal/core_campaign/domain"
	ingestapp "github.com/beanstack/docchase/internal/ingestion_service/app"
)

type MockInboundProcessor struct {
	mock.Mock
}

func (m *MockInboundProcessor) HandleInbound(ctx context.Context, in ingestapp.InboundMessage) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockInboundProcessor) HandleStatusCallback(ctx context.Context, providerMessageID string, status domain.DeliveryStatus) error {
	args := m.Called(ctx, providerMessageID, status)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleInboundMessage_ParsesProviderFields(t *testing.T) {
	processor := new(MockInboundProcessor)
	h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)

	processor.On("HandleInbound", mock.Anything, ingestapp.InboundMessage{
		FromPhone:         "+4915112345678",
		Body:              "here you go",
		MediaURL:          "https://api.example.net/media/abc",
		MediaContentType:  "application/pdf",
		ProviderMessageID: "SM123",
	}).Return(nil).Once()

	form := url.Values{}
	form.Set("From", "whatsapp:+4915112345678")
	form.Set("Body", "here you go")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", "https://api.example.net/media/abc")
	form.Set("MediaContentType0", "application/pdf")
	form.Set("MessageSid", "SM123")

	rec := postForm(t, h.HandleInboundMessage, "/webhooks/whatsapp/inbound", form, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response></Response>")
	processor.AssertExpectations(t)
}

func TestHandleInboundMessage_NoMediaFieldsWhenNumMediaZero(t *testing.T) {
	processor := new(MockInboundProcessor)
	h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)

	processor.On("HandleInbound", mock.Anything, mock.MatchedBy(func(in ingestapp.InboundMessage) bool {
		return in.MediaURL == "" && !in.HasMedia()
	})).Return(nil).Once()

	form := url.Values{}
	form.Set("From", "whatsapp:+4915112345678")
	form.Set("Body", "hello")
	form.Set("NumMedia", "0")
	form.Set("MediaUrl0", "https://api.example.net/media/should-be-ignored")

	rec := postForm(t, h.HandleInboundMessage, "/webhooks/whatsapp/inbound", form, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	processor.AssertExpectations(t)
}

func TestHandleInboundMessage_ProcessingErrorStillAcks(t *testing.T) {
	processor := new(MockInboundProcessor)
	h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)

	processor.On("HandleInbound", mock.Anything, mock.Anything).
		Return(errors.New("database down")).Once()

	form := url.Values{}
	form.Set("From", "whatsapp:+4915112345678")
	form.Set("Body", "hi")

	rec := postForm(t, h.HandleInboundMessage, "/webhooks/whatsapp/inbound", form, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleInboundMessage_SignatureVerification(t *testing.T) {
	const authToken = "secret-token"
	const baseURL = "https://hooks.example.net"

	form := url.Values{}
	form.Set("From", "whatsapp:+4915112345678")
	form.Set("Body", "hi")
	form.Set("MessageSid", "SM1")

	t.Run("ValidSignatureAccepted", func(t *testing.T) {
		processor := new(MockInboundProcessor)
		h := NewWebhookHandler(processor, testLogger(), authToken, baseURL, true)
		processor.On("HandleInbound", mock.Anything, mock.Anything).Return(nil).Once()

		sig := computeWebhookSignature(authToken, baseURL+"/webhooks/whatsapp/inbound", form)
		header := http.Header{}
		header.Set("X-Twilio-Signature", sig)

		rec := postForm(t, h.HandleInboundMessage, "/webhooks/whatsapp/inbound", form, header)
		assert.Equal(t, http.StatusOK, rec.Code)
		processor.AssertExpectations(t)
	})

	t.Run("BadSignatureRejected", func(t *testing.T) {
		processor := new(MockInboundProcessor)
		h := NewWebhookHandler(processor, testLogger(), authToken, baseURL, true)

		header := http.Header{}
		header.Set("X-Twilio-Signature", "bogus")

		rec := postForm(t, h.HandleInboundMessage, "/webhooks/whatsapp/inbound", form, header)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		processor.AssertNotCalled(t, "HandleInbound")
	})
}

func TestHandleStatusCallback(t *testing.T) {
	t.Run("KnownStatusForwarded", func(t *testing.T) {
		processor := new(MockInboundProcessor)
		h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)
		processor.On("HandleStatusCallback", mock.Anything, "SM123", domain.DeliveryStatusDelivered).
			Return(nil).Once()

		form := url.Values{}
		form.Set("MessageSid", "SM123")
		form.Set("MessageStatus", "delivered")

		rec := postForm(t, h.HandleStatusCallback, "/webhooks/whatsapp/status", form, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		processor.AssertExpectations(t)
	})

	t.Run("MissingFieldsStillAcked", func(t *testing.T) {
		processor := new(MockInboundProcessor)
		h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)

		rec := postForm(t, h.HandleStatusCallback, "/webhooks/whatsapp/status", url.Values{}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		processor.AssertNotCalled(t, "HandleStatusCallback")
	})

	t.Run("StoreErrorStillAcked", func(t *testing.T) {
		processor := new(MockInboundProcessor)
		h := NewWebhookHandler(processor, testLogger(), "", "http://localhost:8080", false)
		processor.On("HandleStatusCallback", mock.Anything, "SM1", domain.DeliveryStatusFailed).
			Return(errors.New("db error")).Once()

		form := url.Values{}
		form.Set("MessageSid", "SM1")
		form.Set("MessageStatus", "failed")

		rec := postForm(t, h.HandleStatusCallback, "/webhooks/whatsapp/status", form, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestStripWhatsAppPrefix(t *testing.T) {
	require.Equal(t, "+491234", stripWhatsAppPrefix("whatsapp:+491234"))
	require.Equal(t, "+491234", stripWhatsAppPrefix("+491234"))
}
