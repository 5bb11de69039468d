package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTwilioWhatsAppProvider_SendTemplate(t *testing.T) {
	var captured struct {
		path        string
		form        map[string]string
		haveAuth    bool
		sid, secret string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured.path = r.URL.Path
		captured.form = map[string]string{}
		for k := range r.PostForm {
			captured.form[k] = r.PostFormValue(k)
		}
		captured.sid, captured.secret, captured.haveAuth = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"sid": "SM123", "status": "queued"})
	}))
	defer server.Close()

	p := NewTwilioWhatsAppProvider(discardLogger(), server.URL, "AC1", "token", "+10000000000", server.Client())

	resp, err := p.Send(context.Background(), SendRequestDetails{
		InternalMessageID: "internal-1",
		Recipient:         "+4915112345678",
		TemplateName:      "document_reminder_1",
		TemplateVars:      []string{"Acme GmbH", "Q2 2026 bank statement"},
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.Equal(t, "SM123", resp.ProviderMessageID)
	assert.Equal(t, "queued", resp.ProviderStatus)

	assert.Equal(t, "/Accounts/AC1/Messages.json", captured.path)
	assert.Equal(t, "whatsapp:+10000000000", captured.form["From"])
	assert.Equal(t, "whatsapp:+4915112345678", captured.form["To"])
	assert.Equal(t, "document_reminder_1", captured.form["ContentSid"])
	assert.Empty(t, captured.form["Body"])

	var vars map[string]string
	require.NoError(t, json.Unmarshal([]byte(captured.form["ContentVariables"]), &vars))
	assert.Equal(t, "Acme GmbH", vars["1"])
	assert.Equal(t, "Q2 2026 bank statement", vars["2"])

	assert.True(t, captured.haveAuth)
	assert.Equal(t, "AC1", captured.sid)
	assert.Equal(t, "token", captured.secret)
}

func TestTwilioWhatsAppProvider_SendPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Hi, please send your Q2 statements.", r.PostFormValue("Body"))
		assert.Empty(t, r.PostFormValue("ContentSid"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"sid": "SM456", "status": "queued"})
	}))
	defer server.Close()

	p := NewTwilioWhatsAppProvider(discardLogger(), server.URL, "AC1", "token", "+10000000000", server.Client())

	resp, err := p.Send(context.Background(), SendRequestDetails{
		Recipient: "+4915112345678",
		Body:      "Hi, please send your Q2 statements.",
	})
	require.NoError(t, err)
	assert.Equal(t, "SM456", resp.ProviderMessageID)
}

func TestTwilioWhatsAppProvider_RejectionReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "failed",
			"error_code":    21211,
			"error_message": "Invalid 'To' phone number",
		})
	}))
	defer server.Close()

	p := NewTwilioWhatsAppProvider(discardLogger(), server.URL, "AC1", "token", "+10000000000", server.Client())

	_, err := p.Send(context.Background(), SendRequestDetails{
		Recipient: "not-a-number",
		Body:      "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid 'To' phone number")
}

func TestMockWhatsAppProvider_RecordsRequests(t *testing.T) {
	p := NewMockWhatsAppProvider(discardLogger())

	resp, err := p.Send(context.Background(), SendRequestDetails{
		Recipient:    "+4915112345678",
		TemplateName: "document_request_intro",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.NotEmpty(t, resp.ProviderMessageID)
	require.Len(t, p.SentRequests, 1)
	assert.Equal(t, "+4915112345678", p.SentRequests[0].Recipient)

	p.FailSend = true
	_, err = p.Send(context.Background(), SendRequestDetails{Recipient: "+4915100000000"})
	assert.Error(t, err)
}
