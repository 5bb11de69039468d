package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// TwilioWhatsAppProvider sends templated or free-form WhatsApp messages
// through Twilio's Messages API. All calls go through a circuit breaker so
// a provider outage fails fast instead of tying up reminder passes.
type TwilioWhatsAppProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	accountSID string
	authToken  string
	fromNumber string
	breaker    *gobreaker.CircuitBreaker[*SendResponseDetails]
}

func NewTwilioWhatsAppProvider(logger *slog.Logger, apiURL, accountSID, authToken, fromNumber string, httpClient *http.Client) *TwilioWhatsAppProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	breaker := gobreaker.NewCircuitBreaker[*SendResponseDetails](gobreaker.Settings{
		Name:    "twilio-whatsapp",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})
	return &TwilioWhatsAppProvider{
		logger:     logger.With("provider", "twilio"),
		httpClient: httpClient,
		apiURL:     strings.TrimRight(apiURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		breaker:    breaker,
	}
}

// twilioMessageResponse is the subset of Twilio's response we care about.
type twilioMessageResponse struct {
	Sid          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (p *TwilioWhatsAppProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	resp, err := p.breaker.Execute(func() (*SendResponseDetails, error) {
		return p.send(ctx, details)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *TwilioWhatsAppProvider) send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	form := url.Values{}
	form.Set("From", "whatsapp:"+p.fromNumber)
	form.Set("To", "whatsapp:"+details.Recipient)
	if details.TemplateName != "" {
		form.Set("ContentSid", details.TemplateName)
		if len(details.TemplateVars) > 0 {
			vars := make(map[string]string, len(details.TemplateVars))
			for i, v := range details.TemplateVars {
				vars[fmt.Sprintf("%d", i+1)] = v
			}
			varsJSON, err := json.Marshal(vars)
			if err != nil {
				return nil, fmt.Errorf("marshal template vars: %w", err)
			}
			form.Set("ContentVariables", string(varsJSON))
		}
	} else {
		form.Set("Body", details.Body)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.apiURL, p.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.accountSID, p.authToken)

	p.logger.DebugContext(ctx, "sending message to provider",
		"recipient", details.Recipient,
		"internal_message_id", details.InternalMessageID,
		"template", details.TemplateName,
	)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	var msg twilioMessageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, fmt.Errorf("decode provider response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.WarnContext(ctx, "provider rejected message",
			"status_code", httpResp.StatusCode,
			"provider_error", msg.ErrorMessage,
			"internal_message_id", details.InternalMessageID,
		)
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: msg.Status,
			ErrorMessage:   msg.ErrorMessage,
		}, fmt.Errorf("provider rejected message: status %d: %s", httpResp.StatusCode, msg.ErrorMessage)
	}

	return &SendResponseDetails{
		ProviderMessageID: msg.Sid,
		IsSuccess:         true,
		ProviderStatus:    msg.Status,
	}, nil
}

func (p *TwilioWhatsAppProvider) GetName() string {
	return "twilio"
}
