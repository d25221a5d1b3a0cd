package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/apperr"
)

// GatewayClient sends messages through the hosted WhatsApp gateway's REST
// API. Requests are form encoded and authenticated with the tenant's account
// SID and auth token over basic auth.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type gatewayResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *GatewayClient) Send(ctx context.Context, creds tenant.Credentials, to, body string) (SendResult, error) {
	if !creds.HasGateway() {
		return SendResult{}, apperr.Unavailable("gateway credentials not configured", nil)
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+creds.GatewayFrom)
	form.Set("To", "whatsapp:"+to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, creds.GatewayAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, apperr.Wrap(apperr.KindInternal, "build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(creds.GatewayAccountSID, creds.GatewayAuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return SendResult{}, apperr.Unavailable("gateway request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SendResult{}, apperr.Unavailable("gateway response unreadable", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, apperr.Unavailable(fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return SendResult{}, apperr.Unavailable("gateway response malformed", err)
	}

	return SendResult{ProviderMessageID: parsed.SID, Provider: "gateway"}, nil
}
