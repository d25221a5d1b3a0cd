package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/apperr"
	"imobzap_backend/platform/phone"
)

// BridgeClient sends messages through a self-hosted WhatsApp bridge. The
// bridge expects a JSON payload with the number in bare digits, basic auth
// from the tenant's API key, and the device in an X-Device-Id header.
type BridgeClient struct {
	client *http.Client
}

func NewBridgeClient(timeout time.Duration) *BridgeClient {
	return &BridgeClient{client: &http.Client{Timeout: timeout}}
}

type bridgeRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type bridgeResponse struct {
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

func (c *BridgeClient) Send(ctx context.Context, creds tenant.Credentials, to, body string) (SendResult, error) {
	if !creds.HasBridge() {
		return SendResult{}, apperr.Unavailable("bridge credentials not configured", nil)
	}

	normalized := strings.TrimPrefix(phone.Canonical(to), "+")
	payload, err := json.Marshal(bridgeRequest{Phone: normalized, Message: body})
	if err != nil {
		return SendResult{}, apperr.Wrap(apperr.KindInternal, "marshal bridge payload", err)
	}

	endpoint := strings.TrimRight(creds.BridgeURL, "/") + "/send/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return SendResult{}, apperr.Wrap(apperr.KindInternal, "build bridge request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if creds.BridgeAPIKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(creds.BridgeAPIKey))
	}
	if creds.BridgeDeviceID != "" {
		req.Header.Set("X-Device-Id", creds.BridgeDeviceID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return SendResult{}, apperr.Unavailable("bridge request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= http.StatusBadRequest {
		return SendResult{}, apperr.Unavailable(
			fmt.Sprintf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var parsed bridgeResponse
	_ = json.Unmarshal(raw, &parsed)

	return SendResult{ProviderMessageID: parsed.Results.MessageID, Provider: "bridge"}, nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
