// Package delivery sends outbound WhatsApp messages through the tenant's
// configured providers, falling back from the gateway to the bridge when the
// primary send fails.
package delivery

import (
	"context"

	"imobzap_backend/internal/tenant"
)

// SendResult identifies the accepted message at the provider that took it.
type SendResult struct {
	ProviderMessageID string
	Provider          string
}

// Sender sends one text message to a phone number using tenant credentials.
type Sender interface {
	Send(ctx context.Context, creds tenant.Credentials, to, body string) (SendResult, error)
}
