// Package tenant resolves the owning company for inbound traffic and carries
// its messaging-provider credentials. A tenant is immutable from the funnel
// engine's perspective.
package tenant

import (
	"context"

	"imobzap_backend/platform/config"

	"github.com/google/uuid"
)

// Credentials are a tenant's messaging-provider credentials. Gateway fields
// drive the SMS/WhatsApp gateway client; bridge fields drive the self-hosted
// WhatsApp bridge client. Either set may be empty.
type Credentials struct {
	GatewayAccountSID string
	GatewayAuthToken  string
	GatewayFrom       string
	BridgeURL         string
	BridgeAPIKey      string
	BridgeDeviceID    string
}

// HasGateway reports whether the gateway client can be used.
func (c Credentials) HasGateway() bool {
	return c.GatewayAccountSID != "" && c.GatewayAuthToken != ""
}

// HasBridge reports whether the bridge client can be used.
func (c Credentials) HasBridge() bool {
	return c.BridgeURL != ""
}

// WithDefaults fills empty credential sets from the startup defaults. The
// defaults come in by value from config.Load; there is no ambient lookup.
func (c Credentials) WithDefaults(d config.Credentials) Credentials {
	if !c.HasGateway() && d.GatewayAccountSID != "" {
		c.GatewayAccountSID = d.GatewayAccountSID
		c.GatewayAuthToken = d.GatewayAuthToken
		c.GatewayFrom = d.GatewayFrom
	}
	if !c.HasBridge() && d.BridgeURL != "" {
		c.BridgeURL = d.BridgeURL
		c.BridgeAPIKey = d.BridgeAPIKey
		c.BridgeDeviceID = d.BridgeDeviceID
	}
	return c
}

// Tenant is one customer organization. All funnel data is partitioned by
// tenant ID.
type Tenant struct {
	ID            uuid.UUID
	Name          string
	AssistantName string
	InboxNumber   string
	NotifyEmail   string
	Credentials   Credentials
}

// Store resolves tenants for inbound traffic and deferred work.
type Store interface {
	// GetByInboxNumber returns the tenant owning the given E.164 number, or
	// an apperr.KindUnroutable error when no tenant matches.
	GetByInboxNumber(ctx context.Context, number string) (Tenant, error)
	// GetByID returns the tenant by primary key.
	GetByID(ctx context.Context, id uuid.UUID) (Tenant, error)
}
