package tenant

import (
	"context"
	"errors"
	"fmt"

	"imobzap_backend/platform/apperr"
	"imobzap_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new tenant repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// GetByInboxNumber retrieves the tenant whose inbox number received a message.
func (r *Repo) GetByInboxNumber(ctx context.Context, number string) (Tenant, error) {
	query := `
		SELECT id, name, assistant_name, inbox_number, notify_email,
		       gateway_account_sid, gateway_auth_token, gateway_from,
		       bridge_url, bridge_api_key, bridge_device_id
		FROM tenants
		WHERE inbox_number = $1`

	var t Tenant
	err := r.pool.QueryRow(ctx, query, phone.Canonical(number)).Scan(
		&t.ID, &t.Name, &t.AssistantName, &t.InboxNumber, &t.NotifyEmail,
		&t.Credentials.GatewayAccountSID, &t.Credentials.GatewayAuthToken, &t.Credentials.GatewayFrom,
		&t.Credentials.BridgeURL, &t.Credentials.BridgeAPIKey, &t.Credentials.BridgeDeviceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.Unroutable("no tenant for inbox number")
		}
		return Tenant{}, fmt.Errorf("get tenant by inbox number: %w", err)
	}

	return t, nil
}

// GetByID retrieves a tenant by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	query := `
		SELECT id, name, assistant_name, inbox_number, notify_email,
		       gateway_account_sid, gateway_auth_token, gateway_from,
		       bridge_url, bridge_api_key, bridge_device_id
		FROM tenants
		WHERE id = $1`

	var t Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.AssistantName, &t.InboxNumber, &t.NotifyEmail,
		&t.Credentials.GatewayAccountSID, &t.Credentials.GatewayAuthToken, &t.Credentials.GatewayFrom,
		&t.Credentials.BridgeURL, &t.Credentials.BridgeAPIKey, &t.Credentials.BridgeDeviceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound("tenant not found")
		}
		return Tenant{}, fmt.Errorf("get tenant by id: %w", err)
	}

	return t, nil
}
