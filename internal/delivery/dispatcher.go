package delivery

import (
	"context"
	"sync"

	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/apperr"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Dispatcher routes sends to the tenant's providers. The gateway is tried
// first when configured; on failure the bridge takes over. Each tenant gets
// its own outbound rate limiter so one noisy tenant cannot starve the rest.
type Dispatcher struct {
	gateway Sender
	bridge  Sender
	log     *logger.Logger

	perMinute int
	mu        sync.Mutex
	limiters  map[uuid.UUID]*rate.Limiter
}

func NewDispatcher(gateway, bridge Sender, perMinute int, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		gateway:   gateway,
		bridge:    bridge,
		log:       log,
		perMinute: perMinute,
		limiters:  make(map[uuid.UUID]*rate.Limiter),
	}
}

// Dispatch sends one message for the tenant, blocking on the tenant's rate
// limiter first. Returns the result from whichever provider accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, t tenant.Tenant, to, body string) (SendResult, error) {
	if err := d.limiter(t.ID).Wait(ctx); err != nil {
		return SendResult{}, apperr.Unavailable("outbound rate wait aborted", err)
	}

	if t.Credentials.HasGateway() {
		result, err := d.gateway.Send(ctx, t.Credentials, to, body)
		if err == nil {
			return result, nil
		}
		d.log.ProviderFailure("gateway", "send", err)

		if !t.Credentials.HasBridge() {
			return SendResult{}, err
		}
	}

	if !t.Credentials.HasBridge() {
		return SendResult{}, apperr.Unavailable("tenant has no delivery provider configured", nil)
	}

	result, err := d.bridge.Send(ctx, t.Credentials, to, body)
	if err != nil {
		d.log.ProviderFailure("bridge", "send", err)
		return SendResult{}, err
	}
	return result, nil
}

func (d *Dispatcher) limiter(tenantID uuid.UUID) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(d.perMinute)/60.0), d.perMinute)
		d.limiters[tenantID] = l
	}
	return l
}
