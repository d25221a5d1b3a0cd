// Package webhook module wiring.
package webhook

import (
	apphttp "imobzap_backend/internal/http"
	"imobzap_backend/platform/logger"
)

// Module is the webhook bounded context implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pipeline Pipeline, statuses StatusUpdater, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(pipeline, statuses, log)}
}

func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the provider callbacks at the API root. Providers
// are configured with these exact paths, so they stay outside /api/v1.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Root)
}

var _ apphttp.Module = (*Module)(nil)
