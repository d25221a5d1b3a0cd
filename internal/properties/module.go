package properties

import (
	apphttp "imobzap_backend/internal/http"
	"imobzap_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the property inventory bounded context implementing http.Module.
type Module struct {
	repo    *Repo
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := New(pool)
	return &Module{
		repo:    repo,
		handler: NewHandler(repo, val),
	}
}

func (m *Module) Name() string {
	return "properties"
}

// Repository returns the store for the matching pipeline.
func (m *Module) Repository() *Repo {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/properties"))
}

var _ apphttp.Module = (*Module)(nil)
