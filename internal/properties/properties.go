// Package properties holds a tenant's property inventory: the catalog the
// matching engine ranks, plus the management endpoint that keeps it current.
package properties

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Property is one catalog entry.
type Property struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Title         string
	Description   string
	Price         int64
	BedroomCount  int
	BathroomCount int
	AreaTotal     float64
	City          string
	Neighborhood  string
	UpdatedAt     time.Time
}

// Store lists the candidate inventory for matching.
type Store interface {
	// ListByTenant returns the tenant's inventory, most recently updated
	// first.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Property, error)
}
