package properties

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements Store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new properties repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Store = (*Repo)(nil)

// ListByTenant returns the tenant's inventory, most recently updated first.
func (r *Repo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Property, error) {
	query := `
		SELECT id, tenant_id, title, description, price, bedroom_count,
		       bathroom_count, area_total, city, neighborhood, updated_at
		FROM properties
		WHERE tenant_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var result []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Title, &p.Description, &p.Price, &p.BedroomCount,
			&p.BathroomCount, &p.AreaTotal, &p.City, &p.Neighborhood, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}

	return result, nil
}

// Upsert inserts the property or refreshes an existing row. The updated_at
// bump feeds the matching engine's recency tiebreak.
func (r *Repo) Upsert(ctx context.Context, p Property) (Property, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO properties (id, tenant_id, title, description, price, bedroom_count,
			bathroom_count, area_total, city, neighborhood)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			bedroom_count = EXCLUDED.bedroom_count,
			bathroom_count = EXCLUDED.bathroom_count,
			area_total = EXCLUDED.area_total,
			city = EXCLUDED.city,
			neighborhood = EXCLUDED.neighborhood,
			updated_at = now()
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.TenantID, p.Title, p.Description, p.Price, p.BedroomCount,
		p.BathroomCount, p.AreaTotal, p.City, p.Neighborhood,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return Property{}, fmt.Errorf("upsert property: %w", err)
	}

	return p, nil
}
