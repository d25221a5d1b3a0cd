package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imobzap_backend/internal/funnel"
	"imobzap_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the conversation, lead and message stores on
// PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `c.id, c.tenant_id, c.phone, c.display_name, c.stage, c.lead_id,
	c.last_message_text, c.last_activity_at, c.archived`

const leadColumns = `l.id, l.tenant_id, l.name, l.phone, l.email, l.tax_id,
	l.budget_min, l.budget_max, l.bedroom_count, l.neighborhood, l.status`

// ResolveOrCreate finds the active conversation for the pair or creates the
// conversation and lead inside one transaction. A partial unique index on
// (tenant_id, phone) where archived is false guarantees at most one active
// conversation per pair; a concurrent insert loses the race and re-reads.
func (r *Repository) ResolveOrCreate(ctx context.Context, tenantID uuid.UUID, phoneNumber, displayName string) (Conversation, Lead, bool, error) {
	conv, lead, err := r.getActive(ctx, tenantID, phoneNumber)
	if err == nil {
		return conv, lead, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return Conversation{}, Lead{}, false, err
	}

	conv, lead, err = r.createPair(ctx, tenantID, phoneNumber, displayName)
	if err == nil {
		return conv, lead, true, nil
	}

	// Unique violation means another request created the pair first.
	if isUniqueViolation(err) {
		conv, lead, err = r.getActive(ctx, tenantID, phoneNumber)
		if err != nil {
			return Conversation{}, Lead{}, false, err
		}
		return conv, lead, false, nil
	}

	return Conversation{}, Lead{}, false, err
}

func (r *Repository) getActive(ctx context.Context, tenantID uuid.UUID, phoneNumber string) (Conversation, Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id
		WHERE c.tenant_id = $1 AND c.phone = $2 AND NOT c.archived`,
		conversationColumns, leadColumns)

	row := r.pool.QueryRow(ctx, query, tenantID, phoneNumber)
	conv, lead, err := scanPair(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, Lead{}, apperr.NotFound("no active conversation")
	}
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("get active conversation: %w", err)
	}
	return conv, lead, nil
}

func (r *Repository) createPair(ctx context.Context, tenantID uuid.UUID, phoneNumber, displayName string) (Conversation, Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("begin create conversation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	lead := Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     displayName,
		Phone:    phoneNumber,
		Status:   "new",
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO leads (id, tenant_id, name, phone, status)
		VALUES ($1, $2, $3, $4, $5)`,
		lead.ID, lead.TenantID, lead.Name, lead.Phone, lead.Status)
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("insert lead: %w", err)
	}

	conv := Conversation{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Phone:          phoneNumber,
		DisplayName:    displayName,
		Stage:          funnel.StageWelcome,
		LeadID:         lead.ID,
		LastActivityAt: time.Now(),
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, tenant_id, phone, display_name, stage, lead_id, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		conv.ID, conv.TenantID, conv.Phone, conv.DisplayName, conv.Stage, conv.LeadID, conv.LastActivityAt)
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("insert conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("commit create conversation: %w", err)
	}
	return conv, lead, nil
}

func (r *Repository) GetByID(ctx context.Context, conversationID uuid.UUID) (Conversation, Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id
		WHERE c.id = $1`,
		conversationColumns, leadColumns)

	row := r.pool.QueryRow(ctx, query, conversationID)
	conv, lead, err := scanPair(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, Lead{}, apperr.NotFound("conversation not found")
	}
	if err != nil {
		return Conversation{}, Lead{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, lead, nil
}

func (r *Repository) UpdateAfterExchange(ctx context.Context, conversationID uuid.UUID, stage funnel.Stage, lastMessageText string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET stage = $2, last_message_text = $3, last_activity_at = $4, updated_at = now()
		WHERE id = $1`,
		conversationID, stage, lastMessageText, at)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, lead Lead) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET name = $2, email = $3, tax_id = $4, budget_min = $5, budget_max = $6,
		    bedroom_count = $7, neighborhood = $8, status = $9, updated_at = now()
		WHERE id = $1`,
		lead.ID, lead.Name, lead.Email, lead.TaxID, lead.BudgetMin, lead.BudgetMax,
		lead.BedroomCount, lead.Neighborhood, lead.Status)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, msg Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, tenant_id, direction, kind, content,
			transcript, provider_message_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.ConversationID, msg.TenantID, msg.Direction, msg.Kind, msg.Content,
		msg.Transcript, msg.ProviderMessageID, msg.Status, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatusByProviderID(ctx context.Context, providerMessageID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET status = $2
		WHERE provider_message_id = $1`,
		providerMessageID, status)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("no message for provider id")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPair(row rowScanner) (Conversation, Lead, error) {
	var conv Conversation
	var lead Lead
	err := row.Scan(
		&conv.ID, &conv.TenantID, &conv.Phone, &conv.DisplayName, &conv.Stage, &conv.LeadID,
		&conv.LastMessageText, &conv.LastActivityAt, &conv.Archived,
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Phone, &lead.Email, &lead.TaxID,
		&lead.BudgetMin, &lead.BudgetMax, &lead.BedroomCount, &lead.Neighborhood, &lead.Status,
	)
	return conv, lead, err
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
