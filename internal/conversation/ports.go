package conversation

import (
	"context"
	"time"

	"imobzap_backend/internal/funnel"

	"github.com/google/uuid"
)

// ConversationStore persists conversation records.
type ConversationStore interface {
	// ResolveOrCreate returns the active conversation for the pair, creating
	// the conversation and its lead when none exists. The boolean reports
	// whether a new contact was created this call.
	ResolveOrCreate(ctx context.Context, tenantID uuid.UUID, phone, displayName string) (Conversation, Lead, bool, error)
	// UpdateAfterExchange persists the stage and activity fields after a turn.
	UpdateAfterExchange(ctx context.Context, conversationID uuid.UUID, stage funnel.Stage, lastMessageText string, at time.Time) error
	// GetByID loads one conversation together with its lead.
	GetByID(ctx context.Context, conversationID uuid.UUID) (Conversation, Lead, error)
}

// LeadStore persists lead profile updates.
type LeadStore interface {
	Update(ctx context.Context, lead Lead) error
}

// MessageStore persists the message log.
type MessageStore interface {
	Create(ctx context.Context, msg Message) error
	UpdateStatusByProviderID(ctx context.Context, providerMessageID, status string) error
}
