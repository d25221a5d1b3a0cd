// Package conversation holds the funnel engine's stateful core: the
// conversation, lead and message records, their store ports, the pgx
// repositories behind them, and the per-contact redis lock.
package conversation

import (
	"time"

	"imobzap_backend/internal/extract"
	"imobzap_backend/internal/funnel"

	"github.com/google/uuid"
)

// Direction of a message relative to the tenant.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Kind of message content.
type Kind string

const (
	KindText     Kind = "text"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Message statuses, advanced by delivery receipts.
const (
	StatusReceived  = "received"
	StatusQueued    = "queued"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Conversation is the active thread for one (tenant, phone) pair. At most one
// non-archived conversation exists per pair.
type Conversation struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Phone           string
	DisplayName     string
	Stage           funnel.Stage
	LeadID          uuid.UUID
	LastMessageText string
	LastActivityAt  time.Time
	Archived        bool
}

// Lead is the structured prospect profile built from a conversation.
// Preference fields are set-once: an extractor result is only applied to a
// field that is still empty.
type Lead struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	Phone        string
	Email        string
	TaxID        string
	BudgetMin    int64
	BudgetMax    int64
	BedroomCount int
	Neighborhood string
	Status       string
}

// HasBudget reports whether any budget bound is known.
func (l Lead) HasBudget() bool {
	return l.BudgetMin > 0 || l.BudgetMax > 0
}

// Facts summarizes the lead for the stage classifier.
func (l Lead) Facts() funnel.Facts {
	return funnel.Facts{
		HasBudget:       l.HasBudget(),
		HasNeighborhood: l.Neighborhood != "",
		HasBedrooms:     l.BedroomCount > 0,
	}
}

// FirstName returns the lead's first name for script templating.
func (l Lead) FirstName() string {
	for i := 0; i < len(l.Name); i++ {
		if l.Name[i] == ' ' {
			return l.Name[:i]
		}
	}
	return l.Name
}

// MissingFields names the preference fields still unknown, for the AI prompt.
func (l Lead) MissingFields() []string {
	var missing []string
	if !l.HasBudget() {
		missing = append(missing, "orçamento")
	}
	if l.Neighborhood == "" {
		missing = append(missing, "bairro de preferência")
	}
	if l.BedroomCount == 0 {
		missing = append(missing, "número de quartos")
	}
	if l.Email == "" {
		missing = append(missing, "e-mail")
	}
	return missing
}

// ApplyExtraction runs every extractor against the text and fills lead fields
// that are still empty. Returns true when anything changed. Fields that
// already hold a value are never overwritten.
func (l *Lead) ApplyExtraction(text string) bool {
	changed := false

	if l.TaxID == "" {
		if v, ok := extract.TaxID(text); ok {
			l.TaxID = v
			changed = true
		}
	}
	if l.Email == "" {
		if v, ok := extract.Email(text); ok {
			l.Email = v
			changed = true
		}
	}
	if !l.HasBudget() {
		if v, ok := extract.Budget(text); ok {
			l.BudgetMin = v.Min
			l.BudgetMax = v.Max
			changed = true
		}
	}
	if l.BedroomCount == 0 {
		if v, ok := extract.Bedrooms(text); ok {
			l.BedroomCount = v
			changed = true
		}
	}
	if l.Neighborhood == "" {
		if v, ok := extract.Neighborhood(text); ok {
			l.Neighborhood = v
			changed = true
		}
	}

	return changed
}

// Message is one exchanged message, append-only. Only Status mutates after
// creation, via delivery receipts.
type Message struct {
	ID                uuid.UUID
	ConversationID    uuid.UUID
	TenantID          uuid.UUID
	Direction         Direction
	Kind              Kind
	Content           string
	Transcript        string
	ProviderMessageID string
	Status            string
	CreatedAt         time.Time
}
