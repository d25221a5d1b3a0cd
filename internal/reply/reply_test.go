package reply

import (
	"context"
	"strings"
	"testing"
	"time"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/funnel"
	"imobzap_backend/internal/matching"
	"imobzap_backend/internal/properties"
	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
)

func testInput(stage funnel.Stage) Input {
	return Input{
		ConversationID: uuid.New(),
		Tenant:         tenant.Tenant{Name: "Imobiliária Horizonte", AssistantName: "Clara"},
		Lead:           conversation.Lead{Name: "João Silva"},
		Stage:          stage,
	}
}

func scriptedGenerator() *Generator {
	return NewGenerator(nil, logger.New("test"))
}

func TestGenerateWelcomeForNewContact(t *testing.T) {
	in := testInput(funnel.StageDataCollection)
	in.IsNewContact = true

	messages := scriptedGenerator().Generate(context.Background(), in)

	if len(messages) != 1 {
		t.Fatalf("expected single welcome message, got %d", len(messages))
	}
	msg := messages[0]
	if !strings.Contains(msg, "Clara") || !strings.Contains(msg, "Imobiliária Horizonte") {
		t.Fatalf("welcome missing assistant or tenant name: %q", msg)
	}
	if !strings.Contains(msg, "João") {
		t.Fatalf("welcome missing lead first name: %q", msg)
	}
	if strings.Contains(msg, "Silva") {
		t.Fatalf("welcome should use first name only: %q", msg)
	}
}

func TestGenerateDataRequestListsMissingFields(t *testing.T) {
	in := testInput(funnel.StageAwaitingInfo)
	in.Lead.BudgetMax = 500_000
	in.Lead.Email = "joao@example.com"

	messages := scriptedGenerator().Generate(context.Background(), in)

	if len(messages) != 1 {
		t.Fatalf("expected single message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "bairro") || !strings.Contains(messages[0], "quartos") {
		t.Fatalf("data request should name missing fields: %q", messages[0])
	}
	if strings.Contains(messages[0], "orçamento") {
		t.Fatalf("data request should not ask for known fields: %q", messages[0])
	}
}

func TestGeneratePresentationOneMessagePerProperty(t *testing.T) {
	in := testInput(funnel.StagePresentation)
	in.Matches = []matching.Match{
		{
			Property: properties.Property{
				Title:        "Apartamento Savassi",
				Neighborhood: "Savassi",
				City:         "Belo Horizonte",
				Price:        950_000,
				BedroomCount: 3,
				AreaTotal:    120,
				UpdatedAt:    time.Now(),
			},
			Score:   85,
			Reasons: []string{"dentro do seu orçamento", "fica no bairro Savassi"},
		},
		{
			Property: properties.Property{
				Title:        "Apartamento Lourdes",
				Neighborhood: "Lourdes",
				City:         "Belo Horizonte",
				Price:        880_000,
				BedroomCount: 2,
				UpdatedAt:    time.Now(),
			},
			Score: 60,
		},
	}

	messages := scriptedGenerator().Generate(context.Background(), in)

	// Intro, one card per property, closing question.
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "2 imóveis") {
		t.Fatalf("intro should state match count: %q", messages[0])
	}
	if !strings.Contains(messages[1], "Apartamento Savassi") || !strings.Contains(messages[1], "R$ 950.000") {
		t.Fatalf("property card malformed: %q", messages[1])
	}
	if !strings.Contains(messages[1], "dentro do seu orçamento") {
		t.Fatalf("property card should carry reasons: %q", messages[1])
	}
}

func TestGenerateNoMatch(t *testing.T) {
	in := testInput(funnel.StageNoMatch)

	messages := scriptedGenerator().Generate(context.Background(), in)

	if len(messages) != 1 {
		t.Fatalf("expected single message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "ajustar") {
		t.Fatalf("no-match message should suggest refinement: %q", messages[0])
	}
}

func TestGenerateSilentAfterHandoff(t *testing.T) {
	messages := scriptedGenerator().Generate(context.Background(), testInput(funnel.StageHumanHandoff))
	if len(messages) != 0 {
		t.Fatalf("expected no messages after handoff, got %d", len(messages))
	}
}

func TestFormatPrice(t *testing.T) {
	cases := map[int64]string{
		500:       "R$ 500",
		500_000:   "R$ 500.000",
		1_250_000: "R$ 1.250.000",
	}
	for value, want := range cases {
		if got := formatPrice(value); got != want {
			t.Errorf("formatPrice(%d) = %q, want %q", value, got, want)
		}
	}
}
