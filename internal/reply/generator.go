package reply

import (
	"context"
	"fmt"
	"strings"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/funnel"
	"imobzap_backend/internal/matching"
	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/logger"

	"github.com/google/uuid"
)

// Input carries everything the generator needs for one reply turn.
type Input struct {
	ConversationID uuid.UUID
	Tenant         tenant.Tenant
	Lead           conversation.Lead
	Stage          funnel.Stage
	IsNewContact   bool
	InboundText    string
	Matches        []matching.Match
}

// Generator produces the ordered message sequence for a turn. When an agent
// is configured, free-form stages go through it; every stage has a scripted
// fallback so generation never fails.
type Generator struct {
	agent *Agent
	log   *logger.Logger
}

func NewGenerator(agent *Agent, log *logger.Logger) *Generator {
	return &Generator{agent: agent, log: log}
}

// Generate returns the messages to send, in order. An empty slice means the
// assistant stays silent, which is the case after a human handoff.
func (g *Generator) Generate(ctx context.Context, in Input) []string {
	switch in.Stage {
	case funnel.StageHumanHandoff:
		return nil

	case funnel.StageWelcome, funnel.StageDataCollection, funnel.StageAwaitingInfo:
		if in.IsNewContact {
			return []string{welcomeScript(in.Tenant.AssistantName, in.Tenant.Name, in.Lead.FirstName())}
		}
		return []string{g.conversational(ctx, in, dataRequestScript(in.Lead.MissingFields()))}

	case funnel.StageMatching, funnel.StagePresentation:
		if len(in.Matches) == 0 {
			return []string{noMatchScript(in.Lead.FirstName())}
		}
		messages := make([]string, 0, len(in.Matches)+1)
		messages = append(messages, fmt.Sprintf("Encontrei %s para você! 🎯", countLabel(len(in.Matches))))
		for _, m := range in.Matches {
			messages = append(messages, presentationScript(m))
		}
		messages = append(messages, "Alguma dessas opções te interessou? Posso agendar uma visita!")
		return messages

	case funnel.StageNoMatch:
		return []string{noMatchScript(in.Lead.FirstName())}

	case funnel.StageInterest:
		return []string{interestScript(in.Lead.FirstName())}

	case funnel.StageScheduling:
		return []string{schedulingScript()}

	case funnel.StageRefinement:
		return []string{g.conversational(ctx, in,
			"Sem problemas! O que você gostaria de ajustar: o bairro, o número de quartos ou o orçamento?")}

	case funnel.StageNegotiation:
		return []string{"Vou encaminhar sua proposta para o corretor responsável, ele retorna com uma resposta em breve. 🤝"}

	default:
		return []string{g.conversational(ctx, in, fallbackScript())}
	}
}

// conversational asks the agent for a reply and falls back to the script on
// any failure.
func (g *Generator) conversational(ctx context.Context, in Input, fallback string) string {
	if g.agent == nil {
		return fallback
	}

	text, err := g.agent.Respond(ctx, in.ConversationID, buildPrompt(in))
	if err != nil {
		g.log.ProviderFailure("ai", "generate", err)
		return fallback
	}
	return text
}

func buildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Imobiliária: %s\n", in.Tenant.Name)
	fmt.Fprintf(&b, "Assistente: %s\n", in.Tenant.AssistantName)
	if in.Lead.Name != "" {
		fmt.Fprintf(&b, "Lead: %s\n", in.Lead.Name)
	}
	fmt.Fprintf(&b, "Etapa do funil: %s\n", in.Stage)

	var known []string
	switch {
	case in.Lead.BudgetMin > 0 && in.Lead.BudgetMax > 0:
		known = append(known, fmt.Sprintf("orçamento de %s a %s", formatPrice(in.Lead.BudgetMin), formatPrice(in.Lead.BudgetMax)))
	case in.Lead.BudgetMax > 0:
		known = append(known, "orçamento até "+formatPrice(in.Lead.BudgetMax))
	case in.Lead.BudgetMin > 0:
		known = append(known, "orçamento a partir de "+formatPrice(in.Lead.BudgetMin))
	}
	if in.Lead.Neighborhood != "" {
		known = append(known, "bairro "+in.Lead.Neighborhood)
	}
	if in.Lead.BedroomCount > 0 {
		known = append(known, fmt.Sprintf("%d quartos", in.Lead.BedroomCount))
	}
	if len(known) > 0 {
		fmt.Fprintf(&b, "Já sabemos: %s\n", joinPortuguese(known))
	}
	if missing := in.Lead.MissingFields(); len(missing) > 0 {
		fmt.Fprintf(&b, "Ainda falta: %s\n", joinPortuguese(missing))
	}

	fmt.Fprintf(&b, "\nMensagem do lead: %s\n", in.InboundText)
	b.WriteString("\nResponda ao lead.")

	return b.String()
}

func countLabel(n int) string {
	if n == 1 {
		return "1 imóvel"
	}
	return fmt.Sprintf("%d imóveis", n)
}
