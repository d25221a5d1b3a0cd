package reply

import (
	"context"
	"fmt"
	"strings"

	"imobzap_backend/platform/ai/openaicompat"
	"imobzap_backend/platform/config"
	"imobzap_backend/platform/logger"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/google/uuid"
)

const assistantInstruction = `Você é um assistente virtual de uma imobiliária brasileira atendendo leads pelo WhatsApp.

REGRAS:
1. Responda sempre em português brasileiro, em tom caloroso e profissional.
2. Mensagens curtas, adequadas ao WhatsApp. No máximo dois parágrafos.
3. Nunca invente imóveis, preços ou condições. Use apenas os dados fornecidos.
4. Se faltarem informações do lead, peça exatamente os campos listados como pendentes.
5. Nunca prometa visita ou reserva; diga que um corretor confirmará.`

// Agent generates conversational replies through an ADK agent backed by an
// OpenAI-compatible chat model.
type Agent struct {
	runner         *runner.Runner
	sessionService session.Service
	appName        string
	log            *logger.Logger
}

// NewAgent returns nil when no AI provider is configured; the generator then
// falls back to scripted replies only.
func NewAgent(cfg config.AIConfig, log *logger.Logger) *Agent {
	if !cfg.IsAIEnabled() {
		return nil
	}

	model := openaicompat.NewModel(openaicompat.Config{
		APIKey:  cfg.GetAIAPIKey(),
		BaseURL: cfg.GetAIBaseURL(),
		Model:   cfg.GetAIModel(),
		Timeout: cfg.GetAITimeout(),
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "FunnelAssistant",
		Model:       model,
		Description: "Conversational assistant for real estate lead qualification.",
		Instruction: assistantInstruction,
	})
	if err != nil {
		log.Error("failed to create reply agent", "error", err)
		return nil
	}

	appName := "funnel_assistant"
	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		log.Error("failed to create reply runner", "error", err)
		return nil
	}

	return &Agent{
		runner:         r,
		sessionService: sessionService,
		appName:        appName,
		log:            log,
	}
}

// Respond runs one agent turn over the prompt and returns the generated
// text. The conversation ID keys the ADK session so consecutive turns share
// context.
func (a *Agent) Respond(ctx context.Context, conversationID uuid.UUID, prompt string) (string, error) {
	if a == nil || a.runner == nil {
		return "", fmt.Errorf("reply agent is not configured")
	}

	userID := "conversation-" + conversationID.String()
	sessionID := conversationID.String()

	_, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   a.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return "", fmt.Errorf("create agent session: %w", err)
	}

	userMessage := &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}

	var output strings.Builder
	for event, err := range a.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return "", err
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output.WriteString(part.Text)
			}
		}
	}

	text := strings.TrimSpace(output.String())
	if text == "" {
		return "", fmt.Errorf("agent returned empty reply")
	}
	return text, nil
}
