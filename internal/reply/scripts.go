// Package reply builds the outbound message sequence for each funnel stage,
// mixing fixed Portuguese scripts with AI-generated text when a model is
// configured.
package reply

import (
	"fmt"
	"strings"

	"imobzap_backend/internal/matching"
)

// Scripted messages cover every stage so the funnel keeps working when the
// AI provider is down or unconfigured.

func welcomeScript(assistantName, tenantName, leadFirstName string) string {
	greeting := "Olá"
	if leadFirstName != "" {
		greeting = "Olá, " + leadFirstName
	}
	return fmt.Sprintf(
		"%s! Sou %s, assistente virtual da %s. 😊 Para encontrar o imóvel ideal para você, me conta: qual bairro você procura, quantos quartos precisa e qual o seu orçamento?",
		greeting, assistantName, tenantName)
}

func dataRequestScript(missing []string) string {
	if len(missing) == 0 {
		return "Perfeito! Já tenho o que preciso, vou buscar as melhores opções para você."
	}
	return fmt.Sprintf(
		"Ótimo! Para eu encontrar as melhores opções, ainda preciso saber: %s. Pode me informar?",
		joinPortuguese(missing))
}

func noMatchScript(firstName string) string {
	name := ""
	if firstName != "" {
		name = firstName + ", "
	}
	return fmt.Sprintf(
		"%sainda não encontrei um imóvel com esse perfil na nossa carteira. 😕 Quer ajustar o orçamento ou considerar bairros próximos? Assim que entrar algo novo com o seu perfil, eu te aviso!",
		name)
}

func interestScript(firstName string) string {
	name := ""
	if firstName != "" {
		name = ", " + firstName
	}
	return fmt.Sprintf(
		"Que ótimo%s! 🎉 Vou avisar um dos nossos corretores agora mesmo para cuidar do seu atendimento. Em breve ele entra em contato para combinar os próximos passos.",
		name)
}

func schedulingScript() string {
	return "Perfeito! Vou verificar a agenda e um corretor confirma com você o melhor dia e horário para a visita. 📅"
}

func fallbackScript() string {
	return "Entendi! Me conta um pouco mais sobre o que você procura, assim consigo te ajudar melhor."
}

// FollowUpScript is the inactivity nudge sent when a lead stops responding
// mid funnel.
func FollowUpScript(firstName string) string {
	name := ""
	if firstName != "" {
		name = ", " + firstName
	}
	return fmt.Sprintf(
		"Oi%s! 👋 Ainda está procurando imóvel? Se quiser, me passa o bairro, o número de quartos e o orçamento que eu separo as melhores opções para você.",
		name)
}

func presentationScript(m matching.Match) string {
	p := m.Property
	var b strings.Builder

	fmt.Fprintf(&b, "🏠 *%s*\n", p.Title)
	if p.Neighborhood != "" {
		fmt.Fprintf(&b, "📍 %s, %s\n", p.Neighborhood, p.City)
	}
	fmt.Fprintf(&b, "🛏 %d quartos", p.BedroomCount)
	if p.BathroomCount > 0 {
		fmt.Fprintf(&b, " · 🚿 %d banheiros", p.BathroomCount)
	}
	if p.AreaTotal > 0 {
		fmt.Fprintf(&b, " · 📐 %.0f m²", p.AreaTotal)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "💰 %s\n", formatPrice(p.Price))
	if len(m.Reasons) > 0 {
		fmt.Fprintf(&b, "✨ %s", capitalizeFirst(joinPortuguese(m.Reasons)))
	}

	return strings.TrimSpace(b.String())
}

// formatPrice renders the value in Brazilian currency format with dots as
// thousands separators.
func formatPrice(value int64) string {
	digits := fmt.Sprintf("%d", value)
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return "R$ " + strings.Join(parts, ".")
}

// joinPortuguese joins items with commas and a final "e".
func joinPortuguese(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
