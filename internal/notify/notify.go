// Package notify alerts the tenant's human team when a conversation leaves
// the automated funnel.
package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/tenant"
	"imobzap_backend/platform/config"
	"imobzap_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// HandoffNotifier emails the tenant when a lead asks for a human. Sending is
// best effort; a mail failure never blocks the conversation.
type HandoffNotifier struct {
	cfg config.SMTPConfig
	log *logger.Logger
}

func NewHandoffNotifier(cfg config.SMTPConfig, log *logger.Logger) *HandoffNotifier {
	return &HandoffNotifier{cfg: cfg, log: log}
}

// NotifyHandoff sends the alert for one conversation. Returns without error
// when SMTP is not configured or the tenant has no notification address.
func (n *HandoffNotifier) NotifyHandoff(ctx context.Context, t tenant.Tenant, lead conversation.Lead, lastMessage string) error {
	if !n.cfg.IsSMTPEnabled() || t.NotifyEmail == "" {
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(n.cfg.GetSMTPFromName(), n.cfg.GetSMTPFromAddress()); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(t.NotifyEmail); err != nil {
		return fmt.Errorf("invalid notification address: %w", err)
	}

	name := lead.Name
	if name == "" {
		name = lead.Phone
	}
	msg.Subject(fmt.Sprintf("Atendimento humano solicitado: %s", name))
	msg.SetBodyString(gomail.TypeTextPlain, buildBody(lead, lastMessage))

	client, err := gomail.NewClient(n.cfg.GetSMTPHost(),
		gomail.WithPort(n.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.cfg.GetSMTPUsername()),
		gomail.WithPassword(n.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(10*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send handoff alert: %w", err)
	}

	n.log.Info("handoff alert sent", "tenantId", t.ID, "leadPhone", lead.Phone)
	return nil
}

func buildBody(lead conversation.Lead, lastMessage string) string {
	body := fmt.Sprintf("Um lead pediu atendimento humano.\n\nNome: %s\nTelefone: %s\n", lead.Name, lead.Phone)
	if lead.Email != "" {
		body += fmt.Sprintf("E-mail: %s\n", lead.Email)
	}
	if lead.Neighborhood != "" {
		body += fmt.Sprintf("Bairro de interesse: %s\n", lead.Neighborhood)
	}
	if lead.BudgetMax > 0 {
		body += fmt.Sprintf("Orçamento máximo: R$ %d\n", lead.BudgetMax)
	}
	if lastMessage != "" {
		body += fmt.Sprintf("\nÚltima mensagem:\n%s\n", lastMessage)
	}
	return body
}
