package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPProvider struct {
	cfg SMTPConfig
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Name() string { return "SMTP" }

func (p *SMTPProvider) Send(ctx context.Context, msg Message) SendResult {
	m := mail.NewMsg()
	if err := m.From(p.cfg.From); err != nil {
		return SendResult{Error: fmt.Sprintf("invalid sender address: %v", err)}
	}
	if err := m.To(msg.To...); err != nil {
		return SendResult{Error: fmt.Sprintf("invalid recipient address: %v", err)}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	client, err := p.client()
	if err != nil {
		return SendResult{Error: err.Error()}
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return SendResult{Error: fmt.Sprintf("smtp delivery failed: %v", err)}
	}
	return SendResult{Success: true}
}

// TestConnection dials and authenticates without sending anything.
func (p *SMTPProvider) TestConnection(ctx context.Context) error {
	client, err := p.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", p.cfg.Host, p.cfg.Port, err)
	}
	return client.Close()
}

func (p *SMTPProvider) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(p.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if p.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.cfg.Username),
			mail.WithPassword(p.cfg.Password),
		)
	}
	client, err := mail.NewClient(p.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}
