package email

import "context"

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
)

// Provider delivers a rendered message. Send reports delivery failures in the
// result instead of returning an error.
type Provider interface {
	Send(ctx context.Context, msg Message) SendResult
	TestConnection(ctx context.Context) error
	Name() string
}

type Message struct {
	To      []string
	Subject string
	HTML    string
}

type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
