package email

import (
	"context"
	"fmt"
	"strings"

	"booking-payments/internal/infrastructure/settings"
)

const (
	KeyPrimaryProvider = "email_primary_provider"
	KeySMTPEnabled     = "email_smtp_enabled"
	KeySMTPHost        = "email_smtp_host"
	KeySMTPPort        = "email_smtp_port"
	KeySMTPUsername    = "email_smtp_username"
	KeySMTPPassword    = "email_smtp_password"
	KeySMTPFrom        = "email_smtp_from"
	KeyResendEnabled   = "email_resend_enabled"
	KeyResendAPIKey    = "email_resend_api_key"
	KeyResendFrom      = "email_resend_from"
)

var configKeys = []string{
	KeyPrimaryProvider,
	KeySMTPEnabled,
	KeySMTPHost,
	KeySMTPPort,
	KeySMTPUsername,
	KeySMTPPassword,
	KeySMTPFrom,
	KeyResendEnabled,
	KeyResendAPIKey,
	KeyResendFrom,
}

const DefaultSMTPPort = 587

type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Eligible() bool {
	return c.Enabled && c.Host != "" && c.From != ""
}

type ResendConfig struct {
	Enabled bool
	APIKey  string
	From    string
}

func (c ResendConfig) Eligible() bool {
	return c.Enabled && c.APIKey != "" && c.From != ""
}

type Config struct {
	SelectedProvider string
	SMTP             SMTPConfig
	Resend           ResendConfig
}

type Loader struct {
	settings settings.Reader
}

func NewLoader(reader settings.Reader) *Loader {
	return &Loader{settings: reader}
}

func (l *Loader) Load(ctx context.Context) (*Config, error) {
	raw, err := l.settings.GetMany(ctx, configKeys)
	if err != nil {
		return nil, fmt.Errorf("load email settings: %w", err)
	}
	values := settings.Values(raw)

	return &Config{
		SelectedProvider: strings.ToLower(values.String(KeyPrimaryProvider)),
		SMTP: SMTPConfig{
			Enabled:  values.Bool(KeySMTPEnabled),
			Host:     values.String(KeySMTPHost),
			Port:     values.Int(KeySMTPPort, DefaultSMTPPort),
			Username: values.String(KeySMTPUsername),
			Password: values.String(KeySMTPPassword),
			From:     values.String(KeySMTPFrom),
		},
		Resend: ResendConfig{
			Enabled: values.Bool(KeyResendEnabled),
			APIKey:  values.String(KeyResendAPIKey),
			From:    values.String(KeyResendFrom),
		},
	}, nil
}
