package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	smtpOn   = SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: 587, From: "bookings@example.com"}
	resendOn = ResendConfig{Enabled: true, APIKey: "re_123", From: "bookings@example.com"}
)

func TestRegistry_ActiveProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{name: "selected resend", cfg: Config{SelectedProvider: ProviderResend, SMTP: smtpOn, Resend: resendOn}, want: "Resend"},
		{name: "selected smtp", cfg: Config{SelectedProvider: ProviderSMTP, SMTP: smtpOn, Resend: resendOn}, want: "SMTP"},
		{name: "selected resend ineligible falls back", cfg: Config{SelectedProvider: ProviderResend, SMTP: smtpOn}, want: "SMTP"},
		{name: "no selection uses first eligible", cfg: Config{Resend: resendOn}, want: "Resend"},
		{name: "smtp without from is ineligible", cfg: Config{SMTP: SMTPConfig{Enabled: true, Host: "h"}}, wantErr: true},
		{name: "nothing enabled", cfg: Config{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRegistry().ActiveProvider(&tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoProviderConfigured)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestRegistry_ProviderByName(t *testing.T) {
	cfg := &Config{SMTP: smtpOn}

	_, err := NewRegistry().ProviderByName(cfg, ProviderResend)
	assert.ErrorIs(t, err, ErrProviderNotEnabled)
	assert.EqualError(t, err, "email provider is not configured or not enabled: resend")

	p, err := NewRegistry().ProviderByName(cfg, " SMTP ")
	require.NoError(t, err)
	assert.Equal(t, "SMTP", p.Name())

	_, err = NewRegistry().ProviderByName(cfg, "pigeon")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
