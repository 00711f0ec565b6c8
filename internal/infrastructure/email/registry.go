package email

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoProviderConfigured = errors.New("no email provider is configured and enabled")
	ErrProviderNotEnabled   = errors.New("email provider is not configured or not enabled")
	ErrUnknownProvider      = errors.New("unknown email provider")
)

type Registry struct {
	resendOpts []ResendOption
}

func NewRegistry(resendOpts ...ResendOption) *Registry {
	return &Registry{resendOpts: resendOpts}
}

// ActiveProvider returns the selected provider when eligible, otherwise the
// first eligible of SMTP and Resend.
func (r *Registry) ActiveProvider(cfg *Config) (Provider, error) {
	if p, err := r.ProviderByName(cfg, cfg.SelectedProvider); err == nil {
		return p, nil
	}
	for _, name := range []string{ProviderSMTP, ProviderResend} {
		if p, err := r.ProviderByName(cfg, name); err == nil {
			return p, nil
		}
	}
	return nil, ErrNoProviderConfigured
}

func (r *Registry) ProviderByName(cfg *Config, name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderSMTP:
		if !cfg.SMTP.Eligible() {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotEnabled, ProviderSMTP)
		}
		return NewSMTPProvider(cfg.SMTP), nil
	case ProviderResend:
		if !cfg.Resend.Eligible() {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotEnabled, ProviderResend)
		}
		return NewResendProvider(cfg.Resend, r.resendOpts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
