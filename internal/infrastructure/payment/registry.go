package payment

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports that no provider, or a specific named provider,
// is enabled with complete credentials.
type ConfigurationError struct {
	Provider string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "No payment provider is configured and enabled"
	}
	return fmt.Sprintf("%s is not configured or not enabled", displayName(e.Provider))
}

var (
	ErrNoProviderConfigured = &ConfigurationError{}
	ErrUnknownProvider      = errors.New("unknown payment provider")
)

type Registry struct {
	paypalOpts []PayPalOption
	observer   Observer
}

type RegistryOption func(*Registry)

func WithPayPalOptions(opts ...PayPalOption) RegistryOption {
	return func(r *Registry) { r.paypalOpts = append(r.paypalOpts, opts...) }
}

// WithObserver reports every provider call to o.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActiveProvider picks the single provider that serves production traffic:
// the selected provider when it is PayPal or Stripe and eligible, otherwise
// Wise when eligible.
func (r *Registry) ActiveProvider(cfg *Config) (Provider, error) {
	switch {
	case cfg.SelectedProvider == ProviderPayPal && cfg.PayPal.Eligible():
		return r.build(cfg, ProviderPayPal), nil
	case cfg.SelectedProvider == ProviderStripe && cfg.Stripe.Eligible():
		return r.build(cfg, ProviderStripe), nil
	case cfg.Wise.Eligible():
		return r.build(cfg, ProviderWise), nil
	}
	return nil, ErrNoProviderConfigured
}

// ProviderByName ignores the primary selection but still requires the named
// provider to be eligible. Used for diagnostics and reconciliation.
func (r *Registry) ProviderByName(cfg *Config, name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	var eligible bool
	switch name {
	case ProviderWise:
		eligible = cfg.Wise.Eligible()
	case ProviderPayPal:
		eligible = cfg.PayPal.Eligible()
	case ProviderStripe:
		eligible = cfg.Stripe.Eligible()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if !eligible {
		return nil, &ConfigurationError{Provider: name}
	}
	return r.build(cfg, name), nil
}

type ProviderState struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Eligible bool   `json:"eligible"`
}

// States reports enabled/eligible flags per provider family without credentials.
func (r *Registry) States(cfg *Config) []ProviderState {
	return []ProviderState{
		{Provider: ProviderWise, Name: displayName(ProviderWise), Enabled: cfg.Wise.Enabled, Eligible: cfg.Wise.Eligible()},
		{Provider: ProviderPayPal, Name: displayName(ProviderPayPal), Enabled: cfg.PayPal.Enabled, Eligible: cfg.PayPal.Eligible()},
		{Provider: ProviderStripe, Name: displayName(ProviderStripe), Enabled: cfg.Stripe.Enabled, Eligible: cfg.Stripe.Eligible()},
	}
}

func (r *Registry) build(cfg *Config, name string) Provider {
	var p Provider
	switch name {
	case ProviderPayPal:
		p = NewPayPalProvider(cfg.PayPal, r.paypalOpts...)
	case ProviderStripe:
		p = NewStripeProvider(cfg.Stripe)
	default:
		p = NewWiseProvider(cfg.Wise)
	}
	if r.observer != nil {
		p = &instrumented{Provider: p, observer: r.observer}
	}
	return p
}

func displayName(provider string) string {
	switch provider {
	case ProviderWise:
		return "Wise"
	case ProviderPayPal:
		return "PayPal"
	case ProviderStripe:
		return "Stripe"
	}
	return provider
}
