package payment

import (
	"context"
	"fmt"
	"strings"

	"booking-payments/internal/infrastructure/settings"
)

// Settings keys read by the loader.
const (
	KeyPrimaryProvider    = "payment_primary_provider"
	KeyWiseEnabled        = "payment_wise_enabled"
	KeyWiseAccountID      = "payment_wise_account_id"
	KeyWiseCurrency       = "payment_wise_currency"
	KeyPayPalEnabled      = "payment_paypal_enabled"
	KeyPayPalClientID     = "payment_paypal_client_id"
	KeyPayPalClientSecret = "payment_paypal_client_secret"
	KeyPayPalMode         = "payment_paypal_mode"
	KeyStripeEnabled      = "payment_stripe_enabled"
	KeyStripeSecretKey    = "payment_stripe_secret_key"
)

var configKeys = []string{
	KeyPrimaryProvider,
	KeyWiseEnabled,
	KeyWiseAccountID,
	KeyWiseCurrency,
	KeyPayPalEnabled,
	KeyPayPalClientID,
	KeyPayPalClientSecret,
	KeyPayPalMode,
	KeyStripeEnabled,
	KeyStripeSecretKey,
}

const (
	ModeSandbox = "sandbox"
	ModeLive    = "live"

	DefaultCurrency = "EUR"
)

type WiseConfig struct {
	Enabled   bool
	AccountID string
	Currency  string
}

func (c WiseConfig) Eligible() bool {
	return c.Enabled && c.AccountID != ""
}

type PayPalConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	Mode         string
}

func (c PayPalConfig) Eligible() bool {
	return c.Enabled && c.ClientID != "" && c.ClientSecret != ""
}

type StripeConfig struct {
	Enabled   bool
	SecretKey string
}

func (c StripeConfig) Eligible() bool {
	return c.Enabled && c.SecretKey != ""
}

// Config covers every provider family, whichever one is active.
type Config struct {
	SelectedProvider string
	Wise             WiseConfig
	PayPal           PayPalConfig
	Stripe           StripeConfig
}

type Loader struct {
	settings settings.Reader
}

func NewLoader(reader settings.Reader) *Loader {
	return &Loader{settings: reader}
}

// Load reads all payment keys in one query. Absent keys fall back to inert
// defaults; a failed read is returned as an error.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	raw, err := l.settings.GetMany(ctx, configKeys)
	if err != nil {
		return nil, fmt.Errorf("load payment settings: %w", err)
	}
	values := settings.Values(raw)

	mode := strings.ToLower(values.String(KeyPayPalMode))
	if mode != ModeLive {
		mode = ModeSandbox
	}
	currency := strings.ToUpper(values.String(KeyWiseCurrency))
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Config{
		SelectedProvider: strings.ToLower(values.String(KeyPrimaryProvider)),
		Wise: WiseConfig{
			Enabled:   values.Bool(KeyWiseEnabled),
			AccountID: values.String(KeyWiseAccountID),
			Currency:  currency,
		},
		PayPal: PayPalConfig{
			Enabled:      values.Bool(KeyPayPalEnabled),
			ClientID:     values.String(KeyPayPalClientID),
			ClientSecret: values.String(KeyPayPalClientSecret),
			Mode:         mode,
		},
		Stripe: StripeConfig{
			Enabled:   values.Bool(KeyStripeEnabled),
			SecretKey: values.String(KeyStripeSecretKey),
		},
	}, nil
}
