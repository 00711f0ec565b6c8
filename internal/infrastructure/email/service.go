package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type Service struct {
	loader   *Loader
	registry *Registry
}

func NewService(loader *Loader, registry *Registry) *Service {
	return &Service{loader: loader, registry: registry}
}

// SendTemplate renders name and delivers it through the active provider.
func (s *Service) SendTemplate(ctx context.Context, to string, name Template, data map[string]any) error {
	subject, html, err := Render(name, data)
	if err != nil {
		return err
	}
	cfg, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	provider, err := s.registry.ActiveProvider(cfg)
	if err != nil {
		return err
	}

	res := provider.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: html})
	if !res.Success {
		return fmt.Errorf("%s: %s", provider.Name(), res.Error)
	}
	slog.InfoContext(ctx, "email sent", "template", name, "provider", provider.Name(), "message_id", res.MessageID)
	return nil
}

// SendTest sends the test template through providerName, or through the
// active provider when providerName is empty.
func (s *Service) SendTest(ctx context.Context, to, providerName string) (SendResult, error) {
	if to == "" {
		return SendResult{}, errors.New("recipient is required")
	}
	cfg, err := s.loader.Load(ctx)
	if err != nil {
		return SendResult{}, err
	}

	var provider Provider
	if providerName != "" {
		provider, err = s.registry.ProviderByName(cfg, providerName)
	} else {
		provider, err = s.registry.ActiveProvider(cfg)
	}
	if err != nil {
		return SendResult{}, err
	}

	subject, html, err := Render(TemplateTest, map[string]any{"Provider": provider.Name()})
	if err != nil {
		return SendResult{}, err
	}
	return provider.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: html}), nil
}
