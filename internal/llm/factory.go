package llm

import (
	"fmt"
	"log/slog"

	"actflow/internal/config"
	"actflow/internal/metrics"
	"actflow/internal/port"
)

// ProviderFactory creates an LLMClient from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.LLMClient, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates an LLMClient from a provider config using the registered factory.
func NewClient(cfg *config.LLMProviderConfig) (port.LLMClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds every configured provider, wraps each with rate
// limiting, retries and a circuit breaker, and chains them in fallback order.
func NewFromConfig(cfg *config.LLMConfig, m *metrics.PipelineMetrics, logger *slog.Logger) (port.LLMClient, error) {
	provs := cfg.Providers()
	clients := make([]port.LLMClient, 0, len(provs))
	names := make([]string, 0, len(provs))
	for _, p := range provs {
		c, err := NewClient(p)
		if err != nil {
			return nil, err
		}
		clients = append(clients, NewResilientClient(c, ResilientConfig{
			Name:              p.Provider,
			RequestsPerMinute: p.RequestsPerMinute,
			MaxRetries:        p.MaxRetries,
		}, m, logger))
		names = append(names, p.Provider)
	}
	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFallbackClient(clients, names, logger), nil
}
