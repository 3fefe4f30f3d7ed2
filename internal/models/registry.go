package models

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/houndlabs/newshound/internal/config"
	"github.com/houndlabs/newshound/internal/engine"
)

// Registry holds the configured model providers, keyed by name. Model
// references use "provider/model-id" form.
type Registry struct {
	providers map[string]engine.ModelProvider
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers: make(map[string]engine.ModelProvider),
		logger:    logger.With("component", "models"),
	}
}

// Register adds a provider under its name
func (r *Registry) Register(p engine.ModelProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.logger.Info("model provider registered", "name", p.Name())
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (engine.ModelProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// ForModel resolves a "provider/model-id" reference to a provider and the
// bare model ID to put on the wire.
func (r *Registry) ForModel(ref string) (engine.ModelProvider, string, error) {
	providerName, modelID, ok := config.SplitModel(ref)
	if !ok {
		return nil, "", fmt.Errorf("invalid model reference %q (want provider/model-id)", ref)
	}
	p, found := r.Get(providerName)
	if !found {
		return nil, "", fmt.Errorf("no provider registered for model %q", ref)
	}
	return p, modelID, nil
}

// FromConfig builds a registry from the config's provider map. Provider
// type defaults to the OpenAI-compatible wire protocol.
func FromConfig(cfg *config.Config, logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)
	for name, provCfg := range cfg.Providers {
		switch provCfg.Type {
		case "anthropic":
			p := NewAnthropicProvider(provCfg)
			p.SetName(name)
			reg.Register(p)
		case "ollama":
			reg.Register(NewOllamaProvider(provCfg))
		default:
			reg.Register(NewOpenAIProvider(name, provCfg))
		}
	}
	return reg
}
