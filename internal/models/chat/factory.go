package chat

import (
	"fmt"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/caaa-research/engine/internal/models/provider"
)

// Settings is the subset of config.ReasoningConfig the factory needs;
// kept as its own small type so this package doesn't import
// internal/config and invert the dependency direction.
type Settings struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// New builds the Chat backend named by settings.Provider, falling back
// to auto-detection from BaseURL, then to the generic OpenAI-compatible
// provider.
func New(settings Settings) (Chat, error) {
	name := provider.ProviderName(settings.Provider)
	if name == "" {
		name = provider.DetectProvider(settings.BaseURL)
	}
	p := provider.GetOrDefault(name)
	if p == nil {
		return nil, fmt.Errorf("no reasoning provider registered (wanted %q)", name)
	}
	if err := p.ValidateConfig(&provider.Config{BaseURL: settings.BaseURL, APIKey: settings.APIKey, ModelName: settings.Model}); err != nil {
		return nil, fmt.Errorf("validating %s provider config: %w", p.Info().Name, err)
	}

	switch p.Info().Name {
	case provider.ProviderOllama:
		base, err := url.Parse(settings.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing ollama base url: %w", err)
		}
		client := ollamaapi.NewClient(base, nil)
		return NewOllamaChat(client, settings.Model), nil
	default:
		return NewOpenAIChat(settings.BaseURL, settings.APIKey, settings.Model), nil
	}
}
