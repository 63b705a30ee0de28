// Package provider implements a small registry of the reasoning-service
// backends used by the Clarifier, QueryPlanner, Scorer and
// Synthesizer: OpenAI, a generic OpenAI-compatible endpoint, and a
// local Ollama instance.
package provider

import (
	"fmt"
	"strings"
	"sync"
)

// ProviderName identifies a registered reasoning-service backend.
type ProviderName string

const (
	ProviderOpenAI  ProviderName = "openai"
	ProviderGeneric ProviderName = "generic"
	ProviderOllama  ProviderName = "ollama"
)

// Config is the set of fields a Provider validates before the chat
// client is constructed.
type Config struct {
	BaseURL   string
	APIKey    string
	ModelName string
}

// ProviderInfo is the metadata a Provider exposes about itself.
type ProviderInfo struct {
	Name         ProviderName
	DisplayName  string
	Description  string
	DefaultURL   string
	RequiresAuth bool
}

// Provider is a reasoning-service backend the registry can look up by
// name or detect from a base URL.
type Provider interface {
	Info() ProviderInfo
	ValidateConfig(config *Config) error
}

var (
	mu        sync.RWMutex
	providers = map[ProviderName]Provider{}
)

// Register adds a Provider to the registry. Called from each
// provider's init().
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Info().Name] = p
}

// List returns every registered Provider, in no particular order.
func List() []Provider {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		out = append(out, p)
	}
	return out
}

// Get looks up a Provider by name.
func Get(name ProviderName) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// GetOrDefault looks up a Provider by name, falling back to the
// generic OpenAI-compatible provider when name is unknown.
func GetOrDefault(name ProviderName) Provider {
	if p, ok := Get(name); ok {
		return p
	}
	p, _ := Get(ProviderGeneric)
	return p
}

// DetectProvider guesses the provider from a base URL, for operators
// who configure only a URL and rely on auto-detection.
func DetectProvider(baseURL string) ProviderName {
	u := strings.ToLower(baseURL)
	switch {
	case strings.Contains(u, "api.openai.com"):
		return ProviderOpenAI
	case strings.Contains(u, "localhost:11434"), strings.Contains(u, "127.0.0.1:11434"), strings.Contains(u, "/ollama"):
		return ProviderOllama
	default:
		return ProviderGeneric
	}
}

func requireField(value, field, providerName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required for %s provider", field, providerName)
	}
	return nil
}
