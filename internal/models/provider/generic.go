package provider

// GenericProvider is any OpenAI-compatible endpoint not otherwise
// recognized (self-hosted gateways, proxies, etc). It is also the
// fallback GetOrDefault returns for an unrecognized provider name.
type GenericProvider struct{}

func init() {
	Register(&GenericProvider{})
}

func (p *GenericProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderGeneric,
		DisplayName: "Generic (OpenAI-compatible)",
		Description: "Any OpenAI chat-completions compatible endpoint",
	}
}

func (p *GenericProvider) ValidateConfig(config *Config) error {
	if err := requireField(config.BaseURL, "base URL", "generic"); err != nil {
		return err
	}
	return requireField(config.ModelName, "model name", "generic")
}
