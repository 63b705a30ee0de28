package provider

const OllamaDefaultBaseURL = "http://localhost:11434"

// OllamaProvider is a local Ollama instance. It needs no API key.
type OllamaProvider struct{}

func init() {
	Register(&OllamaProvider{})
}

func (p *OllamaProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:         ProviderOllama,
		DisplayName:  "Ollama",
		Description:  "Locally hosted models served by Ollama",
		DefaultURL:   OllamaDefaultBaseURL,
		RequiresAuth: false,
	}
}

func (p *OllamaProvider) ValidateConfig(config *Config) error {
	return requireField(config.ModelName, "model name", "Ollama")
}
