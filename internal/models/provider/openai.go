package provider

const OpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider is the hosted OpenAI API.
type OpenAIProvider struct{}

func init() {
	Register(&OpenAIProvider{})
}

func (p *OpenAIProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:         ProviderOpenAI,
		DisplayName:  "OpenAI",
		Description:  "gpt-4o, gpt-4o-mini, gpt-3.5-turbo",
		DefaultURL:   OpenAIBaseURL,
		RequiresAuth: true,
	}
}

func (p *OpenAIProvider) ValidateConfig(config *Config) error {
	if err := requireField(config.APIKey, "API key", "OpenAI"); err != nil {
		return err
	}
	return requireField(config.ModelName, "model name", "OpenAI")
}
