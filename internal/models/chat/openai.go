package chat

import (
	"context"
	"fmt"

	"github.com/caaa-research/engine/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat talks to the hosted OpenAI API or any OpenAI-compatible
// endpoint (generic provider): temperature 0.3 and max_tokens 500 as
// defaults; a response_format is set only when Options asks for one
// (Schema for strict json_schema, else JSONMode for json_object).
type OpenAIChat struct {
	client    *openai.Client
	modelName string
}

// NewOpenAIChat builds an OpenAIChat against baseURL (empty for the
// hosted API) using apiKey for auth.
func NewOpenAIChat(baseURL, apiKey, modelName string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChat{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
	}
}

func (c *OpenAIChat) ModelName() string { return c.modelName }

func (c *OpenAIChat) Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    convertMessages(messages),
		Temperature: 0.3,
		MaxTokens:   500,
	}
	if opts != nil {
		if opts.Temperature > 0 {
			req.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			req.MaxTokens = opts.MaxTokens
		}
		switch {
		case opts.Schema != nil:
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   schemaName(opts),
					Schema: opts.Schema,
					Strict: true,
				},
			}
		case opts.JSONMode:
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		}
	}

	logger.GetLogger(ctx).Infof("sending chat completion request to model %s", c.modelName)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}

	return &Response{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func schemaName(opts *Options) string {
	if opts.SchemaName != "" {
		return opts.SchemaName
	}
	return "reply"
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
