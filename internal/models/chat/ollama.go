package chat

import (
	"context"
	"fmt"

	"github.com/caaa-research/engine/internal/logger"
	ollamaapi "github.com/ollama/ollama/api"
)

// OllamaChat talks to a local Ollama instance. No tool calls and no
// streaming, since every caller here wants one JSON reply to one
// prompt.
type OllamaChat struct {
	client    *ollamaapi.Client
	modelName string
}

// NewOllamaChat builds an OllamaChat against the given client, which
// callers construct from ollamaapi.ClientFromEnvironment or a
// configured base URL.
func NewOllamaChat(client *ollamaapi.Client, modelName string) *OllamaChat {
	return &OllamaChat{client: client, modelName: modelName}
}

func (c *OllamaChat) ModelName() string { return c.modelName }

func (c *OllamaChat) Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error) {
	streamFlag := false
	req := &ollamaapi.ChatRequest{
		Model:    c.modelName,
		Messages: convertOllamaMessages(messages),
		Stream:   &streamFlag,
		Options:  map[string]interface{}{},
	}
	if opts != nil {
		if opts.Temperature > 0 {
			req.Options["temperature"] = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			req.Options["num_predict"] = opts.MaxTokens
		}
		switch {
		case opts.Schema != nil:
			req.Format = []byte(opts.Schema)
		case opts.JSONMode:
			req.Format = []byte(`"json"`)
		}
	}

	logger.GetLogger(ctx).Infof("sending chat request to ollama model %s", c.modelName)

	var content string
	var promptTokens, totalEval int
	err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		if resp.EvalCount > 0 {
			promptTokens = resp.PromptEvalCount
			totalEval = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	completionTokens := totalEval - promptTokens
	if completionTokens < 0 {
		completionTokens = 0
	}
	return &Response{
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}, nil
}

func convertOllamaMessages(messages []Message) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollamaapi.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
