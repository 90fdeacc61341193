package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// OpenAIProvider talks to any OpenAI-compatible chat endpoint through eino.
type OpenAIProvider struct {
	Model     string
	chatModel model.ChatModel
}

// NewOpenAIProvider builds a provider reading its API key from apiKeyEnv.
// An empty baseURL selects the public OpenAI endpoint.
func NewOpenAIProvider(ctx context.Context, modelName, baseURL, apiKeyEnv string) (*OpenAIProvider, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return &OpenAIProvider{Model: modelName}, nil
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return &OpenAIProvider{Model: modelName, chatModel: chatModel}, nil
}

// IsConfigured reports whether an API key was found.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.chatModel != nil
}

// Generate sends a single user message and returns the reply text.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.chatModel == nil {
		return "", ErrNotConfigured
	}
	messages := []*schema.Message{
		{Role: schema.User, Content: prompt},
	}
	resp, err := o.chatModel.Generate(ctx, messages,
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(0.3),
	)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	return resp.Content, nil
}
