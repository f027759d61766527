package classifier

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var ErrNoChoices = errors.New("no response choices")

// Completer sends one prompt to a model and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

type OllamaConfig struct {
	URL    string `envconfig:"ANNEVAL_OLLAMA_URL" default:"http://localhost:11434"`
	APIKey string `envconfig:"ANNEVAL_OLLAMA_API_KEY" default:"ollama"`
}

// OllamaClient talks to Ollama through its OpenAI compatible API.
type OllamaClient struct {
	client *openai.Client
}

func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	baseURL := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	// Ollama ignores the key but the client requires one
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "ollama"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &OllamaClient{client: openai.NewClientWithConfig(config)}
}

func (c *OllamaClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		// zero is dropped by omitempty
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
