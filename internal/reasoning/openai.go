package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGateway talks to an OpenAI-compatible chat completion endpoint.
type OpenAIGateway struct {
	client *openai.Client
	cfg    *Config
}

// NewOpenAIGateway creates the remote gateway. A custom BaseURL targets
// OpenAI-compatible deployments.
func NewOpenAIGateway(cfg *Config) (*OpenAIGateway, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token required")
	}

	clientConfig := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

func (g *OpenAIGateway) Name() string {
	return "openai"
}

func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	model := g.cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.cfg.MaxTokens
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.TimeoutDuration())
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.UserMessage(),
	})

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformed)
	}

	return &Response{
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:   resp.Model,
	}, nil
}
