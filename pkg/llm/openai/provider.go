package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genius-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o"

type OpenAIProvider struct {
	client      *goopenai.Client
	apiKey      string
	modelName   string
	timeout     time.Duration
	temperature float64
}

// Ensure OpenAIProvider implements Completer
var _ llm.Completer = &OpenAIProvider{}

// NewOpenAIProvider builds a provider. An empty apiKey is accepted; the
// provider then reports Configured() == false.
func NewOpenAIProvider(apiKey, baseURL, modelName string, timeout time.Duration) *OpenAIProvider {
	clientConfig := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	return &OpenAIProvider{
		client:      goopenai.NewClientWithConfig(clientConfig),
		apiKey:      apiKey,
		modelName:   modelName,
		timeout:     timeout,
		temperature: 0.7,
	}
}

func (p *OpenAIProvider) Configured() bool {
	return p.apiKey != ""
}

// Complete makes a single attempt; nothing is retried.
func (p *OpenAIProvider) Complete(ctx context.Context, history []llm.Message, opts ...llm.Option) (llm.Message, error) {
	if err := llm.ValidateHistory(history); err != nil {
		return llm.Message{}, err
	}

	options := &llm.Options{
		Temperature: p.temperature,
		Model:       p.modelName,
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]goopenai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		messages[i] = goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		MaxTokens:   options.MaxTokens,
		Temperature: float32(options.Temperature),
	})
	if err != nil {
		return llm.Message{}, classify(err)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, &llm.Error{Kind: llm.KindEmpty, Err: errors.New("no choices returned")}
	}

	reply := resp.Choices[0].Message
	role := reply.Role
	if role == "" {
		role = llm.RoleAssistant
	}
	return llm.Message{Role: role, Content: reply.Content}, nil
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.Error{Kind: llm.KindForStatus(apiErr.HTTPStatusCode), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.Error{Kind: llm.KindForStatus(reqErr.HTTPStatusCode), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &llm.Error{Kind: llm.KindUnknown, Err: fmt.Errorf("openai request failed: %w", err)}
}
