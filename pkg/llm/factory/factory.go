package factory

import (
	"fmt"
	"time"

	"genius-be/pkg/llm"
	"genius-be/pkg/llm/ollama"
	"genius-be/pkg/llm/openai"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

func NewLLMProvider(cfg Config) (llm.Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
