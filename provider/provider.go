package provider

import (
	"context"
	"errors"

	"github.com/askcampus/askcampus/config"
	ollama_provider "github.com/askcampus/askcampus/provider/ollama"
	openai_provider "github.com/askcampus/askcampus/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Ollama Client = "ollama"
)

var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Provider is the interface that all LLM implementations must satisfy.
// Complete and Embed carry the per-call timeout inside the client; callers
// pass a context for cancellation on top of that.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Provider) {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set (OPENAI_API_KEY)")
		}
		return openai_provider.NewClient(
			cfg.APIKey,
			cfg.BaseURL,
			cfg.CompletionModel,
			cfg.EmbeddingModel,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	case Ollama:
		return ollama_provider.NewClient(
			cfg.BaseURL,
			cfg.CompletionModel,
			cfg.EmbeddingModel,
			cfg.Temperature,
			cfg.Timeout,
		), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
