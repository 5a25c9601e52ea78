// Package llm abstracts text-generation backends behind a single Provider
// interface. Backends are selected by configuration, not call sites.
package llm

import (
	"context"
	"fmt"

	"rehaulx/internal/config"

	"github.com/rs/zerolog"
)

// Options tune a single generation call. Zero values fall back to defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

func (o *Options) temperature() float64 {
	if o == nil || o.Temperature == 0 {
		return defaultTemperature
	}
	return o.Temperature
}

func (o *Options) maxTokens() int {
	if o == nil || o.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return o.MaxTokens
}

// Provider generates text from a prompt, either in one shot or streamed
// chunk by chunk through the onChunk callback. A non-nil error from onChunk
// aborts the stream.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts *Options) (string, error)
	GenerateStream(ctx context.Context, prompt string, opts *Options, onChunk func(chunk string) error) error
}

// New selects a Provider from configuration. Ollama is the default; DeepSeek
// requires an API key.
func New(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	switch cfg.LLMProvider {
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required for the deepseek provider")
		}
		return NewDeepSeekProvider(cfg.DeepSeekAPIKey, logger), nil
	case "ollama", "":
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
