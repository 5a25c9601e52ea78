package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	deepSeekModel   = "deepseek-chat"
)

// DeepSeekProvider uses DeepSeek's OpenAI-compatible chat completion API.
type DeepSeekProvider struct {
	client *openai.Client
	logger zerolog.Logger
}

// NewDeepSeekProvider creates a DeepSeekProvider.
func NewDeepSeekProvider(apiKey string, logger zerolog.Logger) *DeepSeekProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = deepSeekBaseURL
	return &DeepSeekProvider{
		client: openai.NewClientWithConfig(cfg),
		logger: logger.With().Str("service", "DeepSeekProvider").Logger(),
	}
}

func (p *DeepSeekProvider) request(prompt string, opts *Options) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: deepSeekModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(opts.temperature()),
		MaxTokens:   opts.maxTokens(),
	}
}

func (p *DeepSeekProvider) Generate(ctx context.Context, prompt string, opts *Options) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(prompt, opts))
	if err != nil {
		p.logger.Error().Err(err).Msg("DeepSeek completion failed")
		return "", fmt.Errorf("deepseek completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("deepseek returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *DeepSeekProvider) GenerateStream(ctx context.Context, prompt string, opts *Options, onChunk func(string) error) error {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.request(prompt, opts))
	if err != nil {
		p.logger.Error().Err(err).Msg("DeepSeek stream failed to start")
		return fmt.Errorf("deepseek stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receiving deepseek stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if content := resp.Choices[0].Delta.Content; content != "" {
			if err := onChunk(content); err != nil {
				return err
			}
		}
	}
}
