package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// OllamaProvider drives a local Ollama server over its NDJSON generate API.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewOllamaProvider creates an OllamaProvider. No client timeout is set;
// generation can run long and callers cancel via context.
func NewOllamaProvider(baseURL, model string, logger zerolog.Logger) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
		logger:  logger.With().Str("service", "OllamaProvider").Logger(),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, opts *Options) (string, error) {
	body, err := p.do(ctx, prompt, opts, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp ollamaResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	return resp.Response, nil
}

// GenerateStream reads the NDJSON stream line by line, forwarding each
// non-empty response fragment. Malformed lines are skipped.
func (p *OllamaProvider) GenerateStream(ctx context.Context, prompt string, opts *Options, onChunk func(string) error) error {
	body, err := p.do(ctx, prompt, opts, true)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			p.logger.Debug().Str("line", line).Msg("Skipping malformed ollama stream line")
			continue
		}
		if chunk.Response != "" {
			if err := onChunk(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading ollama stream: %w", err)
	}
	return nil
}

func (p *OllamaProvider) do(ctx context.Context, prompt string, opts *Options, stream bool) (io.ReadCloser, error) {
	reqBody := ollamaRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: stream,
		Options: ollamaOptions{
			Temperature: opts.temperature(),
			NumPredict:  opts.maxTokens(),
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request to ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
		}
		p.logger.Error().Int("status_code", resp.StatusCode).Str("error_body", string(bodyBytes)).Msg("Ollama returned error")
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp.Body, nil
}
