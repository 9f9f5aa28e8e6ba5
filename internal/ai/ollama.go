package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

// OllamaProvider is a completion gateway backed by a local Ollama server
type OllamaProvider struct {
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewOllamaProvider creates a provider from config
func NewOllamaProvider(cfg config.OllamaConfig, timeout time.Duration) (*OllamaProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ollama URL is required")
	}

	return &OllamaProvider{
		baseURL:      cfg.URL,
		defaultModel: cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Complete sends the prompt to /api/generate
func (p *OllamaProvider) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := p.generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Translate reuses the generate endpoint with a translation instruction
func (p *OllamaProvider) Translate(ctx context.Context, text, targetLang string) (string, error) {
	out, err := p.generate(ctx, translateInstruction(targetLang), text)
	if err != nil {
		return "", &TranslationError{Err: err}
	}
	return out, nil
}

func (p *OllamaProvider) generate(ctx context.Context, system, prompt string) (string, error) {
	ollamaReq := map[string]interface{}{
		"model":  p.defaultModel,
		"system": system,
		"prompt": prompt,
		"stream": false,
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/api/generate", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &ProviderError{Code: resp.StatusCode, Message: string(body)}
	}

	var ollamaResp OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if ollamaResp.Response == "" {
		return "", &ProviderError{Message: "empty response"}
	}

	return ollamaResp.Response, nil
}

// Health checks if Ollama is reachable
func (p *OllamaProvider) Health() error {
	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}

	return nil
}

// OllamaResponse represents an Ollama API response
type OllamaResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

var _ Client = (*OllamaProvider)(nil)
