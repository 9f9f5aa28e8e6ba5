package ai

import (
	"fmt"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

// NewProvider creates the configured completion gateway
func NewProvider(cfg config.ProviderConfig) (Client, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, cfg.Timeout.Std()), nil
	case "ollama":
		return NewOllamaProvider(cfg.Ollama, cfg.Timeout.Std())
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}
