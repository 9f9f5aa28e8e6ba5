package ai

import (
	"context"
	"errors"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider is a completion gateway backed by the OpenAI API
type OpenAIProvider struct {
	client  openai.Client
	apiKey  string
	model   openai.ChatModel
	timeout time.Duration
}

// NewOpenAIProvider creates a provider from config
func NewOpenAIProvider(cfg config.OpenAIConfig, timeout time.Duration) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		apiKey:  cfg.APIKey,
		model:   openai.ChatModel(model),
		timeout: timeout,
	}
}

// Complete sends the prompt as a single user turn
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	text, err := p.chat(ctx, systemPrompt, prompt)
	if err != nil {
		return "", asProviderError(err)
	}
	return text, nil
}

// Translate asks the model to translate text into the target language
func (p *OpenAIProvider) Translate(ctx context.Context, text, targetLang string) (string, error) {
	out, err := p.chat(ctx, translateInstruction(targetLang), text)
	if err != nil {
		return "", &TranslationError{Err: err}
	}
	return out, nil
}

func (p *OpenAIProvider) chat(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: p.model,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("empty message content")
	}
	return content, nil
}

// Health checks that the provider is configured
func (p *OpenAIProvider) Health() error {
	if p.apiKey == "" {
		return errors.New("API key is not configured")
	}
	return nil
}

func asProviderError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Code: apierr.StatusCode, Message: apierr.Message}
	}
	return &ProviderError{Message: err.Error()}
}

var _ Client = (*OpenAIProvider)(nil)
