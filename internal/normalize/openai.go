package normalize

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

const (
	defaultVisionModel = "gpt-4o-mini"
	ocrInstruction     = "Extract all text visible in this image. Output only the extracted text, with no commentary. If there is no readable text, output nothing."
)

// OpenAIOCR reads photographed questions with a vision model
type OpenAIOCR struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIOCR creates an OCR collaborator from config
func NewOpenAIOCR(cfg config.OpenAIConfig) *OpenAIOCR {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.VisionModel
	if model == "" {
		model = defaultVisionModel
	}

	return &OpenAIOCR{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
	}
}

// ExtractText sends the image as a data URL and returns the model's reading
func (o *OpenAIOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(image))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart(ocrInstruction),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
						},
					},
				},
			},
		},
		Model: o.model,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Whisper transcribes voice notes through the OpenAI audio API
type Whisper struct {
	client openai.Client
}

// NewWhisper creates a speech collaborator from config
func NewWhisper(cfg config.OpenAIConfig) *Whisper {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Whisper{client: openai.NewClient(opts...)}
}

// Transcribe converts an audio payload to text in the given source language
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, lang string) (string, error) {
	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:    openai.AudioModelWhisper1,
		File:     openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
		Language: openai.String(lang),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

var (
	_ OCRService    = (*OpenAIOCR)(nil)
	_ SpeechService = (*Whisper)(nil)
)
