// Package normalize converts heterogeneous input (typed text, photographed
// text, spoken audio) into a single canonical text query. OCR and speech
// recognition are external collaborators behind interfaces.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyExtraction means the collaborator returned no usable text;
	// the user should be asked to retype their question
	ErrEmptyExtraction = errors.New("no text could be extracted")
	// ErrUnavailable means a collaborator call failed; not retried here
	ErrUnavailable = errors.New("normalizer collaborator unavailable")
)

// OCRService extracts text from an image
type OCRService interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// SpeechService transcribes audio in a fixed source language
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, lang string) (string, error)
}

// Input is one inbound payload; exactly one of the fields is expected to be set
type Input struct {
	Text  string
	Image []byte
	Audio []byte
}

// Normalizer turns any supported payload into plain text
type Normalizer struct {
	ocr        OCRService
	speech     SpeechService
	speechLang string
}

// New creates a normalizer. Either collaborator may be nil, in which case the
// corresponding modality reports ErrUnavailable.
func New(ocr OCRService, speech SpeechService, speechLang string) *Normalizer {
	return &Normalizer{ocr: ocr, speech: speech, speechLang: speechLang}
}

// Normalize converts the input to text. Media is checked before text so a
// photo caption never stands in for the photographed question; image and
// audio are delegated, plain text passes through unchanged. Extracted text
// that is empty after trimming is ErrEmptyExtraction. No retries happen here.
func (n *Normalizer) Normalize(ctx context.Context, in Input) (string, error) {
	switch {
	case len(in.Image) > 0:
		if n.ocr == nil {
			return "", fmt.Errorf("%w: no OCR service configured", ErrUnavailable)
		}
		text, err := n.ocr.ExtractText(ctx, in.Image)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return checkExtracted(text)
	case len(in.Audio) > 0:
		if n.speech == nil {
			return "", fmt.Errorf("%w: no speech service configured", ErrUnavailable)
		}
		text, err := n.speech.Transcribe(ctx, in.Audio, n.speechLang)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return checkExtracted(text)
	case in.Text != "":
		return in.Text, nil
	default:
		return "", ErrEmptyExtraction
	}
}

func checkExtracted(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyExtraction
	}
	return text, nil
}
