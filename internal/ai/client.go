// Package ai wraps external completion providers behind a single gateway
// interface. The orchestrator never talks to a concrete provider; swapping
// backends is a configuration change.
package ai

import (
	"context"
	"fmt"
)

// Client is the interface for completion providers
type Client interface {
	// Complete sends a prompt and returns the generated answer text
	Complete(ctx context.Context, prompt string) (string, error)

	// Translate translates text into the target language
	Translate(ctx context.Context, text, targetLang string) (string, error)

	// Health reports whether the provider is usable
	Health() error
}

// ProviderError is a failed completion call
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
	}
	return "provider error: " + e.Message
}

// TranslationError is a failed translation call. The orchestrator degrades
// to the untranslated text instead of failing the turn.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return "translation failed: " + e.Err.Error()
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

var langNames = map[string]string{
	"en": "English",
	"am": "Amharic",
}

// LangName maps an ISO code to a human-readable name for prompt text
func LangName(code string) string {
	if name, ok := langNames[code]; ok {
		return name
	}
	return code
}

const systemPrompt = "You are a patient tutor. Answer the student's question clearly and step by step. Keep the answer focused on the stated subject."

func translateInstruction(targetLang string) string {
	return fmt.Sprintf("Translate the following text to %s. Output only the translation, nothing else.", LangName(targetLang))
}
