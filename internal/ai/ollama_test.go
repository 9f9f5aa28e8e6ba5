package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tutorhub/tutor-gateway/internal/config"
)

func TestOllamaComplete(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(OllamaResponse{Model: "test", Response: "4", Done: true})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(config.OllamaConfig{URL: srv.URL, Model: "test"}, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}

	out, err := p.Complete(context.Background(), "[Subject: Math] 2+2")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "4" {
		t.Errorf("Expected 4, got %q", out)
	}
	if gotReq["prompt"] != "[Subject: Math] 2+2" {
		t.Errorf("Prompt not forwarded: %v", gotReq["prompt"])
	}
}

func TestOllamaCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(config.OllamaConfig{URL: srv.URL, Model: "test"}, 5*time.Second)
	_, err := p.Complete(context.Background(), "q")
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", perr.Code)
	}
}

func TestOllamaTranslateErrorType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(config.OllamaConfig{URL: srv.URL, Model: "test"}, 5*time.Second)
	_, err := p.Translate(context.Background(), "hello", "am")
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TranslationError, got %v", err)
	}
}

func TestOllamaTranslateInstruction(t *testing.T) {
	var gotReq map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(OllamaResponse{Response: "ሰላም"})
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(config.OllamaConfig{URL: srv.URL, Model: "test"}, 5*time.Second)
	out, err := p.Translate(context.Background(), "hello", "am")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "ሰላም" {
		t.Errorf("Expected translation, got %q", out)
	}
	system, _ := gotReq["system"].(string)
	if system == "" || !strings.Contains(system, "Amharic") {
		t.Errorf("Translate instruction should name the target language, got %q", system)
	}
}

func TestOllamaHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p, _ := NewOllamaProvider(config.OllamaConfig{URL: srv.URL}, 5*time.Second)
	if err := p.Health(); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(config.ProviderConfig{Type: "carrier-pigeon"})
	if err == nil {
		t.Error("Expected error for unsupported provider type")
	}
}
