// Package interpreter defines the interface for the remote language model and
// speech-to-text backends.
//
// An interpreter completes a conversation transcript into a single assistant
// reply and transcribes recorded audio into text. parley ships with two
// backends: OpenAI-compatible (OpenAI, Groq, Azure gateways) and Local
// (self-hosted via Ollama/whisper.cpp).
package interpreter

import (
	"context"
	"fmt"
	"strings"

	"github.com/nadzzz/parley/internal/message"
)

// TranscribeOpts controls transcription behavior.
type TranscribeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "th") to guide transcription.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string

	// Model overrides the default transcription model.
	Model string
}

// TranscribeResult holds the output of a transcription.
type TranscribeResult struct {
	Text     string
	Language string
}

// Interpreter is the interface for chat completion and transcription.
type Interpreter interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Complete sends the ordered transcript and returns the assistant reply.
	Complete(ctx context.Context, transcript []message.Turn) (string, error)

	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts TranscribeOpts) (*TranscribeResult, error)

	// Close releases any resources held by the interpreter.
	Close() error
}

// GenerationOpts are sampling settings shared by the backends.
type GenerationOpts struct {
	Temperature float64
	MaxTokens   int
}

// APIError represents an error response from a backend API.
type APIError struct {
	Backend    string
	Op         string // "chat" or "transcription"
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Backend, e.Op, e.StatusCode, e.Body)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool { return e.StatusCode == 429 }

// IsUnauthorized returns true if this is an authentication error (HTTP 401/403).
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == 401 || e.StatusCode == 403 }

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// ExtFromContentType picks a file extension for an uploaded audio clip.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// ChatMessages converts a transcript into the role/content pairs every
// chat API accepts.
func ChatMessages(transcript []message.Turn) []ChatMessage {
	out := make([]ChatMessage, len(transcript))
	for i, t := range transcript {
		out[i] = ChatMessage{Role: string(t.Role), Content: t.Text}
	}
	return out
}

// ChatMessage is the wire form of a Turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
