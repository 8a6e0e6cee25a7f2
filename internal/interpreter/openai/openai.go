// Package openai implements the Interpreter interface against any
// OpenAI-compatible API.
//
// Transcription goes to /audio/transcriptions (Whisper) and conversation
// turns to /chat/completions. Point BaseURL at https://api.groq.com/openai/v1
// to run llama3 on Groq.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/interpreter"
	"github.com/nadzzz/parley/internal/message"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Interpreter talks to an OpenAI-compatible API.
type Interpreter struct {
	apiKey             string
	baseURL            string
	transcriptionModel string
	completionModel    string
	gen                interpreter.GenerationOpts
	client             *http.Client
}

// New creates an OpenAI interpreter from config.
func New(cfg config.OpenAIConfig, gen interpreter.GenerationOpts) *Interpreter {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Interpreter{
		apiKey:             cfg.APIKey,
		baseURL:            base,
		transcriptionModel: cfg.TranscriptionModel,
		completionModel:    cfg.CompletionModel,
		gen:                gen,
		client:             &http.Client{},
	}
}

// Name returns the backend identifier.
func (i *Interpreter) Name() string { return "openai" }

// Transcribe uploads the clip to the transcription endpoint.
func (i *Interpreter) Transcribe(ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts) (*interpreter.TranscribeResult, error) {
	model := i.transcriptionModel
	if opts.Model != "" {
		model = opts.Model
	}
	body, formType, err := interpreter.AudioForm("file", audio, contentType, map[string]string{
		"model":           model,
		"language":        opts.Language,
		"prompt":          opts.Prompt,
		"response_format": "verbose_json",
	})
	if err != nil {
		return nil, err
	}

	data, err := i.post(ctx, "/audio/transcriptions", formType, body, "transcription")
	if err != nil {
		return nil, err
	}
	res, err := interpreter.DecodeTranscription(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("transcription complete", "text_length", len(res.Text), "language", res.Language)
	return res, nil
}

// Complete sends the transcript to the chat endpoint and returns the first
// choice.
func (i *Interpreter) Complete(ctx context.Context, transcript []message.Turn) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       i.completionModel,
		Messages:    interpreter.ChatMessages(transcript),
		Temperature: i.gen.Temperature,
		MaxTokens:   i.gen.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	data, err := i.post(ctx, "/chat/completions", "application/json", bytes.NewReader(payload), "chat")
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from chat API")
	}

	slog.Debug("chat complete",
		"model", i.completionModel,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func (i *Interpreter) post(ctx context.Context, path, contentType string, body io.Reader, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+i.apiKey)
	req.Header.Set("Content-Type", contentType)
	return interpreter.Do(i.client, req, i.Name(), op)
}

// Close is a no-op.
func (i *Interpreter) Close() error { return nil }

type chatRequest struct {
	Model       string                    `json:"model"`
	Messages    []interpreter.ChatMessage `json:"messages"`
	Temperature float64                   `json:"temperature"`
	MaxTokens   int                       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}
