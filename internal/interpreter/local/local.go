// Package local implements the Interpreter interface using self-hosted models.
//
// Transcription goes to a Whisper-compatible server: whisper.cpp and
// faster-whisper speak the OpenAI form, and ahmetoner/whisper-asr-webservice
// its own /asr form. Completion goes to Ollama's native /api/chat or to any
// OpenAI-compatible chat endpoint (vLLM, llama.cpp server).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/interpreter"
	"github.com/nadzzz/parley/internal/message"
)

// Interpreter uses self-hosted models for transcription and completion.
type Interpreter struct {
	whisperURL string
	asr        bool
	vadFilter  bool
	llmURL     string
	llmModel   string
	gen        interpreter.GenerationOpts
	client     *http.Client
}

// New creates a local interpreter from config.
func New(cfg config.LocalConfig, gen interpreter.GenerationOpts) *Interpreter {
	model := cfg.LLMModel
	if model == "" {
		model = "llama3"
	}
	return &Interpreter{
		whisperURL: cfg.WhisperEndpoint,
		asr:        cfg.WhisperType == "asr",
		vadFilter:  cfg.VADFilter,
		llmURL:     cfg.LLMEndpoint,
		llmModel:   model,
		gen:        gen,
		client:     &http.Client{},
	}
}

// Name returns the backend identifier.
func (i *Interpreter) Name() string { return "local" }

// Transcribe uploads the clip to the configured Whisper server.
func (i *Interpreter) Transcribe(ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts) (*interpreter.TranscribeResult, error) {
	var (
		body     *bytes.Buffer
		formType string
		target   = i.whisperURL
		err      error
	)
	if i.asr {
		// POST /asr?task=transcribe&language=..&output=json with field audio_file.
		body, formType, err = interpreter.AudioForm("audio_file", audio, contentType, nil)
		target += "?" + i.asrQuery(opts).Encode()
	} else {
		body, formType, err = interpreter.AudioForm("file", audio, contentType, map[string]string{
			"model":           opts.Model,
			"language":        opts.Language,
			"response_format": "verbose_json",
		})
	}
	if err != nil {
		return nil, err
	}

	data, err := i.post(ctx, target, formType, body, "transcription")
	if err != nil {
		return nil, err
	}
	res, err := interpreter.DecodeTranscription(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("local transcription complete", "asr", i.asr, "text_length", len(res.Text), "language", res.Language)
	return res, nil
}

func (i *Interpreter) asrQuery(opts interpreter.TranscribeOpts) url.Values {
	q := url.Values{}
	q.Set("task", "transcribe")
	q.Set("output", "verbose_json")
	q.Set("encode", "true")
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}
	if i.vadFilter {
		q.Set("vad_filter", "true")
	}
	return q
}

// Complete sends the transcript to the local LLM. Endpoints ending in
// /api/chat get Ollama's native request; anything else is treated as
// OpenAI-compatible.
func (i *Interpreter) Complete(ctx context.Context, transcript []message.Turn) (string, error) {
	payload, err := json.Marshal(i.chatBody(transcript))
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	data, err := i.post(ctx, i.llmURL, "application/json", bytes.NewReader(payload), "chat")
	if err != nil {
		return "", err
	}

	reply := extractContent(data)
	if reply == "" {
		return "", errors.New("empty response from local LLM")
	}
	slog.Debug("local completion done", "model", i.llmModel, "reply_length", len(reply))
	return reply, nil
}

func (i *Interpreter) chatBody(transcript []message.Turn) map[string]any {
	body := map[string]any{
		"model":    i.llmModel,
		"messages": interpreter.ChatMessages(transcript),
		"stream":   false,
	}
	if strings.HasSuffix(i.llmURL, "/api/chat") {
		options := map[string]any{"temperature": i.gen.Temperature}
		if i.gen.MaxTokens > 0 {
			options["num_predict"] = i.gen.MaxTokens
		}
		body["options"] = options
		return body
	}
	body["temperature"] = i.gen.Temperature
	if i.gen.MaxTokens > 0 {
		body["max_tokens"] = i.gen.MaxTokens
	}
	return body
}

func (i *Interpreter) post(ctx context.Context, target, contentType string, body io.Reader, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	return interpreter.Do(i.client, req, i.Name(), op)
}

// Close is a no-op.
func (i *Interpreter) Close() error { return nil }

// extractContent reads the reply from either an OpenAI-style choices array
// or Ollama's single message.
func extractContent(data []byte) string {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return ""
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content
	}
	return resp.Message.Content
}
