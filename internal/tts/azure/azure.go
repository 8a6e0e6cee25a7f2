// Package azure implements the TTS Synthesizer against the Azure Speech
// REST API. Text is wrapped in SSML with the requested neural voice.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/tts"
)

const (
	defaultOutputFormat = "riff-24khz-16bit-mono-pcm"
	defaultVoice        = "en-US-JennyNeural"
	userAgent           = "parley"
)

// Synthesizer implements tts.Synthesizer using Azure neural voices.
type Synthesizer struct {
	key          string
	endpoint     string
	outputFormat string
	client       *http.Client
}

// New creates an Azure synthesizer from config.
func New(cfg config.AzureConfig) (*Synthesizer, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, fmt.Errorf("azure tts: region is required")
		}
		endpoint = fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region)
	}
	format := cfg.OutputFormat
	if format == "" {
		format = defaultOutputFormat
	}
	return &Synthesizer{
		key:          cfg.SubscriptionKey,
		endpoint:     endpoint,
		outputFormat: format,
		client:       &http.Client{},
	}, nil
}

// Synthesize renders text with the voice in opts.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoice
	}

	body, err := buildSSML(text, voice)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", s.outputFormat)
	req.Header.Set("User-Agent", userAgent)

	slog.Debug("azure synthesize", "voice", voice, "text_length", len(text), "format", s.outputFormat)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("azure tts failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: contentType(s.outputFormat),
		Channels:    1,
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }

// buildSSML produces a single-voice SSML document. The xml:lang attribute is
// taken from the voice id prefix ("th-TH-PremwadeeNeural" -> "th-TH").
func buildSSML(text, voice string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)
	for _, part := range []struct{ value, after string }{
		{voiceLocale(voice), `"><voice name="`},
		{voice, `">`},
		{text, `</voice></speak>`},
	} {
		if err := xml.EscapeText(&b, []byte(part.value)); err != nil {
			return nil, fmt.Errorf("escaping ssml: %w", err)
		}
		b.WriteString(part.after)
	}
	return b.Bytes(), nil
}

func voiceLocale(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) < 3 {
		return "en-US"
	}
	return strings.Join(parts[:len(parts)-1], "-")
}

func contentType(format string) string {
	switch {
	case strings.Contains(format, "mp3"):
		return "audio/mpeg"
	case strings.Contains(format, "ogg"):
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}
