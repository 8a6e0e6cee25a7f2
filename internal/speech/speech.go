// Package speech implements voice input: it records a clip with an external
// capture command and transcribes it through the interpreter backend.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nadzzz/parley/internal/interpreter"
	"github.com/nadzzz/parley/internal/runner"
)

var (
	// ErrUnintelligible means the audio was captured but nothing was recognized.
	ErrUnintelligible = errors.New("speech could not be understood")

	// ErrServiceUnavailable means capture or the recognition service failed.
	ErrServiceUnavailable = errors.New("speech recognition service unavailable")
)

// Recorder captures one audio clip.
type Recorder interface {
	Record(ctx context.Context) (audio []byte, contentType string, err error)
}

// Transcriber converts audio to text. interpreter.Interpreter satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string, opts interpreter.TranscribeOpts) (*interpreter.TranscribeResult, error)
}

// Recognizer turns speech into text for a given locale.
type Recognizer struct {
	recorder    Recorder
	transcriber Transcriber
}

// NewRecognizer creates a Recognizer.
func NewRecognizer(recorder Recorder, transcriber Transcriber) *Recognizer {
	return &Recognizer{recorder: recorder, transcriber: transcriber}
}

// Listen records a clip and transcribes it using the language of locale.
func (r *Recognizer) Listen(ctx context.Context, locale string) (string, error) {
	audio, contentType, err := r.recorder.Record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: recording: %w", ErrServiceUnavailable, err)
	}
	if len(audio) == 0 {
		return "", ErrUnintelligible
	}

	lang := LanguageCode(locale)
	slog.Debug("transcribing speech", "locale", locale, "language", lang, "bytes", len(audio))
	res, err := r.transcriber.Transcribe(ctx, audio, contentType, interpreter.TranscribeOpts{Language: lang})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

// LanguageCode extracts the ISO-639 language subtag from a locale
// ("th-TH" -> "th", "yue-Hant-HK" -> "yue").
func LanguageCode(locale string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(locale), "-")
	code, _, _ = strings.Cut(code, "_")
	return strings.ToLower(code)
}

// CommandRecorder records by running an external capture program that
// writes a WAV file. "{path}" and "{seconds}" are substituted in the command.
type CommandRecorder struct {
	command []string
	seconds int
}

// NewCommandRecorder creates a recorder for the given command template.
func NewCommandRecorder(command []string, seconds int) *CommandRecorder {
	if seconds <= 0 {
		seconds = 5
	}
	return &CommandRecorder{command: command, seconds: seconds}
}

// Record runs the capture command and returns the recorded WAV.
func (c *CommandRecorder) Record(ctx context.Context) ([]byte, string, error) {
	dir, err := os.MkdirTemp("", "parley-rec-*")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "prompt.wav")
	err = runner.Run(ctx, c.command, map[string]string{
		"path":    path,
		"seconds": strconv.Itoa(c.seconds),
	})
	if err != nil {
		return nil, "", err
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading recording: %w", err)
	}
	return audio, "audio/wav", nil
}
