package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nadzzz/parley/internal/runner"
)

// Player plays an audio file.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays files with an external program such as ffplay,
// aplay or afplay. "{path}" is substituted in the command.
type CommandPlayer struct {
	Command []string
}

// Play runs the player command to completion.
func (p CommandPlayer) Play(ctx context.Context, path string) error {
	return runner.Run(ctx, p.Command, map[string]string{"path": path})
}

// Speaker synthesizes text and plays it.
type Speaker struct {
	synth  Synthesizer
	player Player
}

// NewSpeaker creates a Speaker.
func NewSpeaker(synth Synthesizer, player Player) *Speaker {
	return &Speaker{synth: synth, player: player}
}

// Speak synthesizes text with the given voice and blocks until playback
// ends. Failures wrap ErrCanceled or ErrServiceError.
func (s *Speaker) Speak(ctx context.Context, text, language, voice string) error {
	res, err := s.synth.Synthesize(ctx, text, SynthesizeOpts{Language: language, Voice: voice})
	if err != nil {
		return classify(ctx, "synthesizing", err)
	}

	dir, err := os.MkdirTemp("", "parley-tts-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp dir: %w", ErrServiceError, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "reply"+res.Ext())
	if err := os.WriteFile(path, res.Audio, 0o600); err != nil {
		return fmt.Errorf("%w: writing audio: %w", ErrServiceError, err)
	}

	slog.Debug("playing reply", "voice", voice, "bytes", len(res.Audio), "content_type", res.ContentType)
	if err := s.player.Play(ctx, path); err != nil {
		return classify(ctx, "playing", err)
	}
	return nil
}

func classify(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", ErrCanceled, stage, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrServiceError, stage, err)
}
