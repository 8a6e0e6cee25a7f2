// Package tts defines the interface for text-to-speech synthesis and the
// Speaker that plays synthesized replies.
//
// Voices are chosen by the conversation session (one per language), so
// backends receive an explicit voice id and only fall back to their own
// defaults when none is given.
package tts

import (
	"context"
	"errors"
)

var (
	// ErrCanceled means synthesis or playback was interrupted.
	ErrCanceled = errors.New("speech synthesis canceled")

	// ErrServiceError means the synthesis backend or the audio player failed.
	ErrServiceError = errors.New("speech synthesis failed")
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the canonical language name (e.g., "thai"), used by
	// backends that route per language.
	Language string

	// Voice is the backend-specific voice id (e.g., "th-TH-PremwadeeNeural").
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates a playable audio file from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio as a complete file (WAV or MP3).
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz (e.g., 22050). Zero if unknown.
	SampleRate int

	// Channels is the number of audio channels (typically 1). Zero if unknown.
	Channels int
}

// Ext returns a file extension matching the content type.
func (r *SynthesizeResult) Ext() string {
	switch r.ContentType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".wav"
	}
}
