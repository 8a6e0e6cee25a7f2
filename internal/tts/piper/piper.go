// Package piper synthesizes speech with Piper over the Wyoming protocol.
//
// The linuxserver/piper container serves Wyoming on TCP port 10200. Each
// language may be routed to its own Piper instance so that every language
// gets a native voice model.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/tts"
)

const (
	dialTimeout    = 10 * time.Second
	defaultTimeout = 30 * time.Second
)

// Synthesizer implements tts.Synthesizer against one or more Piper servers.
type Synthesizer struct {
	fallback string
	routes   map[string]string // language -> host:port
}

// New creates a Piper synthesizer from config.
func New(cfg config.PiperConfig) *Synthesizer {
	routes := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		routes[strings.ToLower(lang)] = hostPort(ep)
	}
	return &Synthesizer{fallback: hostPort(cfg.Endpoint), routes: routes}
}

func hostPort(ep string) string {
	for _, scheme := range []string{"tcp://", "http://"} {
		ep = strings.TrimPrefix(ep, scheme)
	}
	return ep
}

func (s *Synthesizer) endpointFor(language string) string {
	if ep := s.routes[strings.ToLower(language)]; ep != "" {
		return ep
	}
	return s.fallback
}

// Synthesize sends one synthesize event and collects the streamed PCM into a
// WAV file. The voice name is passed through; an empty voice lets the server
// pick its default model.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("piper: empty text")
	}
	endpoint := s.endpointFor(opts.Language)
	if endpoint == "" {
		return nil, fmt.Errorf("piper: no endpoint for language %q", opts.Language)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("piper: connecting to %s: %w", endpoint, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}
	_ = conn.SetDeadline(deadline)

	data := map[string]any{"text": text}
	if opts.Voice != "" {
		data["voice"] = map[string]any{"name": opts.Voice}
	}
	if err := writeEvent(conn, wyomingEvent{Type: eventSynthesize, Data: data}, nil); err != nil {
		return nil, fmt.Errorf("piper: sending synthesize: %w", err)
	}

	slog.Debug("piper synthesize", "endpoint", endpoint, "language", opts.Language, "voice", opts.Voice, "text_length", len(text))
	return collect(bufio.NewReader(conn))
}

// collect reads audio-start, audio-chunk* and audio-stop.
func collect(r *bufio.Reader) (*tts.SynthesizeResult, error) {
	format := defaultFormat
	var pcm bytes.Buffer

	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("piper: %w", err)
		}

		switch evt.Type {
		case eventAudioStart:
			format.update(evt.Data)
		case eventAudioChunk:
			pcm.Write(payload)
		case eventAudioStop:
			slog.Debug("piper audio complete", "pcm_bytes", pcm.Len(), "rate", format.rate)
			return &tts.SynthesizeResult{
				Audio:       format.wav(pcm.Bytes()),
				ContentType: "audio/wav",
				SampleRate:  format.rate,
				Channels:    format.channels,
			}, nil
		case eventError:
			msg, _ := evt.Data["text"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			return nil, fmt.Errorf("piper: server error: %s", msg)
		default:
			slog.Debug("piper ignoring event", "type", evt.Type)
		}
	}
}

// Close is a no-op; a connection is opened per request.
func (s *Synthesizer) Close() error { return nil }
