// Package dispatch implements the remote turn service.
//
// The dispatcher receives turns from transports, resolves the conversation
// from the session registry, and runs the pipeline: transcribe (if the turn
// carries audio) -> parse command -> switch language or ask the model ->
// synthesize. The caller always receives a result; pipeline failures are
// reported in it with the name of the failing stage.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/parley/internal/command"
	"github.com/nadzzz/parley/internal/interpreter"
	"github.com/nadzzz/parley/internal/message"
	"github.com/nadzzz/parley/internal/metrics"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/speech"
	"github.com/nadzzz/parley/internal/transport"
	"github.com/nadzzz/parley/internal/tts"
)

// Stage names reported in TurnResult.Stage.
const (
	StageRecognition = "recognition"
	StageInference   = "inference"
	StageSynthesis   = "synthesis"
)

var _ transport.Service = (*Dispatcher)(nil)

// Dispatcher is the remote turn service.
type Dispatcher struct {
	registry    *session.Registry
	transcriber speech.Transcriber
	synthesizer tts.Synthesizer // nil if TTS is disabled
	metrics     *metrics.Metrics
}

// New creates a Dispatcher. synthesizer and m may be nil.
func New(registry *session.Registry, transcriber speech.Transcriber, synthesizer tts.Synthesizer, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		transcriber: transcriber,
		synthesizer: synthesizer,
		metrics:     m,
	}
}

// resolveResponseMode determines the effective ResponseMode for a request.
// If the caller didn't specify one, the default depends on whether TTS is available.
func (d *Dispatcher) resolveResponseMode(mode message.ResponseMode) message.ResponseMode {
	switch mode {
	case message.ResponseModeNone, message.ResponseModeText,
		message.ResponseModeAudio, message.ResponseModeTextAudio:
		return mode
	default:
		if d.synthesizer != nil {
			return message.ResponseModeTextAudio
		}
		return message.ResponseModeText
	}
}

// wantText returns true if the response mode includes text output.
func wantText(mode message.ResponseMode) bool {
	return mode == message.ResponseModeText || mode == message.ResponseModeTextAudio
}

// wantAudio returns true if the response mode includes audio output.
func wantAudio(mode message.ResponseMode) bool {
	return mode == message.ResponseModeAudio || mode == message.ResponseModeTextAudio
}

// Open creates a session in the requested (or default) language.
func (d *Dispatcher) Open(_ context.Context, req *message.OpenRequest) (*message.SessionInfo, error) {
	id, err := d.registry.Open(req.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrInvalidRequest, err)
	}
	d.metrics.SessionOpened()

	info := &message.SessionInfo{SessionID: id}
	err = d.registry.With(id, func(s *session.Session) error {
		info.Language = s.ActiveLanguage()
		info.Voice = s.VoiceForActiveLanguage()
		info.Turns = s.Len()
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("session opened", "session_id", id, "language", info.Language)
	return info, nil
}

// CloseSession drops a session.
func (d *Dispatcher) CloseSession(_ context.Context, id string) error {
	if err := d.registry.Close(id); err != nil {
		return err
	}
	d.metrics.SessionClosed()
	slog.Info("session closed", "session_id", id)
	return nil
}

// Transcript returns a copy of the session's turns.
func (d *Dispatcher) Transcript(_ context.Context, req *message.TranscriptRequest) (*message.TranscriptResult, error) {
	result := &message.TranscriptResult{SessionID: req.SessionID}
	err := d.registry.With(req.SessionID, func(s *session.Session) error {
		result.Turns = s.Transcript()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Turn processes a single turn through the full pipeline. A request without a
// session id opens a new session first. A request with neither audio nor text
// is rejected before any session is touched.
func (d *Dispatcher) Turn(ctx context.Context, req *message.TurnRequest) (*message.TurnResult, error) {
	start := time.Now()

	if !req.HasAudio() && strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: request has no audio and no text", transport.ErrInvalidRequest)
	}

	id := req.SessionID
	if id == "" {
		info, err := d.Open(ctx, &message.OpenRequest{Language: req.Language})
		if err != nil {
			return nil, err
		}
		id = info.SessionID
	}

	respMode := d.resolveResponseMode(req.ResponseMode)
	logger := slog.With("session_id", id)
	logger.Info("turn started", "response_mode", respMode, "audio", req.HasAudio())

	result := &message.TurnResult{SessionID: id}
	err := d.registry.With(id, func(s *session.Session) error {
		d.run(ctx, logger, s, req, respMode, result)
		result.Language = s.ActiveLanguage()
		result.Voice = s.VoiceForActiveLanguage()
		result.Turns = s.Len()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("turn complete", "duration", time.Since(start), "stage", result.Stage, "turns", result.Turns)
	return result, nil
}

// run executes the pipeline with exclusive access to s.
func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, s *session.Session, req *message.TurnRequest, respMode message.ResponseMode, result *message.TurnResult) {
	// Step 1: Transcribe audio in the session's current locale.
	text := req.Text
	if req.HasAudio() {
		lang := speech.LanguageCode(s.Locale())
		logger.Debug("transcribing audio", "content_type", req.ContentType, "bytes", len(req.Audio), "language", lang)
		res, err := d.transcriber.Transcribe(ctx, req.Audio, req.ContentType, interpreter.TranscribeOpts{Language: lang})
		if err != nil {
			d.fail(logger, result, StageRecognition, fmt.Errorf("%w: %w", speech.ErrServiceUnavailable, err))
			return
		}
		text = strings.TrimSpace(res.Text)
		result.Transcript = text
		if text == "" {
			d.fail(logger, result, StageRecognition, speech.ErrUnintelligible)
			return
		}
	}

	// Step 2: Commands are handled locally, without the model.
	cmd := command.Parse(text)
	if cmd.Kind == command.KindSwitchLanguage {
		outcome := s.RequestLanguageSwitch(cmd.Argument)
		d.metrics.RecordSwitch(outcome.Accepted)
		result.Command = cmd.Kind.String()
		result.Accepted = outcome.Accepted
		if wantText(respMode) {
			result.ResponseText = outcome.Message
		}
		logger.Info("language switch", "requested", cmd.Argument, "accepted", outcome.Accepted)
		return
	}

	// Step 3: Ask the model.
	start := time.Now()
	reply, err := s.SubmitUserTurn(ctx, cmd.Argument)
	d.metrics.RecordTurn(err, time.Since(start))
	if err != nil {
		d.fail(logger, result, StageInference, err)
		return
	}
	if wantText(respMode) {
		result.ResponseText = reply
	}

	// Step 4: Synthesize with the voice of the (possibly new) active language.
	if !wantAudio(respMode) || d.synthesizer == nil {
		return
	}
	voice := s.VoiceForActiveLanguage()
	logger.Debug("synthesizing response", "voice", voice, "text_length", len(reply))
	synth, err := d.synthesizer.Synthesize(ctx, reply, tts.SynthesizeOpts{Language: s.ActiveLanguage(), Voice: voice})
	if err != nil {
		d.fail(logger, result, StageSynthesis, fmt.Errorf("%w: %w", tts.ErrServiceError, err))
		return
	}
	result.SetResponseAudioBytes(synth.Audio)
	result.ResponseContentType = synth.ContentType
	logger.Info("synthesis complete", "audio_bytes", len(synth.Audio))
}

func (d *Dispatcher) fail(logger *slog.Logger, result *message.TurnResult, stage string, err error) {
	d.metrics.RecordFailure(stage)
	result.Stage = stage
	result.Error = err.Error()
	if errors.Is(err, context.Canceled) {
		logger.Info("turn canceled", "stage", stage)
		return
	}
	logger.Error("turn failed", "stage", stage, "error", err)
}
