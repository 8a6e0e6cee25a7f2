// Package session owns a single conversation: the transcript replayed to the
// model on every call, the active language, and the voice/locale lookup for
// that language.
//
// A Session is not safe for concurrent use. The interactive loop owns exactly
// one; remote transports go through a Registry, which serializes access per
// session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadzzz/parley/internal/message"
)

var (
	// ErrInferenceFailed wraps any failure of the model collaborator.
	ErrInferenceFailed = errors.New("inference failed")

	// ErrEmptyTurn is returned when a user turn has no text.
	ErrEmptyTurn = errors.New("empty user turn")
)

// Completer is the model inference collaborator. It receives the full
// transcript and returns a single assistant message.
type Completer interface {
	Complete(ctx context.Context, transcript []message.Turn) (string, error)
}

// SwitchOutcome is the result of a language switch request. A rejection is a
// normal outcome, not an error.
type SwitchOutcome struct {
	Accepted bool

	// Language is the canonical key on success, or the name as requested on
	// rejection.
	Language string

	// Message is a user-facing confirmation or rejection.
	Message string
}

// Session is the mutable run-time state of one conversation.
type Session struct {
	model      Completer
	languages  *Languages
	transcript []message.Turn
	active     string
}

// New creates a session whose transcript starts with the system instruction.
// initialLanguage must be present in the languages table.
func New(model Completer, languages *Languages, systemPrompt, initialLanguage string) (*Session, error) {
	if model == nil {
		return nil, fmt.Errorf("session: nil model")
	}
	if languages == nil {
		return nil, fmt.Errorf("session: nil language table")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("session: empty system prompt")
	}
	key, _, ok := languages.Lookup(initialLanguage)
	if !ok {
		return nil, fmt.Errorf("session: unsupported initial language %q", initialLanguage)
	}
	return &Session{
		model:      model,
		languages:  languages,
		transcript: []message.Turn{{Role: message.RoleSystem, Text: systemPrompt}},
		active:     key,
	}, nil
}

// SubmitUserTurn sends the transcript plus the new user turn to the model and
// returns the reply. The user and assistant turns are committed together, only
// once the model has answered; on failure the transcript is left unchanged so
// a retry does not duplicate the user turn.
func (s *Session) SubmitUserTurn(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyTurn
	}

	candidate := make([]message.Turn, len(s.transcript), len(s.transcript)+2)
	copy(candidate, s.transcript)
	candidate = append(candidate, message.Turn{Role: message.RoleUser, Text: text})

	reply, err := s.model.Complete(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInferenceFailed, err)
	}

	s.transcript = append(candidate, message.Turn{Role: message.RoleAssistant, Text: reply})
	slog.Debug("turn committed", "language", s.active, "turns", len(s.transcript))
	return reply, nil
}

// RequestLanguageSwitch changes the active language if name is configured.
// On success a system turn announcing the change is appended so the model
// sees it from now on. Repeating a successful switch leaves the active
// language unchanged but appends another announcement.
func (s *Session) RequestLanguageSwitch(name string) SwitchOutcome {
	key, _, ok := s.languages.Lookup(name)
	if !ok {
		requested := strings.TrimSpace(name)
		slog.Debug("language switch rejected", "requested", requested)
		msg := fmt.Sprintf("Unsupported language: %s", requested)
		if requested == "" {
			msg = "No language given."
		}
		return SwitchOutcome{Language: requested, Message: msg}
	}

	s.active = key
	display := DisplayName(key)
	s.transcript = append(s.transcript, message.Turn{
		Role: message.RoleSystem,
		Text: fmt.Sprintf("The user switched the conversation language to %s. From now on, respond only in %s.", display, display),
	})
	slog.Debug("language switched", "language", key)
	return SwitchOutcome{
		Accepted: true,
		Language: key,
		Message:  fmt.Sprintf("Language changed to %s.", display),
	}
}

// VoiceForActiveLanguage returns the voice configured for the active
// language, or the default voice when none is configured.
func (s *Session) VoiceForActiveLanguage() string {
	return s.languages.Voice(s.active)
}

// ActiveLanguage returns the canonical name of the active language.
func (s *Session) ActiveLanguage() string { return s.active }

// Locale returns the recognition locale of the active language.
func (s *Session) Locale() string {
	_, p, _ := s.languages.Lookup(s.active)
	return p.Locale
}

// Languages returns the profile table.
func (s *Session) Languages() *Languages { return s.languages }

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []message.Turn {
	out := make([]message.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Len returns the number of turns in the transcript.
func (s *Session) Len() int { return len(s.transcript) }
