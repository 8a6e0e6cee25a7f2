// Package message defines the core data types flowing through parley:
// conversation turns and the request/result envelopes used by transports.
package message

import (
	"encoding/base64"
)

// Role identifies who produced a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message unit in a conversation. Turns are immutable once
// appended to a transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ResponseMode controls what natural-language output a remote caller wants.
// The caller declares desired output in the request body, and the dispatcher
// populates or omits result fields accordingly.
type ResponseMode string

const (
	// ResponseModeNone suppresses the reply; only session state is returned.
	ResponseModeNone ResponseMode = "none"

	// ResponseModeText returns the reply text.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio returns synthesized audio only (no text).
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio returns both text and synthesized audio.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// TurnRequest is one user turn arriving from a transport.
type TurnRequest struct {
	// SessionID selects the conversation. Empty opens a new session.
	SessionID string `json:"session_id,omitempty"`

	// Text is the typed (or pre-transcribed) prompt.
	Text string `json:"text,omitempty"`

	// Audio is a raw spoken prompt. Nil if the request is text-only.
	Audio []byte `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// Language selects the initial language when a new session is opened.
	Language string `json:"language,omitempty"`

	// ResponseMode defaults to "text" when TTS is disabled, "text+audio" otherwise.
	ResponseMode ResponseMode `json:"response_mode,omitempty"`
}

// HasAudio returns true if the request carries an audio payload.
func (r *TurnRequest) HasAudio() bool {
	return len(r.Audio) > 0
}

// TurnResult is the outcome of processing a TurnRequest.
type TurnResult struct {
	SessionID string `json:"session_id"`

	// Transcript is the recognized text when the request carried audio.
	Transcript string `json:"transcript,omitempty"`

	// Command is "switch_language" when the prompt was a language command.
	Command string `json:"command,omitempty"`

	// Accepted reports the outcome of a language switch.
	Accepted bool `json:"accepted,omitempty"`

	// Language is the active language after the turn.
	Language string `json:"language"`

	// Voice is the synthesis voice for the active language.
	Voice string `json:"voice"`

	// Turns is the transcript length after the turn.
	Turns int `json:"turns"`

	// ResponseText is the assistant reply, or the switch confirmation/rejection.
	ResponseText string `json:"response_text,omitempty"`

	// ResponseAudio is base64-encoded synthesized audio.
	ResponseAudio string `json:"response_audio,omitempty"`

	// ResponseContentType is the MIME type of ResponseAudio (e.g., "audio/wav").
	ResponseContentType string `json:"response_content_type,omitempty"`

	// Stage names the failing stage (recognition, inference, synthesis).
	Stage string `json:"stage,omitempty"`

	// Error is set if processing failed at any stage.
	Error string `json:"error,omitempty"`
}

// SetResponseAudioBytes base64-encodes raw audio bytes into ResponseAudio.
func (r *TurnResult) SetResponseAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.ResponseAudio = base64.StdEncoding.EncodeToString(audio)
	}
}

// SessionInfo describes a remote session.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
	Turns     int    `json:"turns"`
}

// TranscriptRequest asks for the turns of a session.
type TranscriptRequest struct {
	SessionID string `json:"session_id"`
}

// TranscriptResult lists the turns of a session.
type TranscriptResult struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
}

// OpenRequest opens a new session.
type OpenRequest struct {
	Language string `json:"language,omitempty"`
}

// CloseRequest drops a session.
type CloseRequest struct {
	SessionID string `json:"session_id"`
}

// CloseResult acknowledges a closed session.
type CloseResult struct {
	SessionID string `json:"session_id"`
}
