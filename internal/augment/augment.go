// Package augment enriches a prompt with context the model cannot see on its
// own: clipboard text, a screenshot or a webcam frame. Images are turned into
// text by a vision Captioner before they reach the conversation.
//
// A Router asks the language model which source, if any, suits the prompt.
package augment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadzzz/parley/internal/message"
)

// ErrContextUnavailable means routing or fetching context failed. Callers
// fall back to the bare prompt.
var ErrContextUnavailable = errors.New("prompt context unavailable")

// Action is a context source the router can select.
type Action string

const (
	ActionNone       Action = "None"
	ActionClipboard  Action = "extract clipboard"
	ActionScreenshot Action = "take screenshot"
	ActionWebcam     Action = "capture webcam"
)

// Status is the progress line shown while the action runs.
func (a Action) Status() string {
	switch a {
	case ActionClipboard:
		return "Extracting clipboard text..."
	case ActionScreenshot:
		return "Taking screenshot..."
	case ActionWebcam:
		return "Capturing webcam..."
	default:
		return ""
	}
}

// isImage reports whether the action yields image context.
func (a Action) isImage() bool {
	return a == ActionScreenshot || a == ActionWebcam
}

// Source fetches context for a prompt.
type Source interface {
	Fetch(ctx context.Context, prompt string) (string, error)
}

// Completer is the model used for routing decisions.
type Completer interface {
	Complete(ctx context.Context, transcript []message.Turn) (string, error)
}

const routerPrompt = "You are an AI function calling model. You will determine whether extracting the users clipboard content, " +
	"taking a screenshot, capturing the webcam or calling no functions is best for a voice assistant to respond " +
	"to the users prompt. The webcam can be assumed to be a normal laptop webcam facing the user. You will " +
	"respond with only one selection from this list: [\"extract clipboard\", \"take screenshot\", \"capture webcam\", \"None\"] \n" +
	"Do not respond with anything but the most logical selection from that list with no explanations. Format the " +
	"function call name exactly as I listed. "

// Router picks a context source for each prompt and formats the result.
type Router struct {
	model   Completer
	sources map[Action]Source
}

// NewRouter creates a Router. Actions without a source are treated as None.
func NewRouter(model Completer, sources map[Action]Source) *Router {
	return &Router{model: model, sources: sources}
}

// Route asks the model which action fits the prompt. The conversation
// transcript is not involved: each decision is a fresh two-turn exchange.
func (r *Router) Route(ctx context.Context, prompt string) (Action, error) {
	reply, err := r.model.Complete(ctx, []message.Turn{
		{Role: message.RoleSystem, Text: routerPrompt},
		{Role: message.RoleUser, Text: prompt},
	})
	if err != nil {
		return ActionNone, fmt.Errorf("%w: routing: %w", ErrContextUnavailable, err)
	}
	action := parseAction(reply)
	if _, ok := r.sources[action]; !ok {
		action = ActionNone
	}
	slog.Debug("context routed", "action", string(action), "reply", reply)
	return action, nil
}

// Apply fetches context for action and folds it into the prompt. ActionNone
// returns the prompt unchanged.
func (r *Router) Apply(ctx context.Context, action Action, prompt string) (string, error) {
	src, ok := r.sources[action]
	if action == ActionNone || !ok {
		return prompt, nil
	}
	extra, err := src.Fetch(ctx, prompt)
	if err != nil {
		return prompt, fmt.Errorf("%w: %s: %w", ErrContextUnavailable, action, err)
	}
	if action.isImage() {
		return FormatImageContext(prompt, extra), nil
	}
	return FormatClipboard(prompt, extra), nil
}

// Augment routes and applies in one step.
func (r *Router) Augment(ctx context.Context, prompt string) (string, error) {
	action, err := r.Route(ctx, prompt)
	if err != nil {
		return prompt, err
	}
	return r.Apply(ctx, action, prompt)
}

// FormatImageContext attaches a caption to a prompt.
func FormatImageContext(prompt, caption string) string {
	return fmt.Sprintf("USER PROMPT: %s\n\n    IMAGE CONTEXT: %s", prompt, caption)
}

// FormatClipboard attaches clipboard text to a prompt.
func FormatClipboard(prompt, paste string) string {
	return fmt.Sprintf("%s\n\n CLIPBOARD CONTENT: %s", prompt, paste)
}

// parseAction finds the first known action mentioned in a model reply.
// Models sometimes quote or decorate their answer, so this is a substring
// match checked in a fixed order.
func parseAction(reply string) Action {
	r := strings.ToLower(reply)
	for _, a := range []Action{ActionScreenshot, ActionWebcam, ActionClipboard} {
		if strings.Contains(r, string(a)) {
			return a
		}
	}
	return ActionNone
}
