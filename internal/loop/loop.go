// Package loop runs the interactive conversation on a terminal.
//
// Each iteration reads one prompt (typed, or recognized from speech in the
// active language), handles language commands locally, optionally augments
// the prompt with clipboard or image context, asks the model, prints the
// reply and speaks it. Failures are reported with the failing stage and the
// loop carries on; it ends only at end of input or when ctx is cancelled.
package loop

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/parley/internal/augment"
	"github.com/nadzzz/parley/internal/command"
	"github.com/nadzzz/parley/internal/metrics"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/speech"
	"github.com/nadzzz/parley/internal/tts"
)

// Stage names used in failure reports and metrics.
const (
	StageRecognition = "recognition"
	StageContext     = "context"
	StageInference   = "inference"
	StageSynthesis   = "synthesis"
)

// Mode is the input mode.
type Mode int

const (
	ModeAsk Mode = iota
	ModeText
	ModeVoice
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeVoice:
		return "voice"
	default:
		return "ask"
	}
}

// ParseMode accepts "text"/"1" and "voice"/"2". An empty string means ask.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ModeAsk, nil
	case "1", "text":
		return ModeText, nil
	case "2", "voice":
		return ModeVoice, nil
	default:
		return ModeAsk, fmt.Errorf("unknown input mode %q", s)
	}
}

// Listener recognizes one spoken prompt. speech.Recognizer satisfies it.
type Listener interface {
	Listen(ctx context.Context, locale string) (string, error)
}

// Speaker speaks a reply. tts.Speaker satisfies it.
type Speaker interface {
	Speak(ctx context.Context, text, language, voice string) error
}

// Augmenter adds context to prompts. augment.Router satisfies it.
type Augmenter interface {
	Route(ctx context.Context, prompt string) (augment.Action, error)
	Apply(ctx context.Context, action augment.Action, prompt string) (string, error)
}

// Options configures a Loop. NewSession and Languages are required; the
// collaborators are optional except Listener in voice mode.
type Options struct {
	Mode            Mode
	Language        string // initial language; asked for in voice mode when empty
	DefaultLanguage string
	Languages       *session.Languages
	NewSession      session.Factory

	Listener  Listener
	Speaker   Speaker
	Augmenter Augmenter
	Metrics   *metrics.Metrics
}

// Loop is the interactive turn loop.
type Loop struct {
	opts  Options
	in    io.Reader
	out   io.Writer
	lines chan string
	sess  *session.Session
}

// New creates a Loop reading from in and writing user-facing output to out.
func New(opts Options, in io.Reader, out io.Writer) (*Loop, error) {
	if opts.NewSession == nil {
		return nil, errors.New("loop: no session factory")
	}
	if opts.Languages == nil {
		return nil, errors.New("loop: no language table")
	}
	if opts.Mode == ModeVoice && opts.Listener == nil {
		return nil, errors.New("loop: voice mode needs a listener")
	}
	return &Loop{opts: opts, in: in, out: out}, nil
}

// Session returns the running session, or nil before Run has started it.
func (l *Loop) Session() *session.Session { return l.sess }

// Run shows the startup menus and then processes turns until the input ends
// (returns nil) or ctx is cancelled (returns ctx.Err()).
func (l *Loop) Run(ctx context.Context) error {
	l.lines = make(chan string)
	done := make(chan struct{})
	defer close(done)
	go l.scan(done)

	l.printf("Press Ctrl+C at any time to exit the program.\n")

	mode := l.opts.Mode
	if mode == ModeAsk {
		var err error
		if mode, err = l.selectMode(ctx); err != nil {
			return endOf(err)
		}
	}
	if mode == ModeVoice && l.opts.Listener == nil {
		return errors.New("loop: voice mode needs a listener")
	}

	language := l.opts.Language
	if language == "" && mode == ModeVoice {
		var err error
		if language, err = l.selectLanguage(ctx); err != nil {
			return endOf(err)
		}
	}
	if language == "" {
		language = l.opts.DefaultLanguage
	}

	sess, err := l.opts.NewSession(language)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	l.sess = sess
	slog.Info("conversation started", "mode", mode, "language", sess.ActiveLanguage(), "locale", sess.Locale())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var input string
		if mode == ModeVoice {
			input, err = l.listen(ctx)
		} else {
			input, err = l.readLine(ctx, "USER: ")
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return endOf(err)
			}
			l.fail(StageRecognition, err)
			continue
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		l.handle(ctx, input)
	}
}

// handle processes one prompt or command.
func (l *Loop) handle(ctx context.Context, input string) {
	cmd := command.Parse(input)
	if cmd.Kind == command.KindSwitchLanguage {
		outcome := l.sess.RequestLanguageSwitch(cmd.Argument)
		l.opts.Metrics.RecordSwitch(outcome.Accepted)
		l.printf("SYSTEM: %s\n", outcome.Message)
		return
	}

	prompt := l.augment(ctx, cmd.Argument)

	start := time.Now()
	reply, err := l.sess.SubmitUserTurn(ctx, prompt)
	l.opts.Metrics.RecordTurn(err, time.Since(start))
	if err != nil {
		l.fail(StageInference, err)
		return
	}
	l.printf("AI: %s\n", reply)

	if l.opts.Speaker == nil {
		return
	}
	if err := l.opts.Speaker.Speak(ctx, reply, l.sess.ActiveLanguage(), l.sess.VoiceForActiveLanguage()); err != nil {
		l.fail(StageSynthesis, err)
	}
}

// augment returns the prompt with context attached, or the bare prompt when
// no context applies or fetching it failed.
func (l *Loop) augment(ctx context.Context, prompt string) string {
	if l.opts.Augmenter == nil {
		return prompt
	}
	action, err := l.opts.Augmenter.Route(ctx, prompt)
	if err != nil {
		l.fail(StageContext, err)
		return prompt
	}
	if action == augment.ActionNone {
		return prompt
	}
	l.printf("SYSTEM: %s\n", action.Status())
	augmented, err := l.opts.Augmenter.Apply(ctx, action, prompt)
	if err != nil {
		l.fail(StageContext, err)
		return prompt
	}
	return augmented
}

// listen waits for Enter, then recognizes speech in the active locale.
func (l *Loop) listen(ctx context.Context) (string, error) {
	if _, err := l.readLine(ctx, "Press Enter to start listening..."); err != nil {
		return "", err
	}
	l.printf("Listening... Speak now!\n")
	text, err := l.opts.Listener.Listen(ctx, l.sess.Locale())
	if err != nil {
		return "", err
	}
	l.printf("USER: %s\n", text)
	return text, nil
}

func (l *Loop) selectMode(ctx context.Context) (Mode, error) {
	l.printf("Input modes:\n1. Text\n2. Voice\n")
	n, err := l.choose(ctx, "Select an input mode number: ", 2)
	if err != nil {
		return ModeAsk, err
	}
	return Mode(n), nil
}

func (l *Loop) selectLanguage(ctx context.Context) (string, error) {
	names := l.opts.Languages.Names()
	l.printf("Available languages:\n")
	for i, name := range names {
		l.printf("%d. %s\n", i+1, session.DisplayName(name))
	}
	n, err := l.choose(ctx, "Select a language number: ", len(names))
	if err != nil {
		return "", err
	}
	name := names[n-1]
	l.printf("Selected language: %s\n", session.DisplayName(name))
	return name, nil
}

// choose reads a number in [1, count], re-prompting on bad input.
func (l *Loop) choose(ctx context.Context, prompt string, count int) (int, error) {
	for {
		line, err := l.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			l.printf("Please enter a valid number.\n")
			continue
		}
		if n < 1 || n > count {
			l.printf("Invalid choice. Please try again.\n")
			continue
		}
		return n, nil
	}
}

// fail reports a failed stage to the user and records it.
func (l *Loop) fail(stage string, err error) {
	l.opts.Metrics.RecordFailure(stage)
	slog.Debug("stage failed", "stage", stage, "error", err)
	l.printf("SYSTEM: %s failed: %s\n", stage, describe(err))
}

// describe turns known failures into short user-facing text.
func describe(err error) string {
	switch {
	case errors.Is(err, speech.ErrUnintelligible):
		return "could not understand the audio"
	case errors.Is(err, tts.ErrCanceled):
		return "playback canceled"
	default:
		return err.Error()
	}
}

func (l *Loop) readLine(ctx context.Context, prompt string) (string, error) {
	l.printf("%s", prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// scan feeds input lines to the loop so reads can be abandoned on cancel.
func (l *Loop) scan(done <-chan struct{}) {
	defer close(l.lines)
	sc := bufio.NewScanner(l.in)
	for sc.Scan() {
		select {
		case l.lines <- sc.Text():
		case <-done:
			return
		}
	}
}

func (l *Loop) printf(format string, args ...any) {
	fmt.Fprintf(l.out, format, args...)
}

// endOf maps end of input to a clean exit.
func endOf(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
