// Package runner executes the external helper programs parley delegates
// device work to (audio capture, playback, screen and webcam capture).
//
// Commands are configured as argv templates; placeholders such as "{path}"
// are substituted before execution. No shell is involved.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when a template is empty.
var ErrNoCommand = errors.New("no command configured")

// Expand substitutes "{name}" placeholders in every argument.
func Expand(template []string, vars map[string]string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		for k, v := range vars {
			arg = strings.ReplaceAll(arg, "{"+k+"}", v)
		}
		out[i] = arg
	}
	return out
}

// Run expands and executes a command template, returning an error that
// includes the tail of stderr when the command fails.
func Run(ctx context.Context, template []string, vars map[string]string) error {
	if len(template) == 0 {
		return ErrNoCommand
	}
	argv := Expand(template, vars)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = &stderr

	slog.Debug("running helper", "command", argv[0], "args", len(argv)-1)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}
