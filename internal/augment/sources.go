package augment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/nadzzz/parley/internal/runner"
)

// Clipboard reads the system clipboard.
type Clipboard struct {
	read func() (string, error)
}

// NewClipboard returns a source backed by the system clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Fetch returns the clipboard text. An empty clipboard is an error.
func (c *Clipboard) Fetch(_ context.Context, _ string) (string, error) {
	read := c.read
	if read == nil {
		if clipboard.Unsupported {
			return "", errors.New("clipboard is not supported on this system")
		}
		read = clipboard.ReadAll
	}
	text, err := read()
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no clipboard text to copy")
	}
	return text, nil
}

// Captioner describes an image in text.
type Captioner interface {
	Caption(ctx context.Context, instruction string, image []byte, mimeType string) (string, error)
}

// Capture grabs an image with an external command and captions it.
type Capture struct {
	command   []string
	captioner Captioner
}

// NewCapture creates a capture source. The command must write a JPEG to
// "{path}".
func NewCapture(command []string, captioner Captioner) *Capture {
	return &Capture{command: command, captioner: captioner}
}

// Fetch captures an image and returns its caption for prompt.
func (c *Capture) Fetch(ctx context.Context, prompt string) (string, error) {
	dir, err := os.MkdirTemp("", "parley-capture-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "capture.jpg")
	if err := runner.Run(ctx, c.command, map[string]string{"path": path}); err != nil {
		return "", fmt.Errorf("capturing image: %w", err)
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	caption, err := c.captioner.Caption(ctx, VisionPrompt(prompt), img, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("captioning image: %w", err)
	}
	return caption, nil
}

// VisionPrompt is the instruction given to the captioner.
func VisionPrompt(prompt string) string {
	return "You are the vision analysis AI that provides semantic meaning from images to provide context " +
		"to send to another AI that will create a response to the user. Do not respond as the AI assistant " +
		"to the user. Instead take the user prompt input and try to extract all meaning from the photo " +
		"relevant to the user prompt. Then generate as much objective data about the image for the AI " +
		"assistant who will respond to the user. \nUSER PROMPT: " + prompt
}
