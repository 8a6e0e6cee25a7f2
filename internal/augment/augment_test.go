package augment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nadzzz/parley/internal/message"
)

type fakeModel struct {
	reply string
	err   error
	got   []message.Turn
}

func (f *fakeModel) Complete(_ context.Context, transcript []message.Turn) (string, error) {
	f.got = transcript
	return f.reply, f.err
}

type fakeSource struct {
	text string
	err  error
}

func (f fakeSource) Fetch(context.Context, string) (string, error) { return f.text, f.err }

func TestRoute(t *testing.T) {
	tests := []struct {
		reply string
		want  Action
	}{
		{"take screenshot", ActionScreenshot},
		{`"capture webcam"`, ActionWebcam},
		{"Extract Clipboard.", ActionClipboard},
		{"None", ActionNone},
		{"I think you should look at the weather", ActionNone},
	}
	sources := map[Action]Source{
		ActionClipboard:  fakeSource{},
		ActionScreenshot: fakeSource{},
		ActionWebcam:     fakeSource{},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			model := &fakeModel{reply: tt.reply}
			got, err := NewRouter(model, sources).Route(context.Background(), "what is on my screen?")
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if got != tt.want {
				t.Errorf("action = %q, want %q", got, tt.want)
			}
			if len(model.got) != 2 || model.got[0].Role != message.RoleSystem || model.got[1].Text != "what is on my screen?" {
				t.Errorf("routing transcript = %+v", model.got)
			}
		})
	}
}

func TestRouteWithoutSourceIsNone(t *testing.T) {
	r := NewRouter(&fakeModel{reply: "capture webcam"}, map[Action]Source{ActionClipboard: fakeSource{}})
	got, err := r.Route(context.Background(), "how do I look?")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got != ActionNone {
		t.Errorf("action = %q", got)
	}
}

func TestRouteModelFailure(t *testing.T) {
	r := NewRouter(&fakeModel{err: errors.New("503")}, nil)
	if _, err := r.Route(context.Background(), "hi"); !errors.Is(err, ErrContextUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestAugment(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		src   map[Action]Source
		want  string
	}{
		{
			name:  "image",
			reply: "take screenshot",
			src:   map[Action]Source{ActionScreenshot: fakeSource{text: "a chart"}},
			want:  "USER PROMPT: explain this\n\n    IMAGE CONTEXT: a chart",
		},
		{
			name:  "clipboard",
			reply: "extract clipboard",
			src:   map[Action]Source{ActionClipboard: fakeSource{text: "func main() {}"}},
			want:  "explain this\n\n CLIPBOARD CONTENT: func main() {}",
		},
		{
			name:  "none",
			reply: "None",
			src:   map[Action]Source{ActionClipboard: fakeSource{text: "ignored"}},
			want:  "explain this",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewRouter(&fakeModel{reply: tt.reply}, tt.src).Augment(context.Background(), "explain this")
			if err != nil {
				t.Fatalf("Augment: %v", err)
			}
			if got != tt.want {
				t.Errorf("prompt = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAugmentFetchFailureKeepsPrompt(t *testing.T) {
	r := NewRouter(&fakeModel{reply: "capture webcam"}, map[Action]Source{
		ActionWebcam: fakeSource{err: errors.New("no device")},
	})
	got, err := r.Augment(context.Background(), "how do I look?")
	if !errors.Is(err, ErrContextUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got != "how do I look?" {
		t.Errorf("prompt = %q", got)
	}
}

func TestActionStatus(t *testing.T) {
	if ActionScreenshot.Status() != "Taking screenshot..." || ActionNone.Status() != "" {
		t.Error("unexpected status text")
	}
}

func TestClipboard(t *testing.T) {
	c := &Clipboard{read: func() (string, error) { return "copied", nil }}
	got, err := c.Fetch(context.Background(), "")
	if err != nil || got != "copied" {
		t.Fatalf("Fetch = %q, %v", got, err)
	}

	empty := &Clipboard{read: func() (string, error) { return "  ", nil }}
	if _, err := empty.Fetch(context.Background(), ""); err == nil {
		t.Error("expected error for empty clipboard")
	}

	broken := &Clipboard{read: func() (string, error) { return "", errors.New("no xclip") }}
	if _, err := broken.Fetch(context.Background(), ""); err == nil {
		t.Error("expected read error")
	}
}

type fakeCaptioner struct {
	instruction string
	image       []byte
	mime        string
}

func (f *fakeCaptioner) Caption(_ context.Context, instruction string, image []byte, mime string) (string, error) {
	f.instruction, f.image, f.mime = instruction, image, mime
	return "a cat on a keyboard", nil
}

func TestCapture(t *testing.T) {
	capt := &fakeCaptioner{}
	// The shell writes a fake JPEG to the substituted path.
	c := NewCapture([]string{"sh", "-c", "printf jpeg > {path}"}, capt)

	got, err := c.Fetch(context.Background(), "what is this?")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != "a cat on a keyboard" {
		t.Errorf("caption = %q", got)
	}
	if string(capt.image) != "jpeg" || capt.mime != "image/jpeg" {
		t.Errorf("captioner got %q %q", capt.image, capt.mime)
	}
	if !strings.HasSuffix(capt.instruction, "USER PROMPT: what is this?") {
		t.Errorf("instruction = %q", capt.instruction)
	}
}

func TestCaptureCommandFailure(t *testing.T) {
	c := NewCapture([]string{"sh", "-c", "exit 3"}, &fakeCaptioner{})
	if _, err := c.Fetch(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
