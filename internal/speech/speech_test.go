package speech

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/nadzzz/parley/internal/interpreter"
)

type fakeRecorder struct {
	audio []byte
	err   error
}

func (f *fakeRecorder) Record(context.Context) ([]byte, string, error) {
	return f.audio, "audio/wav", f.err
}

type fakeTranscriber struct {
	text string
	err  error
	opts interpreter.TranscribeOpts
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string, opts interpreter.TranscribeOpts) (*interpreter.TranscribeResult, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &interpreter.TranscribeResult{Text: f.text}, nil
}

func TestListen(t *testing.T) {
	tr := &fakeTranscriber{text: "  change language to thai  "}
	r := NewRecognizer(&fakeRecorder{audio: []byte("RIFF")}, tr)

	text, err := r.Listen(context.Background(), "th-TH")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "change language to thai" {
		t.Errorf("text = %q", text)
	}
	if tr.opts.Language != "th" {
		t.Errorf("language hint = %q, want th", tr.opts.Language)
	}
}

func TestListenFailures(t *testing.T) {
	tests := []struct {
		name     string
		recorder *fakeRecorder
		trans    *fakeTranscriber
		want     error
	}{
		{"recorder fails", &fakeRecorder{err: errors.New("no mic")}, &fakeTranscriber{}, ErrServiceUnavailable},
		{"empty recording", &fakeRecorder{}, &fakeTranscriber{}, ErrUnintelligible},
		{"service error", &fakeRecorder{audio: []byte("x")}, &fakeTranscriber{err: errors.New("503")}, ErrServiceUnavailable},
		{"nothing recognized", &fakeRecorder{audio: []byte("x")}, &fakeTranscriber{text: "   "}, ErrUnintelligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecognizer(tt.recorder, tt.trans).Listen(context.Background(), "en-US")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"en-US":       "en",
		"th-TH":       "th",
		"yue-Hant-HK": "yue",
		"zh_CN":       "zh",
		"FR":          "fr",
		"":            "",
	}
	for in, want := range tests {
		if got := LanguageCode(in); got != want {
			t.Errorf("LanguageCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCommandRecorder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	rec := NewCommandRecorder([]string{"sh", "-c", "printf 'RIFF%s' \"$1\" > \"$0\"", "{path}", "{seconds}"}, 3)
	audio, ct, err := rec.Record(context.Background())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if string(audio) != "RIFF3" || ct != "audio/wav" {
		t.Errorf("audio = %q, ct = %q", audio, ct)
	}
}
