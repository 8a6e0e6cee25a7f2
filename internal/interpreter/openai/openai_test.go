package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/interpreter"
	"github.com/nadzzz/parley/internal/message"
)

func newTestInterpreter(url string) *Interpreter {
	return New(config.OpenAIConfig{
		APIKey:             "sk-test",
		BaseURL:            url + "/",
		TranscriptionModel: "whisper-1",
		CompletionModel:    "llama3-70b-8192",
	}, interpreter.GenerationOpts{Temperature: 0.7, MaxTokens: 256})
}

func TestComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Bonjour!"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`)
	}))
	defer srv.Close()

	reply, err := newTestInterpreter(srv.URL).Complete(context.Background(), []message.Turn{
		{Role: message.RoleSystem, Text: "sys"},
		{Role: message.RoleUser, Text: "Hello"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Bonjour!" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "llama3-70b-8192" || got.MaxTokens != 256 || got.Temperature != 0.7 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "Hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestInterpreter(srv.URL).Complete(context.Background(), []message.Turn{{Role: message.RoleUser, Text: "hi"}})
	var apiErr *interpreter.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !apiErr.IsRateLimited() || apiErr.Op != "chat" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	if _, err := newTestInterpreter(srv.URL).Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.FormValue("language") != "th" || r.FormValue("model") != "whisper-1" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		if hdr.Filename != "audio.wav" {
			t.Errorf("filename = %s", hdr.Filename)
		}
		_, _ = io.WriteString(w, `{"text":" สวัสดี ","language":"thai"}`)
	}))
	defer srv.Close()

	res, err := newTestInterpreter(srv.URL).Transcribe(context.Background(), []byte("RIFF"), "audio/wav",
		interpreter.TranscribeOpts{Language: "th"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "สวัสดี" || res.Language != "thai" {
		t.Errorf("result = %+v", res)
	}
}
