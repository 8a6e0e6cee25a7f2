package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/tts"
)

func TestSynthesize(t *testing.T) {
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("ID3"))
	}))
	defer srv.Close()

	s := New(config.OpenAITTS{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := s.Synthesize(context.Background(), "hola", tts.SynthesizeOpts{Voice: "nova"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.Model != "tts-1" || got.Voice != "nova" || got.Input != "hola" || got.ResponseFormat != "mp3" {
		t.Errorf("request = %+v", got)
	}
	if string(res.Audio) != "ID3" || res.Ext() != ".mp3" {
		t.Errorf("result = %+v", res)
	}
}

func TestSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(config.OpenAITTS{BaseURL: srv.URL})
	if _, err := s.Synthesize(context.Background(), "hola", tts.SynthesizeOpts{}); err == nil {
		t.Fatal("expected error")
	}
}
