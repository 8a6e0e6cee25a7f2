package azure

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/tts"
)

func TestSynthesize(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "key" {
			t.Errorf("key = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/ssml+xml" {
			t.Errorf("content type = %q", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != "riff-24khz-16bit-mono-pcm" {
			t.Errorf("format = %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	s, err := New(config.AzureConfig{SubscriptionKey: "key", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Synthesize(context.Background(), "Fish & chips <3", tts.SynthesizeOpts{Voice: "th-TH-PremwadeeNeural"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(res.Audio) != "RIFFdata" || res.ContentType != "audio/wav" {
		t.Errorf("result = %+v", res)
	}
	for _, want := range []string{
		`xml:lang="th-TH"`,
		`<voice name="th-TH-PremwadeeNeural">`,
		`Fish &amp; chips &lt;3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("ssml %q missing %q", body, want)
		}
	}
}

func TestSynthesizeDefaultVoice(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	s, _ := New(config.AzureConfig{Endpoint: srv.URL, OutputFormat: "audio-24khz-48kbitrate-mono-mp3"})
	res, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(body, defaultVoice) {
		t.Errorf("ssml = %q", body)
	}
	if res.ContentType != "audio/mpeg" {
		t.Errorf("content type = %q", res.ContentType)
	}
}

func TestSynthesizeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, _ := New(config.AzureConfig{Endpoint: srv.URL})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRequiresRegion(t *testing.T) {
	if _, err := New(config.AzureConfig{}); err == nil {
		t.Fatal("expected error without region or endpoint")
	}
	s, err := New(config.AzureConfig{Region: "eastus"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.endpoint != "https://eastus.tts.speech.microsoft.com/cognitiveservices/v1" {
		t.Errorf("endpoint = %s", s.endpoint)
	}
}

func TestVoiceLocale(t *testing.T) {
	tests := map[string]string{
		"th-TH-PremwadeeNeural": "th-TH",
		"zh-HK-HiuMaanNeural":   "zh-HK",
		"custom":                "en-US",
	}
	for voice, want := range tests {
		if got := voiceLocale(voice); got != want {
			t.Errorf("voiceLocale(%q) = %q, want %q", voice, got, want)
		}
	}
}

func TestBuildSSMLEscapesVoiceAndText(t *testing.T) {
	voice := `en-US-"Odd"<Voice>`
	text := `5 < 6 & "quotes"`
	doc, err := buildSSML(text, voice)
	if err != nil {
		t.Fatalf("buildSSML: %v", err)
	}

	var parsed struct {
		Lang  string `xml:"lang,attr"`
		Voice struct {
			Name string `xml:"name,attr"`
			Text string `xml:",chardata"`
		} `xml:"voice"`
	}
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("ssml is not well-formed: %v\n%s", err, doc)
	}
	if parsed.Voice.Name != voice || parsed.Voice.Text != text || parsed.Lang != "en-US" {
		t.Errorf("parsed = %+v", parsed)
	}
}
