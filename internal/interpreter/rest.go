package interpreter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const errorBodyLimit = 2048

// AudioForm builds a multipart body holding the audio under fileField plus
// the non-empty text fields. It returns the body and its content type.
func AudioForm(fileField string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile(fileField, "audio"+ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// Do sends req and returns the body of a 200 response. Any other status is
// returned as an *APIError.
func Do(client *http.Client, req *http.Request, backend, op string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s request: %w", backend, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &APIError{Backend: backend, Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}
	return data, nil
}

// DecodeTranscription parses the {"text", "language"} shape shared by
// Whisper-style services.
func DecodeTranscription(data []byte) (*TranscribeResult, error) {
	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}
	return &TranscribeResult{Text: strings.TrimSpace(out.Text), Language: out.Language}, nil
}
