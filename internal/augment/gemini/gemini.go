// Package gemini implements augment.Captioner with Google's Gemini vision
// models through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/nadzzz/parley/internal/config"
)

const defaultModel = "gemini-1.5-flash-latest"

// Captioner sends an instruction and an image to Gemini and returns the text.
type Captioner struct {
	client *genai.Client
	model  string
	gen    *genai.GenerateContentConfig
}

// New creates a Gemini captioner. baseURL overrides the API endpoint and is
// normally empty.
func New(ctx context.Context, cfg config.GeminiConfig, baseURL string) (*Captioner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Captioner{client: client, model: model, gen: generationConfig(cfg)}, nil
}

// generationConfig applies the sampling settings and disables safety blocking
// so that screenshots of arbitrary content are still described.
func generationConfig(cfg config.GeminiConfig) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		TopP:            genai.Ptr(cfg.TopP),
		TopK:            genai.Ptr(cfg.TopK),
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	for _, cat := range []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	} {
		gc.SafetySettings = append(gc.SafetySettings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}
	return gc
}

// Caption describes image according to instruction.
func (c *Captioner) Caption(ctx context.Context, instruction string, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	slog.Debug("gemini caption", "model", c.model, "image_bytes", len(image))
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.gen)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}
