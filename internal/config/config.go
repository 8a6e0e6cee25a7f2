// Package config handles loading and validating the parley configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSystemPrompt is the instruction every transcript starts with.
const DefaultSystemPrompt = "You are a multi-modal AI voice assistant. Your user may or may not have attached a photo for context " +
	"(either a screenshot or a webcam capture). Any photo has already been processed into a highly detailed " +
	"text prompt that will be attached to their transcribed voice prompt. Generate the most useful and " +
	"factual response possible, carefully considering all previous generated text in your response before " +
	"adding new tokens to the response. Do not expect or request images, just use the context if added. " +
	"Use all of the context of this conversation so your response is relevant to the conversation. Make " +
	"your responses clear and concise, avoiding any verbosity."

// Config is the root configuration for parley.
type Config struct {
	Session     SessionConfig             `mapstructure:"session"`
	Languages   map[string]LanguageConfig `mapstructure:"languages"`
	Interpreter InterpreterConfig         `mapstructure:"interpreter"`
	Speech      SpeechConfig              `mapstructure:"speech"`
	TTS         TTSConfig                 `mapstructure:"tts"`
	Augment     AugmentConfig             `mapstructure:"augment"`
	Server      ServerConfig              `mapstructure:"server"`
	Transports  TransportsConfig          `mapstructure:"transports"`
	Logging     LoggingConfig             `mapstructure:"logging"`
}

// SessionConfig holds conversation defaults.
type SessionConfig struct {
	SystemPrompt    string `mapstructure:"system_prompt"`
	DefaultLanguage string `mapstructure:"default_language"`
	DefaultVoice    string `mapstructure:"default_voice"` // used when a language has no voice

	// LanguageOrder is the menu order; unlisted languages follow alphabetically.
	LanguageOrder []string `mapstructure:"language_order"`
}

// LanguageConfig is one entry of the language table.
type LanguageConfig struct {
	Voice  string `mapstructure:"voice"`  // synthesis voice id (backend specific)
	Locale string `mapstructure:"locale"` // recognition locale, e.g. "th-TH"
}

// InterpreterConfig selects and configures the LLM backend.
type InterpreterConfig struct {
	Backend     string       `mapstructure:"backend"` // "openai" or "local"
	Temperature float64      `mapstructure:"temperature"`
	MaxTokens   int          `mapstructure:"max_tokens"`
	OpenAI      OpenAIConfig `mapstructure:"openai"`
	Local       LocalConfig  `mapstructure:"local"`
}

// OpenAIConfig holds settings for any OpenAI-compatible API (OpenAI, Groq,
// Azure gateways).
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	CompletionModel    string `mapstructure:"completion_model"`
}

// LocalConfig holds self-hosted LLM settings.
type LocalConfig struct {
	WhisperEndpoint string `mapstructure:"whisper_endpoint"`
	WhisperType     string `mapstructure:"whisper_type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	LLMEndpoint     string `mapstructure:"llm_endpoint"`
	LLMModel        string `mapstructure:"llm_model"` // Ollama model name (e.g., "llama3.2:1b")
	VADFilter       bool   `mapstructure:"vad_filter"`
}

// SpeechConfig configures voice input capture.
type SpeechConfig struct {
	RecordCommand []string `mapstructure:"record_command"` // "{path}" and "{seconds}" are substituted
	RecordSeconds int      `mapstructure:"record_seconds"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled       bool        `mapstructure:"enabled"`
	Backend       string      `mapstructure:"backend"` // "azure", "piper" or "openai"
	PlayerCommand []string    `mapstructure:"player_command"`
	Azure         AzureConfig `mapstructure:"azure"`
	Piper         PiperConfig `mapstructure:"piper"`
	OpenAI        OpenAITTS   `mapstructure:"openai"`
}

// AzureConfig holds Azure Speech settings.
type AzureConfig struct {
	SubscriptionKey string `mapstructure:"subscription_key"`
	Region          string `mapstructure:"region"`
	OutputFormat    string `mapstructure:"output_format"`
	Endpoint        string `mapstructure:"endpoint"` // overrides the regional endpoint
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all voices, set Endpoint.
// For per-language instances, set Endpoints which maps language names to
// individual Wyoming TCP endpoints. Endpoints takes precedence.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
}

// OpenAITTS holds settings for the OpenAI speech endpoint.
type OpenAITTS struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// AugmentConfig configures prompt augmentation with screen, webcam and
// clipboard context.
type AugmentConfig struct {
	Enabled           bool         `mapstructure:"enabled"`
	ScreenshotCommand []string     `mapstructure:"screenshot_command"` // "{path}" is substituted
	WebcamCommand     []string     `mapstructure:"webcam_command"`
	Gemini            GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds vision captioning settings.
type GeminiConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature"`
	TopP            float32 `mapstructure:"top_p"`
	TopK            float32 `mapstructure:"top_k"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

// ServerConfig holds the health/metrics server settings. A zero port
// disables the server in interactive mode.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// DefaultLanguages is used when the configuration names no languages. It
// pairs recognition locales with Azure neural voices.
var DefaultLanguages = map[string]LanguageConfig{
	"english":            {Locale: "en-US", Voice: "en-US-JennyNeural"},
	"french":             {Locale: "fr-FR", Voice: "fr-FR-DeniseNeural"},
	"spanish":            {Locale: "es-ES", Voice: "es-ES-ElviraNeural"},
	"german":             {Locale: "de-DE", Voice: "de-DE-KatjaNeural"},
	"italian":            {Locale: "it-IT", Voice: "it-IT-ElsaNeural"},
	"japanese":           {Locale: "ja-JP", Voice: "ja-JP-NanamiNeural"},
	"korean":             {Locale: "ko-KR", Voice: "ko-KR-SunHiNeural"},
	"chinese (mandarin)": {Locale: "zh-CN", Voice: "zh-CN-XiaoxiaoNeural"},
	"thai":               {Locale: "th-TH", Voice: "th-TH-PremwadeeNeural"},
	"cantonese":          {Locale: "yue-Hant-HK", Voice: "zh-HK-HiuMaanNeural"},
}

// DefaultLanguageOrder lists DefaultLanguages in menu order.
var DefaultLanguageOrder = []string{
	"english", "french", "spanish", "german", "italian",
	"japanese", "korean", "chinese (mandarin)", "thai", "cantonese",
}

// Load reads the configuration from file, environment variables, and defaults.
// A .env file in the working directory is loaded first; variables already set
// in the environment win. If configFile is non-empty it is used directly;
// otherwise the search order is ./parley.yaml, ./configs/parley.yaml,
// /etc/parley/parley.yaml.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("session.system_prompt", DefaultSystemPrompt)
	v.SetDefault("session.default_language", "english")
	v.SetDefault("session.default_voice", "en-US-JennyNeural")
	v.SetDefault("session.language_order", DefaultLanguageOrder)
	v.SetDefault("interpreter.backend", "openai")
	v.SetDefault("interpreter.temperature", 0.7)
	v.SetDefault("interpreter.max_tokens", 2048)
	v.SetDefault("interpreter.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("interpreter.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("interpreter.openai.transcription_model", "whisper-1")
	v.SetDefault("interpreter.openai.completion_model", "gpt-4o")
	v.SetDefault("interpreter.local.whisper_endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("interpreter.local.whisper_type", "openai")
	v.SetDefault("interpreter.local.llm_endpoint", "http://localhost:11434/api/chat")
	v.SetDefault("interpreter.local.llm_model", "llama3")
	v.SetDefault("interpreter.local.vad_filter", false)
	v.SetDefault("speech.record_command", []string{
		"ffmpeg", "-loglevel", "error", "-f", "alsa", "-i", "default",
		"-t", "{seconds}", "-ac", "1", "-ar", "16000", "-y", "{path}",
	})
	v.SetDefault("speech.record_seconds", 5)
	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.backend", "azure")
	v.SetDefault("tts.player_command", []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "{path}"})
	v.SetDefault("tts.azure.subscription_key", "${AZURE_SPEECH_KEY}")
	v.SetDefault("tts.azure.region", "${AZURE_SERVICE_REGION}")
	v.SetDefault("tts.azure.output_format", "riff-24khz-16bit-mono-pcm")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("tts.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("tts.openai.model", "tts-1")
	v.SetDefault("augment.enabled", false)
	v.SetDefault("augment.screenshot_command", []string{"gnome-screenshot", "-f", "{path}"})
	v.SetDefault("augment.webcam_command", []string{
		"ffmpeg", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0", "-frames:v", "1", "-y", "{path}",
	})
	v.SetDefault("augment.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("augment.gemini.model", "gemini-1.5-flash-latest")
	v.SetDefault("augment.gemini.temperature", 0.7)
	v.SetDefault("augment.gemini.top_p", 1)
	v.SetDefault("augment.gemini.top_k", 1)
	v.SetDefault("augment.gemini.max_output_tokens", 2048)
	v.SetDefault("server.health_port", 0)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("parley")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/parley")
	}

	// Environment variables: PARLEY_SESSION_DEFAULT_LANGUAGE, PARLEY_TTS_BACKEND, etc.
	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// A configured table replaces the defaults instead of merging with them.
	if len(cfg.Languages) == 0 {
		cfg.Languages = make(map[string]LanguageConfig, len(DefaultLanguages))
		for name, lang := range DefaultLanguages {
			cfg.Languages[name] = lang
		}
	}

	// Resolve env var references in sensitive fields (e.g., "${GROQ_API_KEY}")
	cfg.Interpreter.OpenAI.APIKey = resolveEnvRef(cfg.Interpreter.OpenAI.APIKey)
	cfg.TTS.Azure.SubscriptionKey = resolveEnvRef(cfg.TTS.Azure.SubscriptionKey)
	cfg.TTS.Azure.Region = resolveEnvRef(cfg.TTS.Azure.Region)
	cfg.TTS.OpenAI.APIKey = resolveEnvRef(cfg.TTS.OpenAI.APIKey)
	cfg.Augment.Gemini.APIKey = resolveEnvRef(cfg.Augment.Gemini.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.Languages) == 0 {
		return fmt.Errorf("config: no languages configured")
	}
	names := make(map[string]bool, len(c.Languages))
	for name, lang := range c.Languages {
		if strings.TrimSpace(lang.Locale) == "" {
			return fmt.Errorf("config: language %q has no locale", name)
		}
		names[canonicalLanguage(name)] = true
	}
	if !names[canonicalLanguage(c.Session.DefaultLanguage)] {
		return fmt.Errorf("config: default language %q is not in the languages table", c.Session.DefaultLanguage)
	}
	switch c.Interpreter.Backend {
	case "openai", "local":
	default:
		return fmt.Errorf("config: unknown interpreter backend %q", c.Interpreter.Backend)
	}
	if c.TTS.Enabled {
		switch c.TTS.Backend {
		case "azure", "piper", "openai":
		default:
			return fmt.Errorf("config: unknown tts backend %q", c.TTS.Backend)
		}
	}
	return nil
}

// canonicalLanguage normalizes a language name the way sessions look it up.
func canonicalLanguage(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var
// value. An unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config. Logs go to
// stderr so they do not interleave with the conversation on stdout.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
