// Parley is a multilingual conversational assistant. It talks to a remote
// language model over typed or spoken turns, switches language on request
// ("change language to thai"), and speaks replies with the matching voice.
//
// Usage:
//
//	parley [flags]
//	parley -mode voice -language thai
//	parley -serve -config /path/to/parley.yaml
//
// @title       parley API
// @version     1.0
// @description Multilingual conversation sessions over HTTP and WebSocket.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nadzzz/parley/internal/augment"
	"github.com/nadzzz/parley/internal/augment/gemini"
	"github.com/nadzzz/parley/internal/config"
	"github.com/nadzzz/parley/internal/dispatch"
	"github.com/nadzzz/parley/internal/health"
	"github.com/nadzzz/parley/internal/interpreter"
	localinterp "github.com/nadzzz/parley/internal/interpreter/local"
	openaiinterp "github.com/nadzzz/parley/internal/interpreter/openai"
	"github.com/nadzzz/parley/internal/loop"
	"github.com/nadzzz/parley/internal/metrics"
	"github.com/nadzzz/parley/internal/session"
	"github.com/nadzzz/parley/internal/speech"
	"github.com/nadzzz/parley/internal/transport"
	grpctransport "github.com/nadzzz/parley/internal/transport/grpc"
	httptransport "github.com/nadzzz/parley/internal/transport/http"
	"github.com/nadzzz/parley/internal/tts"
	azuretts "github.com/nadzzz/parley/internal/tts/azure"
	openaitts "github.com/nadzzz/parley/internal/tts/openai"
	pipertts "github.com/nadzzz/parley/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/parley.yaml)")
	serve := flag.Bool("serve", false, "serve the HTTP/gRPC transports instead of the interactive loop")
	modeFlag := flag.String("mode", "", "input mode: text or voice (asks when empty)")
	language := flag.String("language", "", "initial conversation language")
	flag.Parse()

	if *showVersion {
		fmt.Printf("parley %s\n", version)
		os.Exit(0)
	}

	mode, err := loop.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("parley starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interp, err := newInterpreter(cfg)
	if err != nil {
		slog.Error("failed to create interpreter", "error", err)
		os.Exit(1)
	}
	defer interp.Close()

	languages, err := newLanguages(cfg)
	if err != nil {
		slog.Error("invalid language table", "error", err)
		os.Exit(1)
	}
	factory := func(lang string) (*session.Session, error) {
		if lang == "" {
			lang = cfg.Session.DefaultLanguage
		}
		return session.New(interp, languages, cfg.Session.SystemPrompt, lang)
	}

	synth, err := newSynthesizer(cfg)
	if err != nil {
		slog.Error("failed to create synthesizer", "error", err)
		os.Exit(1)
	}
	if synth != nil {
		defer synth.Close()
	}

	m := metrics.New("parley")
	healthServer := health.New(cfg.Server.HealthPort, m.Handler())

	if *serve {
		runServer(ctx, cfg, factory, interp, synth, m, healthServer)
		return
	}

	if cfg.Server.HealthPort > 0 {
		go func() {
			if err := healthServer.ListenAndServe(ctx); err != nil {
				slog.Error("health server failed", "error", err)
			}
		}()
	}

	opts := loop.Options{
		Mode:            mode,
		Language:        *language,
		DefaultLanguage: cfg.Session.DefaultLanguage,
		Languages:       languages,
		NewSession:      factory,
		Listener: speech.NewRecognizer(
			speech.NewCommandRecorder(cfg.Speech.RecordCommand, cfg.Speech.RecordSeconds),
			interp,
		),
		Metrics: m,
	}
	if synth != nil {
		opts.Speaker = tts.NewSpeaker(synth, tts.CommandPlayer{Command: cfg.TTS.PlayerCommand})
	}
	if cfg.Augment.Enabled {
		opts.Augmenter = newAugmenter(ctx, cfg, interp)
	}

	l, err := loop.New(opts, os.Stdin, os.Stdout)
	if err != nil {
		slog.Error("failed to start conversation", "error", err)
		os.Exit(1)
	}
	healthServer.SetReady(true)

	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("conversation ended", "error", err)
		os.Exit(1)
	}
	fmt.Println("\nExiting the program.")
}

// runServer serves the enabled transports until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, factory session.Factory, interp interpreter.Interpreter, synth tts.Synthesizer, m *metrics.Metrics, healthServer *health.Server) {
	var transports []transport.Transport
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, m))
	}
	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	dispatcher := dispatch.New(session.NewRegistry(factory), interp, synth, m)

	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	healthServer.SetReady(true)
	slog.Info("parley ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("parley stopped")
}

func newInterpreter(cfg *config.Config) (interpreter.Interpreter, error) {
	gen := interpreter.GenerationOpts{
		Temperature: cfg.Interpreter.Temperature,
		MaxTokens:   cfg.Interpreter.MaxTokens,
	}
	switch cfg.Interpreter.Backend {
	case "openai":
		slog.Info("using OpenAI-compatible interpreter",
			"base_url", cfg.Interpreter.OpenAI.BaseURL,
			"transcription_model", cfg.Interpreter.OpenAI.TranscriptionModel,
			"completion_model", cfg.Interpreter.OpenAI.CompletionModel)
		return openaiinterp.New(cfg.Interpreter.OpenAI, gen), nil
	case "local":
		slog.Info("using local interpreter",
			"whisper", cfg.Interpreter.Local.WhisperEndpoint,
			"llm", cfg.Interpreter.Local.LLMEndpoint)
		return localinterp.New(cfg.Interpreter.Local, gen), nil
	default:
		return nil, fmt.Errorf("unknown interpreter backend %q", cfg.Interpreter.Backend)
	}
}

func newLanguages(cfg *config.Config) (*session.Languages, error) {
	profiles := make(map[string]session.LanguageProfile, len(cfg.Languages))
	for name, l := range cfg.Languages {
		profiles[name] = session.LanguageProfile{Voice: l.Voice, Locale: l.Locale}
	}
	return session.NewLanguages(profiles, cfg.Session.DefaultVoice, cfg.Session.LanguageOrder...)
}

// newSynthesizer returns nil when TTS is disabled.
func newSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	if !cfg.TTS.Enabled {
		slog.Info("TTS disabled")
		return nil, nil
	}
	slog.Info("using TTS backend", "backend", cfg.TTS.Backend)
	switch cfg.TTS.Backend {
	case "azure":
		return azuretts.New(cfg.TTS.Azure)
	case "piper":
		return pipertts.New(cfg.TTS.Piper), nil
	case "openai":
		return openaitts.New(cfg.TTS.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
}

// newAugmenter wires the clipboard and, when a Gemini key is configured, the
// screenshot and webcam sources.
func newAugmenter(ctx context.Context, cfg *config.Config, model augment.Completer) *augment.Router {
	sources := map[augment.Action]augment.Source{
		augment.ActionClipboard: augment.NewClipboard(),
	}
	captioner, err := gemini.New(ctx, cfg.Augment.Gemini, "")
	if err != nil {
		slog.Warn("image context disabled", "error", err)
	} else {
		sources[augment.ActionScreenshot] = augment.NewCapture(cfg.Augment.ScreenshotCommand, captioner)
		sources[augment.ActionWebcam] = augment.NewCapture(cfg.Augment.WebcamCommand, captioner)
	}
	return augment.NewRouter(model, sources)
}
