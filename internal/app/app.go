// Package app assembles the consultation pipeline from a Config and hands
// out a single serialized entry point to every front end.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"sync"
	"time"

	openai "github.com/openai/openai-go/v3"

	"arogya/internal/config"
	"arogya/internal/llm"
	"arogya/internal/metrics"
	"arogya/internal/playback"
	"arogya/internal/proxy"
	"arogya/internal/router"
	"arogya/internal/speech"
	"arogya/internal/transcribe"
)

// Processor answers a single consultation.
type Processor interface {
	Process(ctx context.Context, in router.Input) router.Response
}

type App struct {
	Config *config.Config
	Player *playback.Player

	mu      sync.Mutex
	router  Processor
	closers []io.Closer
}

// New wraps an already built processor.
func New(cfg *config.Config, r Processor, player *playback.Player) *App {
	return &App{Config: cfg, router: r, Player: player}
}

// Build wires remote clients, the transcription backend, synthesis and
// playback according to cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	httpClient, err := proxy.NewHTTPClient(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %s: %w", cfg.Proxy, err)
	}
	if httpClient != nil {
		log.Debug("Using socks proxy", "addr", cfg.Proxy)
	}

	api, err := llm.NewAPI(cfg.API.BaseURL, cfg.API.Key, httpClient)
	if err != nil {
		return nil, fmt.Errorf("model api: %w", err)
	}

	ttsAPI, err := llm.NewAPI(cfg.TTS.BaseURL, cfg.TTS.APIKey, httpClient)
	if err != nil {
		return nil, fmt.Errorf("speech api: %w", err)
	}

	a := &App{Config: cfg, Player: NewPlayer(cfg.Playback)}

	backend, err := a.backend(ctx, cfg, api)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded transcription backend", "backend", backend.Name())

	models := llm.New(api)
	a.router = router.New(
		transcribe.New(backend),
		models,
		models,
		speech.New(speech.NewOpenAIEngine(ttsAPI, cfg.TTS.Model, cfg.TTS.Voice), a.Player),
		router.Options{
			VisionModel: cfg.Models.Vision,
			TextModel:   cfg.Models.Text,
			Language:    cfg.Transcription.Language,
			OutputPath:  cfg.Output.Path,
		},
	)

	return a, nil
}

func (a *App) backend(ctx context.Context, cfg *config.Config, api openai.Client) (transcribe.Backend, error) {
	switch cfg.Transcription.Backend {
	case config.BackendWhisper:
		w, err := transcribe.NewWhisper(cfg.Transcription.WhisperModel)
		if err != nil {
			return nil, fmt.Errorf("load whisper model: %w", err)
		}
		a.closers = append(a.closers, w)
		return w, nil

	case config.BackendGoogle:
		g, err := transcribe.NewGoogle(ctx)
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		a.closers = append(a.closers, g)
		return g, nil

	default:
		return transcribe.NewRemote(api, cfg.Models.Transcription), nil
	}
}

// NewPlayer builds the audio player described by cfg.
func NewPlayer(cfg config.PlaybackConfig) *playback.Player {
	if !cfg.Enabled {
		return playback.Disabled()
	}

	var opts []playback.Option
	if cfg.Builtin {
		opts = append(opts, playback.WithFallback(playback.NewSpeaker()))
	}
	if cfg.Duck {
		opts = append(opts, playback.WithDucker(playback.NewDucker(0.3, 10, 300*time.Millisecond)))
	}
	return playback.New(opts...)
}

// Consult runs one consultation. Calls are serialized because every
// response is written to the same output path.
func (a *App) Consult(ctx context.Context, in router.Input) router.Response {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	resp := a.router.Process(ctx, in)
	metrics.Observe(resp, time.Since(start))

	return resp
}

// Welcome plays the configured greeting, if any.
func (a *App) Welcome(ctx context.Context) playback.Outcome {
	return a.Player.Welcome(ctx, a.Config.Welcome.Path)
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
