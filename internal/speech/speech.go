// Package speech renders response text to an MP3 file and plays it.
package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"arogya/internal/playback"
)

const Ext = ".mp3"

var ErrEmptyAudio = errors.New("engine returned no audio")

// Engine produces MP3 bytes for text.
type Engine interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, path string) playback.Outcome
}

type Synthesizer struct {
	engine Engine
	player Player
}

// New returns a Synthesizer. player may be nil to skip playback.
func New(engine Engine, player Player) *Synthesizer {
	return &Synthesizer{engine: engine, player: player}
}

// MP3Path forces the .mp3 extension onto path.
func MP3Path(path string) string {
	ext := filepath.Ext(path)
	switch {
	case strings.EqualFold(ext, Ext):
		return path
	case ext == filepath.Base(path):
		// dotfile such as ".hidden": the name is not an extension
		return path + Ext
	}
	return strings.TrimSuffix(path, ext) + Ext
}

// Synthesize writes text as speech to MP3Path(outPath), plays it and
// returns the written path. Playback problems are logged only. On failure
// the returned path is empty.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outPath string) (path string, err error) {
	defer func() {
		if p := recover(); p != nil {
			path, err = "", fmt.Errorf("tts panic: %v", p)
			log.Error("Error in TTS", "err", err)
		}
	}()

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Error in TTS", "err", err)
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	audio, err := s.engine.Synthesize(ctx, text)
	if err == nil && len(audio) == 0 {
		err = ErrEmptyAudio
	}
	if err != nil {
		log.Error("Error in TTS", "err", err)
		return "", fmt.Errorf("synthesize: %w", err)
	}

	path = MP3Path(outPath)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		log.Error("Error in TTS", "err", err)
		return "", fmt.Errorf("write audio: %w", err)
	}

	log.Info("Generated speech saved", "path", path)

	if s.player != nil {
		if out := s.player.Play(ctx, path); !out.Played() {
			log.Error("Error playing audio", "status", out.Status, "err", out.Err)
		}
	}

	return path, nil
}
