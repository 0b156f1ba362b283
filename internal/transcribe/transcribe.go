// Package transcribe turns a recorded audio file into text. Failures are
// reported as a Result rather than an error so that a broken recording
// never aborts a consultation.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	"arogya/pkg/audioconv"
)

var ErrEmptyTranscript = errors.New("empty transcript")

type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

type Result struct {
	Status Status
	Text   string
	Err    error
}

func (r Result) OK() bool { return r.Status == StatusOK }

// Backend recognizes speech in a canonical WAV file.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, wavPath, language string) (string, error)
}

type Client struct {
	backend Backend
	toWAV   func(context.Context, string) (string, error)
}

func New(b Backend) *Client {
	return &Client{backend: b, toWAV: audioconv.ToWAV}
}

// Transcribe converts path to WAV when needed, runs the backend and removes
// any converted copy before returning.
func (c *Client) Transcribe(ctx context.Context, path, language string) Result {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Error("Audio file not found", "path", path)
			return Result{Status: StatusNotFound, Err: err}
		}
		return c.fail(fmt.Errorf("stat audio: %w", err))
	}

	wav, err := c.toWAV(ctx, path)
	if err != nil {
		return c.fail(err)
	}
	if wav != path {
		defer func() {
			if err := os.Remove(wav); err != nil {
				log.Warn("Failed to remove converted audio", "path", wav, "err", err)
			}
		}()
	}

	text, err := c.backend.Recognize(ctx, wav, language)
	if err != nil {
		return c.fail(fmt.Errorf("%s: %w", c.backend.Name(), err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return c.fail(ErrEmptyTranscript)
	}

	log.Debug("Transcribed", "backend", c.backend.Name(), "chars", len(text))
	return Result{Status: StatusOK, Text: text}
}

func (c *Client) fail(err error) Result {
	log.Error("Error in transcription", "err", err)
	return Result{Status: StatusFailed, Err: err}
}
