// Package playback plays local audio files through whatever the host offers:
// the platform's native player, an ordered list of command-line players on
// Unix-like systems, or an optional in-process speaker.
package playback

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
	"runtime"

	"arogya/pkg/audioconv"
)

var (
	ErrNoPlayer            = errors.New("no suitable audio player found")
	ErrUnsupportedPlatform = errors.New("unsupported operating system")
	ErrPlaybackDisabled    = errors.New("playback disabled")
)

type Status int

const (
	StatusPlayed Status = iota
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPlayed:
		return "played"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// Outcome is the result of a playback attempt. Playback never aborts a
// request, so callers log it and move on.
type Outcome struct {
	Status Status
	Player string
	Err    error
}

func (o Outcome) Played() bool { return o.Status == StatusPlayed }

// Runner abstracts process lookup and execution.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Fallback plays a file without an external process.
type Fallback interface {
	Play(ctx context.Context, path string) error
}

type Player struct {
	goos     string
	runner   Runner
	toWAV    func(context.Context, string) (string, error)
	fallback Fallback
	ducker   *Ducker
	disabled bool
}

type Option func(*Player)

func WithOS(goos string) Option { return func(p *Player) { p.goos = goos } }

func WithRunner(r Runner) Option { return func(p *Player) { p.runner = r } }

func WithConverter(f func(context.Context, string) (string, error)) Option {
	return func(p *Player) { p.toWAV = f }
}

// WithFallback sets a player tried after every command-line candidate.
func WithFallback(f Fallback) Option { return func(p *Player) { p.fallback = f } }

// WithDucker lowers other PulseAudio streams while playing.
func WithDucker(d *Ducker) Option { return func(p *Player) { p.ducker = d } }

func New(opts ...Option) *Player {
	p := &Player{
		goos:   runtime.GOOS,
		runner: execRunner{},
		toWAV:  audioconv.ToWAV,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Disabled returns a Player that never plays anything.
func Disabled() *Player {
	return &Player{disabled: true}
}

// Play blocks until path has been played by the first working candidate.
func (p *Player) Play(ctx context.Context, path string) Outcome {
	if p.disabled {
		return Outcome{Status: StatusUnavailable, Err: ErrPlaybackDisabled}
	}

	if _, err := os.Stat(path); err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("stat audio: %w", err)}
	}

	cands, platformErr := Candidates(p.goos)
	if platformErr != nil && p.fallback == nil {
		log.Warn("Playback skipped", "os", p.goos, "err", platformErr)
		return Outcome{Status: StatusUnavailable, Err: platformErr}
	}

	if p.ducker != nil {
		if err := p.ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := p.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore other streams", "err", err)
			}
		}()
	}

	var lastErr error
	for _, c := range cands {
		if _, err := p.runner.LookPath(c.Name); err != nil {
			log.Debug("Player not present", "player", c.Name)
			continue
		}
		if c.WAVOnly && !audioconv.IsCanonical(path) {
			continue
		}

		if err := p.playWith(ctx, c, path); err != nil {
			log.Debug("Player failed", "player", c.Name, "err", err)
			lastErr = err
			continue
		}

		return Outcome{Status: StatusPlayed, Player: c.Name}
	}

	if p.fallback != nil {
		if err := p.fallback.Play(ctx, path); err != nil {
			log.Debug("Builtin player failed", "err", err)
			lastErr = err
		} else {
			return Outcome{Status: StatusPlayed, Player: "builtin"}
		}
	}

	err := ErrNoPlayer
	if platformErr != nil {
		err = platformErr
	}
	if lastErr != nil {
		err = fmt.Errorf("%w (last error: %v)", err, lastErr)
	}

	log.Warn("No audio playback available", "path", path, "err", err)
	return Outcome{Status: StatusUnavailable, Err: err}
}

func (p *Player) playWith(ctx context.Context, c Candidate, path string) error {
	target := path
	if c.NeedsWAV {
		wav, err := p.toWAV(ctx, path)
		if err != nil {
			return fmt.Errorf("convert for %s: %w", c.Name, err)
		}
		if wav != path {
			defer removeTemp(wav)
		}
		target = wav
	}

	return p.runner.Run(ctx, c.Name, c.Command(target)...)
}

// Welcome plays the greeting at path. A missing file is reported as
// unavailable rather than failed.
func (p *Player) Welcome(ctx context.Context, path string) Outcome {
	if _, err := os.Stat(path); err != nil {
		log.Warn("Welcome audio file not found", "path", path)
		return Outcome{Status: StatusUnavailable, Err: err}
	}

	log.Info("Playing welcome audio message")
	out := p.Play(ctx, path)
	if out.Played() {
		log.Info("Welcome audio completed")
	}
	return out
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		log.Warn("Failed to remove converted audio", "path", path, "err", err)
	}
}
