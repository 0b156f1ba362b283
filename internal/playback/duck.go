package playback

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker fades every PulseAudio sink input down while a response plays,
// except streams owned by the players themselves, and restores them after.
type Ducker struct {
	mu        sync.Mutex
	active    bool
	selfNames []string
	original  map[int]int // sink input id -> volume % before ducking
	factor    float64
	floor     int
	fade      time.Duration

	pactl func(ctx context.Context, args ...string) ([]byte, error)
}

// NewDucker scales other streams by factor (never below floor percent)
// over fade.
func NewDucker(factor float64, floor int, fade time.Duration) *Ducker {
	return &Ducker{
		selfNames: playerAppNames(),
		original:  make(map[int]int),
		factor:    factor,
		floor:     clampVolume(floor),
		fade:      fade,
		pactl: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

func playerAppNames() []string {
	cands, _ := Candidates("linux")
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.Name)
	}
	return names
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.listSinkInputs(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)

	var targets []fadeTarget
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}

		to := int(math.Round(float64(s.Volume) * d.factor))
		if to < d.floor {
			to = d.floor
		}

		d.original[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: clampVolume(to)})
	}

	if err := d.fadeAll(ctx, targets); err != nil {
		return err
	}

	d.active = true
	return nil
}

func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.listSinkInputs(ctx)
	if err != nil {
		return err
	}

	var targets []fadeTarget
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok || d.isSelf(s) {
			// appeared after ducking
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if err := d.fadeAll(ctx, targets); err != nil {
		return err
	}

	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s sinkInput) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fadeAll(ctx context.Context, targets []fadeTarget) error {
	if len(targets) == 0 {
		return nil
	}

	const minStep = 10 * time.Millisecond

	steps := int(d.fade / minStep)
	if steps < 1 {
		steps = 1
	}
	stepDur := d.fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.setVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps && stepDur > 0 {
			time.Sleep(stepDur)
		}
	}

	return nil
}

func (d *Ducker) listSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	_, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", clampVolume(percent)))
	return err
}

// parseSinkInputs reads the id, first volume percentage and
// application.name of each block in `pactl list sink-inputs` output.
func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")

	var res []sinkInput
	for _, block := range blocks[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		s := sinkInput{ID: id, Volume: -1}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume < 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && s.AppName == "" {
				s.AppName = strings.Trim(rest, `"`)
			}
		}

		if s.Volume < 0 {
			continue
		}

		res = append(res, s)
	}

	return res
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}
