// Package stt runs speech recognition locally with a whisper.cpp model.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"arogya/pkg/audioconv"
)

var (
	ErrNoModelPath = errors.New("whisper model path is empty")
	ErrNotLoaded   = errors.New("whisper model not loaded")
	ErrNoSamples   = errors.New("no audio samples")
)

// Symptom descriptions are full of terms the base models mishear; priming
// the decoder with a few of them helps.
const medicalPrompt = "Patient describing symptoms: fever, cough, rash, nausea, dizziness, headache."

type Options struct {
	Language string // "en" etc, "auto" to detect
	Threads  int    // <=0 uses every CPU
	Prompt   string // overrides the default decoder prompt
	Beam     int    // 0 keeps greedy decoding
}

type Segment struct {
	Text       string
	Start, End float64 // seconds
}

type Transcript struct {
	Text     string
	Language string
	Segments []Segment
}

// Model owns a loaded whisper model. Recognition calls are serialized since
// one consultation is handled at a time anyway.
type Model struct {
	mu sync.Mutex
	wm whisper.Model
}

func Load(path string) (*Model, error) {
	if path == "" {
		return nil, ErrNoModelPath
	}
	wm, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", path, err)
	}
	return &Model{wm: wm}, nil
}

func (m *Model) Close() error {
	if m == nil || m.wm == nil {
		return nil
	}
	return m.wm.Close()
}

// File recognizes speech in any file audioconv can decode.
func (m *Model) File(ctx context.Context, path string, opt Options) (Transcript, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, path, audioconv.Options{})
	if err != nil {
		return Transcript{}, fmt.Errorf("decode audio: %w", err)
	}
	return m.PCM(ctx, pcm, opt)
}

// PCM recognizes mono 16 kHz samples in [-1, 1].
func (m *Model) PCM(ctx context.Context, pcm []float32, opt Options) (Transcript, error) {
	if m == nil || m.wm == nil {
		return Transcript{}, ErrNotLoaded
	}
	if len(pcm) == 0 {
		return Transcript{}, ErrNoSamples
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	wctx, err := m.wm.NewContext()
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper context: %w", err)
	}
	if err := configure(wctx, opt); err != nil {
		return Transcript{}, err
	}

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return Transcript{}, fmt.Errorf("whisper process: %w", err)
	}

	segs, err := segments(ctx, wctx)
	if err != nil {
		return Transcript{}, err
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return Transcript{Text: joinSegments(segs), Language: lang, Segments: segs}, nil
}

func configure(wctx whisper.Context, opt Options) error {
	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return fmt.Errorf("set language %q: %w", lang, err)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.Beam > 0 {
		wctx.SetBeamSize(opt.Beam)
	}

	prompt := opt.Prompt
	if prompt == "" {
		prompt = medicalPrompt
	}
	wctx.SetInitialPrompt(prompt)

	return nil
}

func segments(ctx context.Context, wctx whisper.Context) ([]Segment, error) {
	var out []Segment
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("whisper segment: %w", err)
		}
		out = append(out, Segment{Text: s.Text, Start: s.Start.Seconds(), End: s.End.Seconds()})
	}
}

func joinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
