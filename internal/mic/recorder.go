package mic

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"arogya/pkg/audioconv"
)

const (
	frameSize        = 320   // 20ms @ 16 kHz
	silenceThreshRMS = 0.015 // tune if needed
)

var ErrNoSpeech = errors.New("no speech recorded")

type Recorder struct {
	MaxLength time.Duration // hard cap on a recording
	Silence   time.Duration // trailing silence that ends a recording
}

func NewRecorder() *Recorder {
	return &Recorder{
		MaxLength: 30 * time.Second,
		Silence:   1200 * time.Millisecond,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordToFile captures speech from the default input device and stores it
// at path as a canonical WAV.
func (r *Recorder) RecordToFile(path string) error {
	pcm, err := r.RecordAuto()
	if err != nil {
		return err
	}
	return audioconv.WritePCM16kWAV(path, pcm)
}

// RecordAuto records mono 16 kHz audio. Leading silence is dropped and the
// recording stops after r.Silence of quiet following speech.
func (r *Recorder) RecordAuto() ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, audioconv.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, audioconv.SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	frameDur := time.Second * frameSize / audioconv.SampleRate
	maxFrames := int(r.MaxLength / frameDur)
	silenceFrames := int(r.Silence / frameDur)

	var (
		speaking bool
		quiet    int
	)
	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			quiet = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			quiet++
			out = append(out, buf...)
			if quiet >= silenceFrames {
				break
			}
		}
	}

	if !speaking {
		return nil, ErrNoSpeech
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
