// Package audioconv decodes the audio formats users upload or record (WAV,
// MP3, Ogg Vorbis, Ogg Opus) and writes the canonical 16 kHz mono 16-bit
// WAV that the transcription backends and WAV-only players expect.
package audioconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	SampleRate = 16000
	BitDepth   = 16
	Channels   = 1

	CanonicalExt = ".wav"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int // 0 keeps everything
}

// IsCanonical reports whether path already carries the canonical extension.
func IsCanonical(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CanonicalExt)
}

// SiblingWAV returns path with its extension replaced by .wav.
func SiblingWAV(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + CanonicalExt
}

// ToWAV returns a canonical WAV version of path. Files that already have a
// .wav extension are returned as-is and nothing is written. Otherwise the
// input is decoded and a sibling .wav file is created; the caller owns it.
func ToWAV(ctx context.Context, path string) (string, error) {
	if IsCanonical(path) {
		return path, nil
	}

	samples, err := ConvertFileToPCM16k(ctx, path, Options{})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	out := SiblingWAV(path)
	if err := WritePCM16kWAV(out, samples); err != nil {
		return "", err
	}
	return out, nil
}

// WritePCM16kWAV encodes mono float32 samples in [-1, 1] as a 16 kHz WAV file.
// A partially written file is removed on failure.
func WritePCM16kWAV(path string, samples []float32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = toInt16(s)
	}

	enc := wav.NewEncoder(f, SampleRate, BitDepth, Channels, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// ConvertFileToPCM16k decodes path into mono float32 samples at 16 kHz.
// The extension picks the decoder; unknown extensions are sniffed.
func ConvertFileToPCM16k(_ context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decode, err := decoderFor(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, err
	}

	p, err := decode(f)
	if err != nil {
		return nil, err
	}

	out := p.canonical()
	if opt.MaxSamples > 0 && len(out) > opt.MaxSamples {
		out = out[:opt.MaxSamples]
	}
	return out, nil
}

type decoder func(io.ReadSeeker) (pcm, error)

func decoderFor(f io.ReadSeeker, ext string) (decoder, error) {
	switch ext {
	case ".wav", ".wave":
		return decodeWAV, nil
	case ".mp3":
		return func(r io.ReadSeeker) (pcm, error) { return decodeMP3(r) }, nil
	case ".ogg", ".oga", ".opus":
		return decodeOgg, nil
	}

	head := make([]byte, 4)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte("RIFF")):
		return decodeWAV, nil
	case bytes.HasPrefix(head, []byte("OggS")):
		return decodeOgg, nil
	case bytes.HasPrefix(head, []byte("ID3")), len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return func(r io.ReadSeeker) (pcm, error) { return decodeMP3(r) }, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: wav/mp3/ogg-vorbis/ogg-opus)", ErrUnsupportedFormat, ext)
	}
}
