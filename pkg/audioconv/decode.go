package audioconv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const opusRate = 48000

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav header")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return pcm{}, errors.New("wav has no samples")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = BitDepth
	}

	p := pcm{samples: fromInts(buf.Data, depth), channels: int(dec.NumChans), rate: int(dec.SampleRate)}
	if f := buf.Format; f != nil {
		if f.NumChannels > 0 {
			p.channels = f.NumChannels
		}
		if f.SampleRate > 0 {
			p.rate = f.SampleRate
		}
	}
	return p, nil
}

// decodeMP3 reads the whole stream; go-mp3 always yields 16-bit stereo.
func decodeMP3(r io.Reader) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("mp3 header: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, fmt.Errorf("read mp3: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}

	return pcm{samples: samples, channels: 2, rate: dec.SampleRate()}, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("vorbis stream without format")
	}
	return pcm{samples: samples, channels: format.Channels, rate: format.SampleRate}, nil
}

func decodeOpus(rs io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return pcm{}, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var samples []float32
	frame := make([]int16, opusRate/2*ch)
	for {
		n, err := dec.Read(frame)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// n is the negative opusfile code here
			return pcm{}, err
		}
		samples = append(samples, fromInt16(frame[:n*ch])...)
	}
	if len(samples) == 0 {
		return pcm{}, errors.New("opus stream has no samples")
	}

	return pcm{samples: samples, channels: ch, rate: opusRate}, nil
}

// decodeOgg handles both codecs that live in Ogg containers.
func decodeOgg(rs io.ReadSeeker) (pcm, error) {
	p, verr := decodeVorbis(rs)
	if verr == nil {
		return p, nil
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return pcm{}, err
	}

	p, oerr := decodeOpus(rs)
	if oerr != nil {
		return pcm{}, fmt.Errorf("ogg: vorbis: %v; opus: %w", verr, oerr)
	}
	return p, nil
}
