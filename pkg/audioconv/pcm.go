package audioconv

import "math"

// pcm is decoded audio before it is brought to the canonical layout.
type pcm struct {
	samples  []float32 // interleaved, [-1, 1]
	channels int
	rate     int
}

func (p pcm) canonical() []float32 {
	return resample(toMono(p.samples, p.channels), p.rate, SampleRate)
}

func toMono(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float32
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += s
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resample converts between rates by linear interpolation. Speech models do
// not need anything better.
func resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || len(in) == 0 {
		return in
	}

	step := float64(from) / float64(to)
	out := make([]float32, int(math.Ceil(float64(len(in))*float64(to)/float64(from))))
	last := len(in) - 1

	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j] + (in[j+1]-in[j])*frac
	}
	return out
}

func fromInts(data []int, bitDepth int) []float32 {
	full := float64(int64(1) << (bitDepth - 1))
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)/full, -1, 1))
	}
	return out
}

func fromInt16(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func toInt16(s float32) int {
	return int(math.Round(clamp(float64(s), -1, 1) * math.MaxInt16))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
