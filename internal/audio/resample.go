package audio

import "math"

// Resample converts samples from one rate to another using linear
// interpolation. Output length is floor(len(samples) * to/from). The
// transform holds no state across calls.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]float32, 0, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		lo := int(math.Floor(pos))
		hi := lo + 1
		if hi > len(samples)-1 {
			hi = len(samples) - 1
		}
		frac := pos - float64(lo)
		sample := samples[lo]*float32(1-frac) + samples[hi]*float32(frac)
		out = append(out, sample)
	}
	return out
}
