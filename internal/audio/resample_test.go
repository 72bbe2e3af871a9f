package audio

import (
	"math"
	"testing"
)

func sine(n int, freq float64, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestResampleOutputLength(t *testing.T) {
	cases := []struct {
		n        int
		from, to int
	}{
		{16000, 48000, 16000},
		{44100, 44100, 16000},
		{1000, 8000, 16000},
		{3, 44100, 16000},
		{0, 48000, 16000},
	}
	for _, tc := range cases {
		in := sine(tc.n, 440, tc.from)
		out := Resample(in, tc.from, tc.to)
		want := int(float64(tc.n) * float64(tc.to) / float64(tc.from))
		if len(out) != want {
			t.Errorf("resample %d samples %d->%d: got len %d, want %d", tc.n, tc.from, tc.to, len(out), want)
		}
	}
}

func TestResampleRoundTripLength(t *testing.T) {
	in := sine(48000, 440, 48000)
	down := Resample(in, 48000, 16000)
	up := Resample(down, 16000, 48000)
	// floor composition loses at most a few samples
	if diff := len(in) - len(up); diff < 0 || diff > 3 {
		t.Fatalf("round trip length drifted: %d -> %d", len(in), len(up))
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("expected identical length, got %d", len(out))
	}
	out[0] = 0.9
	if in[0] != 0.1 {
		t.Fatal("resample must not alias its input")
	}
}

func TestResamplePreservesConstantSignal(t *testing.T) {
	in := make([]float32, 4410)
	for i := range in {
		in[i] = 0.25
	}
	out := Resample(in, 44100, 16000)
	for i, s := range out {
		if math.Abs(float64(s)-0.25) > 1e-6 {
			t.Fatalf("sample %d deviates: %f", i, s)
		}
	}
}
