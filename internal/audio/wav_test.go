package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// buildWAV assembles a minimal RIFF container for decoder tests.
func buildWAV(t *testing.T, audioFormat, channels, bits uint16, rate uint32, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	blockAlign := channels * bits / 8
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("build wav: %v", err)
		}
	}
	buf.WriteString("RIFF")
	write(uint32(36 + len(payload)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(audioFormat)
	write(channels)
	write(rate)
	write(rate * uint32(blockAlign))
	write(blockAlign)
	write(bits)
	buf.WriteString("data")
	write(uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.999, -0.999, 0.123, -0.321}
	data, err := EncodeWAV(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	wf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wf.SampleRate != CanonicalSampleRate {
		t.Fatalf("expected %d Hz, got %d", CanonicalSampleRate, wf.SampleRate)
	}
	if wf.Channels != 1 {
		t.Fatalf("expected mono, got %d channels", wf.Channels)
	}
	if len(wf.Samples) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(wf.Samples))
	}
	for i, want := range in {
		if diff := math.Abs(float64(wf.Samples[i] - want)); diff > 1.0/32768 {
			t.Errorf("sample %d: got %f, want %f (diff %g)", i, wf.Samples[i], want, diff)
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	data, err := EncodeWAV([]float32{2.0, -2.0})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	wf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wf.Samples[0] < 0.99 {
		t.Fatalf("positive overflow should clamp near 1, got %f", wf.Samples[0])
	}
	if wf.Samples[1] > -0.99 {
		t.Fatalf("negative overflow should clamp near -1, got %f", wf.Samples[1])
	}
}

func TestDecodeFloat32Container(t *testing.T) {
	want := []float32{0.25, -0.75, 1.0}
	payload := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	data := buildWAV(t, 3, 1, 32, 48000, payload)

	wf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wf.SampleRate != 48000 {
		t.Fatalf("expected 48000 Hz, got %d", wf.SampleRate)
	}
	for i, v := range want {
		if wf.Samples[i] != v {
			t.Errorf("sample %d: got %f, want %f (float must pass through)", i, wf.Samples[i], v)
		}
	}
}

func TestDecodeStereoKeepsChannels(t *testing.T) {
	// two frames of 16-bit stereo; decode must not downmix
	samples := []int16{16384, -16384, 8192, -8192}
	payload := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
	}
	data := buildWAV(t, 1, 2, 16, 44100, payload)

	wf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wf.Channels != 2 {
		t.Fatalf("expected 2 channels, got %d", wf.Channels)
	}
	if len(wf.Samples) != 4 {
		t.Fatalf("expected 4 interleaved samples, got %d", len(wf.Samples))
	}
	if diff := math.Abs(float64(wf.Samples[0]) - 0.5); diff > 1e-4 {
		t.Fatalf("expected first sample near 0.5, got %f", wf.Samples[0])
	}
}

func TestDecode24BitNormalization(t *testing.T) {
	// single sample at half scale: 0x400000 = 2^22
	payload := []byte{0x00, 0x00, 0x40}
	data := buildWAV(t, 1, 1, 24, 16000, payload)

	wf, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := math.Abs(float64(wf.Samples[0]) - 0.5); diff > 1e-6 {
		t.Fatalf("expected 0.5, got %f", wf.Samples[0])
	}
}

func TestDecodeRejectsInflatedDataChunkSize(t *testing.T) {
	// a tiny container declaring a ~4 GB data chunk must fail without
	// attempting the allocation
	data := buildWAV(t, 1, 1, 16, 16000, []byte{0x00, 0x40})
	binary.LittleEndian.PutUint32(data[len(data)-6:], 0xFFFFFFF0)

	if _, err := DecodeWAV(data); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"garbage":    []byte("definitely not a waveform"),
		"short riff": []byte("RIFF\x04\x00\x00\x00WAVE"),
	}
	for name, data := range cases {
		if _, err := DecodeWAV(data); !errors.Is(err, ErrDecode) {
			t.Errorf("%s: expected ErrDecode, got %v", name, err)
		}
	}
}
