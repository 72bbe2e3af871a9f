package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// CanonicalSampleRate is the rate every encoded waveform uses.
const CanonicalSampleRate = 16000

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// ErrDecode marks a malformed or unsupported waveform container.
var ErrDecode = errors.New("malformed waveform container")

// Waveform is a decoded sample sequence. Samples are normalized to
// [-1, 1] and stay interleaved; decoding never downmixes channels.
type Waveform struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// EncodeWAV encodes mono float samples as 16-bit PCM at the canonical rate.
func EncodeWAV(samples []float32) ([]byte, error) {
	buf := gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: CanonicalSampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		v := float64(s) * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		buf.Data[i] = int(math.Round(v))
	}

	var ws writeSeeker
	enc := wav.NewEncoder(&ws, CanonicalSampleRate, 16, 1, formatPCM)
	if err := enc.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.buf, nil
}

// DecodeWAV decodes a RIFF/WAV container into normalized float samples.
// Integer PCM at 8/16/24/32 bits and IEEE float at 32/64 bits are
// accepted, mono or multi-channel.
func DecodeWAV(data []byte) (Waveform, error) {
	parser := riff.New(bytes.NewReader(data))
	if err := parser.ParseHeaders(); err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if parser.Format != riff.WavFormatID {
		return Waveform{}, fmt.Errorf("%w: not a WAVE container", ErrDecode)
	}

	var haveFmt bool
	var raw []byte
	for {
		chunk, err := parser.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Waveform{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		switch chunk.ID {
		case riff.FmtID:
			if err := chunk.DecodeWavHeader(parser); err != nil {
				return Waveform{}, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			haveFmt = true
		case riff.DataFormatID:
			// the declared size can never exceed the container itself
			if chunk.Size < 0 || chunk.Size > len(data) {
				return Waveform{}, fmt.Errorf("%w: data chunk size %d exceeds container", ErrDecode, chunk.Size)
			}
			raw = make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk.R, raw); err != nil {
				return Waveform{}, fmt.Errorf("%w: truncated data chunk", ErrDecode)
			}
			chunk.Done()
		default:
			chunk.Done()
		}
	}
	if !haveFmt || raw == nil {
		return Waveform{}, fmt.Errorf("%w: missing fmt or data chunk", ErrDecode)
	}
	if parser.NumChannels == 0 || parser.SampleRate == 0 {
		return Waveform{}, fmt.Errorf("%w: invalid format chunk", ErrDecode)
	}

	samples, err := normalizeSamples(raw, int(parser.WavAudioFormat), int(parser.BitsPerSample))
	if err != nil {
		return Waveform{}, err
	}
	return Waveform{
		Samples:    samples,
		SampleRate: int(parser.SampleRate),
		Channels:   int(parser.NumChannels),
	}, nil
}

func normalizeSamples(raw []byte, audioFormat, bits int) ([]float32, error) {
	switch audioFormat {
	case formatPCM:
		return normalizeIntSamples(raw, bits)
	case formatIEEEFloat:
		return normalizeFloatSamples(raw, bits)
	default:
		return nil, fmt.Errorf("%w: unsupported audio format %d", ErrDecode, audioFormat)
	}
}

func normalizeIntSamples(raw []byte, bits int) ([]float32, error) {
	switch bits {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported PCM bit depth %d", ErrDecode, bits)
	}
	step := bits / 8
	if len(raw)%step != 0 {
		return nil, fmt.Errorf("%w: data chunk not sample-aligned", ErrDecode)
	}
	scale := float32(int64(1) << (bits - 1))
	out := make([]float32, 0, len(raw)/step)
	for i := 0; i+step <= len(raw); i += step {
		var v int32
		switch bits {
		case 8:
			// 8-bit WAV is stored unsigned, centered at 128.
			v = int32(raw[i]) - 128
		case 16:
			v = int32(int16(binary.LittleEndian.Uint16(raw[i:])))
		case 24:
			u := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16
			if u&0x800000 != 0 {
				u |= 0xFF000000
			}
			v = int32(u)
		case 32:
			v = int32(binary.LittleEndian.Uint32(raw[i:]))
		}
		out = append(out, float32(v)/scale)
	}
	return out, nil
}

func normalizeFloatSamples(raw []byte, bits int) ([]float32, error) {
	switch bits {
	case 32:
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("%w: data chunk not sample-aligned", ErrDecode)
		}
		out := make([]float32, 0, len(raw)/4)
		for i := 0; i+4 <= len(raw); i += 4 {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(raw[i:])))
		}
		return out, nil
	case 64:
		if len(raw)%8 != 0 {
			return nil, fmt.Errorf("%w: data chunk not sample-aligned", ErrDecode)
		}
		out := make([]float32, 0, len(raw)/8)
		for i := 0; i+8 <= len(raw); i += 8 {
			out = append(out, float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[i:]))))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported float bit depth %d", ErrDecode, bits)
	}
}

// writeSeeker backs the wav encoder with an in-memory buffer; the encoder
// needs to seek back to patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (ws *writeSeeker) Write(p []byte) (int, error) {
	if need := ws.pos + len(p); need > len(ws.buf) {
		grown := make([]byte, need)
		copy(grown, ws.buf)
		ws.buf = grown
	}
	copy(ws.buf[ws.pos:], p)
	ws.pos += len(p)
	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = ws.pos + int(offset)
	case io.SeekEnd:
		next = len(ws.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("seek before start of buffer")
	}
	ws.pos = next
	return int64(next), nil
}
