// Package capture owns the microphone recording lifecycle: device
// enumeration and selection, the single active recording session, and the
// hand-off of captured samples to the waveform codec.
package capture

import (
	"errors"
	"fmt"

	"github.com/loqalabs/dictate/internal/config"
)

var (
	// ErrAlreadyRecording is returned when a recording is already active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned when no recording is active.
	ErrNotRecording = errors.New("not recording")
	// ErrEmptyRecording is returned when a stopped recording captured no samples.
	ErrEmptyRecording = errors.New("no audio recorded")
	// ErrNoInputDevice is returned when no usable input device exists.
	ErrNoInputDevice = errors.New("no input device available")
	// ErrNoSupportedConfig is returned when the device offers no usable input format.
	ErrNoSupportedConfig = errors.New("no supported input config")
	// ErrDeviceEnumeration wraps failures listing or resolving devices.
	ErrDeviceEnumeration = errors.New("failed to enumerate input devices")
)

// Device is a query-time snapshot of an input device. The ID is the
// device name; selection matches it exactly.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InputConfig is a negotiated input format for one device, ready to open.
type InputConfig interface {
	SampleRate() int
	Channels() int
	// Open builds the device stream and starts delivering interleaved
	// float32 blocks to cb from a backend-owned thread.
	Open(cb func(block []float32)) (Stream, error)
}

// Stream is a running audio input stream.
type Stream interface {
	Close() error
}

// Backend abstracts the host audio layer so the session state machine can
// be driven by a mock in tests.
type Backend interface {
	Devices() ([]Device, error)
	// Negotiate resolves deviceID ("" means the system default input) and
	// picks an input format, preferring mono and otherwise the first
	// format at its maximum offered sample rate.
	Negotiate(deviceID string) (InputConfig, error)
	Close() error
}

// NewBackend selects a capture backend from config.
func NewBackend(cfg config.AudioConfig) (Backend, error) {
	switch cfg.Backend {
	case "portaudio":
		return newPortAudioBackend()
	case "mock":
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
