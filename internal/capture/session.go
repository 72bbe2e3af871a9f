package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loqalabs/dictate/internal/audio"
	"github.com/loqalabs/dictate/internal/config"
)

// recording is the state owned by one capture attempt. Each Start builds
// a fresh one, so a Stop that raced with the next Start still snapshots
// the buffer it began with.
type recording struct {
	mu         sync.Mutex
	samples    []float32
	sampleRate int
	stop       chan struct{}
	done       chan struct{}
}

func (r *recording) append(block []float32, channels int) {
	if channels > 1 {
		frames := len(block) / channels
		mono := make([]float32, 0, frames)
		for f := 0; f < frames; f++ {
			var sum float32
			for c := 0; c < channels; c++ {
				sum += block[f*channels+c]
			}
			mono = append(mono, sum/float32(channels))
		}
		block = mono
	}
	r.mu.Lock()
	r.samples = append(r.samples, block...)
	r.mu.Unlock()
}

func (r *recording) snapshot() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float32, len(r.samples))
	copy(out, r.samples)
	return out
}

// Session is the process-wide recording state machine. At most one
// recording is active at a time; a second Start is rejected, not queued.
type Session struct {
	backend    Backend
	logger     *slog.Logger
	targetRate int
	grace      time.Duration

	mu       sync.Mutex
	active   *recording
	deviceID string
}

func NewSession(cfg config.AudioConfig, backend Backend, logger *slog.Logger) *Session {
	return &Session{
		backend:    backend,
		logger:     logger.With(slog.String("component", "capture")),
		targetRate: cfg.TargetSampleRate,
		grace:      time.Duration(cfg.StopGraceMS) * time.Millisecond,
		deviceID:   cfg.DeviceID,
	}
}

// Devices lists the available input devices.
func (s *Session) Devices() ([]Device, error) {
	return s.backend.Devices()
}

// SetDevice selects the input device for subsequent recordings; the empty
// string selects the system default. The choice persists across sessions.
func (s *Session) SetDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceID = deviceID
}

// SelectedDevice returns the currently selected device ID ("" = default).
func (s *Session) SelectedDevice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// IsRecording reports whether a recording is active.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Start begins a new recording with a fresh sample buffer. The device
// format is negotiated and the stream handed to a dedicated capture
// goroutine; Start returns before the stream is built.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return ErrAlreadyRecording
	}

	cfg, err := s.backend.Negotiate(s.deviceID)
	if err != nil {
		return err
	}

	rec := &recording{
		sampleRate: cfg.SampleRate(),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.active = rec

	go s.captureLoop(cfg, rec)

	s.logger.Info("recording started",
		slog.Int("sample_rate", rec.sampleRate),
		slog.Int("channels", cfg.Channels()),
		slog.String("device", s.deviceID))
	return nil
}

// captureLoop owns the device stream for the recording's lifetime. A
// stream setup failure is fatal to this capture attempt; Stop then
// reports EmptyRecording.
func (s *Session) captureLoop(cfg InputConfig, rec *recording) {
	defer close(rec.done)

	channels := cfg.Channels()
	stream, err := cfg.Open(func(block []float32) {
		select {
		case <-rec.stop:
			// stop already raised; drain without buffering
			return
		default:
		}
		rec.append(block, channels)
	})
	if err != nil {
		s.logger.Error("input stream setup failed", slog.String("error", err.Error()))
		return
	}

	<-rec.stop
	if err := stream.Close(); err != nil {
		s.logger.Warn("closing input stream failed", slog.String("error", err.Error()))
	}
}

// Stop ends the active recording, waits up to the grace period for the
// capture goroutine to release the stream, resamples to the canonical
// rate when needed and returns the encoded WAV bytes.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	rec := s.active
	if rec == nil {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	s.active = nil
	s.mu.Unlock()

	close(rec.stop)
	select {
	case <-rec.done:
	case <-time.After(s.grace):
		s.logger.Warn("capture loop did not settle within grace period",
			slog.Duration("grace", s.grace))
	}

	samples := rec.snapshot()
	if len(samples) == 0 {
		return nil, ErrEmptyRecording
	}
	if rec.sampleRate != s.targetRate {
		samples = audio.Resample(samples, rec.sampleRate, s.targetRate)
	}
	data, err := audio.EncodeWAV(samples)
	if err != nil {
		return nil, fmt.Errorf("encode recording: %w", err)
	}
	return data, nil
}
