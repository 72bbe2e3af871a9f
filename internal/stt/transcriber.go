// Package stt wraps the speech model behind a load-once, run-per-call
// transcriber seam. The model itself stays a black box: the exec backend
// shells out to a whisper-cli style command, the mock backend serves tests
// and headless setups.
package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/loqalabs/dictate/internal/config"
)

// ErrModelNotLoaded is returned when Transcribe runs before Load.
var ErrModelNotLoaded = errors.New("speech model not loaded")

// Result captures one transcription: the text and the detected language
// as an ISO-639-1-like code, or "unknown".
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcriber abstracts speech-to-text backends. Transcribe expects mono
// samples at the canonical 16 kHz rate.
type Transcriber interface {
	Load(ctx context.Context) error
	Loaded() bool
	Transcribe(ctx context.Context, samples []float32) (Result, error)
}

// New selects a transcriber backend from config.
func New(cfg config.STTConfig) (Transcriber, error) {
	switch cfg.Mode {
	case "exec":
		return NewExecTranscriber(cfg)
	case "mock":
		return NewMockTranscriber(), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}
