package stt

import (
	"context"
	"fmt"
	"sync"
)

type mockTranscriber struct {
	mu     sync.Mutex
	loaded bool
}

func NewMockTranscriber() Transcriber {
	return &mockTranscriber{}
}

func (m *mockTranscriber) Load(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	return nil
}

func (m *mockTranscriber) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *mockTranscriber) Transcribe(_ context.Context, samples []float32) (Result, error) {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if !loaded {
		return Result{}, ErrModelNotLoaded
	}
	return Result{
		Text:     fmt.Sprintf("[mock transcript samples=%d]", len(samples)),
		Language: "en",
	}, nil
}
