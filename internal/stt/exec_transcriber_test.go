package stt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/loqalabs/dictate/internal/config"
)

func TestNewExecTranscriberRejectsEmptyCommand(t *testing.T) {
	if _, err := NewExecTranscriber(config.STTConfig{Mode: "exec", Command: ""}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestLoadRequiresModelFile(t *testing.T) {
	cfg := config.STTConfig{Mode: "exec", Command: "whisper-cli", ModelPath: "/nope/ggml-base.bin", TimeoutMS: 1000}
	tr, err := NewExecTranscriber(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tr.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing model file")
	}
	if tr.Loaded() {
		t.Fatal("failed load must not mark model loaded")
	}
}

func TestTranscribeBeforeLoad(t *testing.T) {
	tr, err := NewExecTranscriber(config.STTConfig{Mode: "exec", Command: "whisper-cli", TimeoutMS: 1000})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := tr.Transcribe(context.Background(), []float32{0.1}); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestExecTranscribe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script backend")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-recognizer")
	body := "#!/bin/sh\nprintf '{\"text\": \" hello world \", \"language\": \"en\"}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	tr, err := NewExecTranscriber(config.STTConfig{Mode: "exec", Command: script, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	result, err := tr.Transcribe(context.Background(), []float32{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "hello world" {
		t.Fatalf("expected trimmed text, got %q", result.Text)
	}
	if result.Language != "en" {
		t.Fatalf("expected language en, got %q", result.Language)
	}
}

func TestExecTranscribeDefaultsLanguage(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script backend")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-recognizer")
	body := "#!/bin/sh\nprintf '{\"text\": \"bonjour\"}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	tr, err := NewExecTranscriber(config.STTConfig{Mode: "exec", Command: script, TimeoutMS: 5000})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	result, err := tr.Transcribe(context.Background(), []float32{0.5})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Language != "unknown" {
		t.Fatalf("expected language to default to unknown, got %q", result.Language)
	}
}
