package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/loqalabs/dictate/internal/audio"
	"github.com/loqalabs/dictate/internal/config"
)

type execTranscriber struct {
	cmd     []string
	cfg     config.STTConfig
	timeout time.Duration

	mu     sync.Mutex
	loaded bool
}

type execOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// NewExecTranscriber builds a transcriber that invokes an external
// recognizer command with `--audio <wav> [--model <path>] [--language <code>]`
// and reads JSON `{text, language}` from stdout.
func NewExecTranscriber(cfg config.STTConfig) (Transcriber, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &execTranscriber{
		cmd:     args,
		cfg:     cfg,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}, nil
}

// Load verifies the model once; subsequent calls are no-ops.
func (t *execTranscriber) Load(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded {
		return nil
	}
	if t.cfg.ModelPath != "" {
		if _, err := os.Stat(t.cfg.ModelPath); err != nil {
			return fmt.Errorf("model file not found at %s: %w", t.cfg.ModelPath, err)
		}
	}
	t.loaded = true
	return nil
}

func (t *execTranscriber) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Transcribe runs one inference. Calls are serialized; the recognizer
// process owns the model for the duration of the call.
func (t *execTranscriber) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return Result{}, ErrModelNotLoaded
	}

	wavData, err := audio.EncodeWAV(samples)
	if err != nil {
		return Result{}, fmt.Errorf("encode transcription input: %w", err)
	}

	file, err := os.CreateTemp(os.TempDir(), "dictate_stt_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	if _, err := file.Write(wavData); err != nil {
		file.Close()
		return Result{}, fmt.Errorf("write temp wav: %w", err)
	}
	if err := file.Close(); err != nil {
		return Result{}, fmt.Errorf("close temp wav: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := append([]string{}, t.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if t.cfg.ModelPath != "" {
		args = append(args, "--model", t.cfg.ModelPath)
	}
	if t.cfg.Language != "" {
		args = append(args, "--language", t.cfg.Language)
	}

	command := exec.CommandContext(ctx, t.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var out execOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Result{}, fmt.Errorf("decode stt response: %w", err)
	}
	language := strings.TrimSpace(out.Language)
	if language == "" {
		language = "unknown"
	}
	return Result{Text: strings.TrimSpace(out.Text), Language: language}, nil
}
