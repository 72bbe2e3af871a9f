// Package pipeline drives a dictation from captured audio to a finished
// transcript: decode, gate, transcribe, then optional cleanup.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/dictate/internal/audio"
	"github.com/loqalabs/dictate/internal/bus"
	"github.com/loqalabs/dictate/internal/capture"
	"github.com/loqalabs/dictate/internal/cleanup"
	"github.com/loqalabs/dictate/internal/history"
	"github.com/loqalabs/dictate/internal/protocol"
	"github.com/loqalabs/dictate/internal/stt"
)

// Content gates. Each maps to a user-facing failure the caller can
// present instead of an empty transcript.
var (
	ErrNoAudioCaptured     = errors.New("no audio captured, check microphone permissions")
	ErrSilentAudio         = errors.New("recording contained only silence")
	ErrUnintelligibleAudio = errors.New("could not understand the audio")
)

// A recording shorter than this holds no usable speech frames.
const minWAVBytes = 1000

// Peak amplitudes below this are treated as a muted or disconnected mic.
const silenceThreshold = 0.01

// Transcripts at or below this length skip cleanup entirely.
const minCleanupLength = 3

// Result is the outcome of a finished dictation.
type Result struct {
	RawText     string `json:"raw_text"`
	CleanedText string `json:"cleaned_text"`
	Language    string `json:"language"`
}

// Pipeline owns the capture session and downstream stages. History and
// bus are optional; a nil store or client disables that stage.
type Pipeline struct {
	session     *capture.Session
	transcriber stt.Transcriber
	cleaner     *cleanup.Client
	store       *history.Store
	publisher   *bus.Client
	sessionID   string
	log         *slog.Logger
}

func New(session *capture.Session, transcriber stt.Transcriber, cleaner *cleanup.Client, store *history.Store, publisher *bus.Client, sessionID string, log *slog.Logger) *Pipeline {
	return &Pipeline{
		session:     session,
		transcriber: transcriber,
		cleaner:     cleaner,
		store:       store,
		publisher:   publisher,
		sessionID:   sessionID,
		log:         log.With(slog.String("component", "pipeline")),
	}
}

// Session exposes the capture session for recording control.
func (p *Pipeline) Session() *capture.Session { return p.session }

// Cleaner exposes the cleanup client for runtime reconfiguration.
func (p *Pipeline) Cleaner() *cleanup.Client { return p.cleaner }

// History exposes the transcript store, nil when persistence is off.
func (p *Pipeline) History() *history.Store { return p.store }

// StopAndTranscribe finishes the active recording and runs the full
// transcription pipeline on it.
func (p *Pipeline) StopAndTranscribe(ctx context.Context, mode cleanup.Mode) (Result, error) {
	wavData, err := p.session.Stop()
	if err != nil {
		if errors.Is(err, capture.ErrEmptyRecording) {
			return Result{}, ErrNoAudioCaptured
		}
		return Result{}, err
	}
	return p.TranscribeAndCleanup(ctx, wavData, mode)
}

// TranscribeAndCleanup runs content gates, speech recognition, and
// optional cleanup over a canonical WAV recording. Cleanup failures
// never fail the dictation; the raw transcript is returned instead.
func (p *Pipeline) TranscribeAndCleanup(ctx context.Context, wavData []byte, mode cleanup.Mode) (Result, error) {
	if len(wavData) < minWAVBytes {
		return Result{}, ErrNoAudioCaptured
	}

	wave, err := audio.DecodeWAV(wavData)
	if err != nil {
		return Result{}, fmt.Errorf("decode recording: %w", err)
	}
	if peak(wave.Samples) < silenceThreshold {
		return Result{}, ErrSilentAudio
	}

	recognized, err := p.transcriber.Transcribe(ctx, wave.Samples)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe recording: %w", err)
	}
	raw := strings.TrimSpace(recognized.Text)
	if len(raw) < 2 {
		return Result{}, ErrUnintelligibleAudio
	}

	result := Result{RawText: raw, CleanedText: raw, Language: recognized.Language}
	if p.cleaner != nil && p.cleaner.Enabled() && len(raw) > minCleanupLength {
		cleaned, err := p.cleaner.Cleanup(ctx, raw, recognized.Language, mode)
		switch {
		case err != nil:
			p.log.Warn("cleanup failed, using raw transcript", slog.String("error", err.Error()))
		case isRefusal(cleaned):
			p.log.Warn("cleanup model refused, using raw transcript")
		default:
			result.CleanedText = cleaned
		}
	}

	p.record(ctx, mode, result)
	return result, nil
}

// record persists and broadcasts a finished transcript. Both stages are
// best effort and never fail the dictation.
func (p *Pipeline) record(ctx context.Context, mode cleanup.Mode, result Result) {
	if p.store != nil {
		_, err := p.store.Append(ctx, history.Entry{
			SessionID: p.sessionID,
			Mode:      string(mode),
			RawText:   result.RawText,
			Cleaned:   result.CleanedText,
			Language:  result.Language,
		})
		if err != nil {
			p.log.Warn("history append failed", slog.String("error", err.Error()))
		}
	}
	if p.publisher != nil && p.publisher.Healthy() {
		err := p.publisher.PublishTranscript(protocol.TranscriptEvent{
			SessionID:   p.sessionID,
			Mode:        string(mode),
			RawText:     result.RawText,
			CleanedText: result.CleanedText,
			Language:    result.Language,
			Timestamp:   time.Now().UTC(),
		})
		if err != nil {
			p.log.Warn("transcript broadcast failed", slog.String("error", err.Error()))
		}
	}
}

func peak(samples []float32) float32 {
	var max float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > max {
			max = s
		}
	}
	return max
}

// isRefusal catches models that answer about the task instead of doing
// it, e.g. "Please provide the transcript you would like cleaned".
func isRefusal(text string) bool {
	return strings.Contains(text, "provide") && strings.Contains(text, "transcript")
}
