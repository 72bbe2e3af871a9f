package protocol

import "time"

// TranscriptEvent is broadcast on the bus whenever a dictation finishes.
type TranscriptEvent struct {
	SessionID   string    `json:"session_id"`
	Mode        string    `json:"mode"`
	RawText     string    `json:"raw_text"`
	CleanedText string    `json:"cleaned_text"`
	Language    string    `json:"language"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptFinal = "dictation.transcript.final"
)
