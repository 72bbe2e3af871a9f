// Package audio implements the waveform primitives of the dictation
// pipeline: linear-interpolation sample-rate conversion and the canonical
// WAV encode/decode (mono, 16 kHz, 16-bit PCM on encode; permissive int or
// float containers on decode).
package audio
