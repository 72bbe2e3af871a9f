package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/loqalabs/dictate/internal/audio"
	"github.com/loqalabs/dictate/internal/capture"
	"github.com/loqalabs/dictate/internal/cleanup"
	"github.com/loqalabs/dictate/internal/history"
	"github.com/loqalabs/dictate/internal/pipeline"
	"github.com/loqalabs/dictate/internal/stt"
)

// Uploads beyond this size are rejected with 413 rather than truncated.
const maxUploadBytes = 64 << 20

func (r *Runtime) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("/v1/record/start", r.handleRecordStart)
	mux.HandleFunc("/v1/record/stop", r.handleRecordStop)
	mux.HandleFunc("/v1/record/state", r.handleRecordState)
	mux.HandleFunc("/v1/devices", r.handleDevices)
	mux.HandleFunc("/v1/device", r.handleDevice)
	mux.HandleFunc("/v1/modes", r.handleModes)
	mux.HandleFunc("/v1/transcribe", r.handleTranscribe)
	mux.HandleFunc("/v1/cleanup/status", r.handleCleanupStatus)
	mux.HandleFunc("/v1/cleanup", r.handleCleanupUpdate)
	mux.HandleFunc("/v1/transcripts", r.handleTranscripts)
}

func (r *Runtime) handleRecordStart(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.pipe.Session().Start(); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recording": true})
}

func (r *Runtime) handleRecordStop(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := r.pipe.StopAndTranscribe(req.Context(), r.requestMode(req))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Runtime) handleRecordState(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recording": r.pipe.Session().IsRecording(),
		"device_id": r.pipe.Session().SelectedDevice(),
	})
}

func (r *Runtime) handleDevices(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	devices, err := r.pipe.Session().Devices()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if devices == nil {
		devices = []capture.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (r *Runtime) handleDevice(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"device_id": r.pipe.Session().SelectedDevice()})
	case http.MethodPut:
		var body struct {
			DeviceID string `json:"device_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		r.pipe.Session().SetDevice(body.DeviceID)
		writeJSON(w, http.StatusOK, map[string]string{"device_id": body.DeviceID})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (r *Runtime) handleModes(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, cleanup.Modes())
}

// handleTranscribe runs the pipeline over an uploaded WAV recording,
// bypassing the capture session.
func (r *Runtime) handleTranscribe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "recording exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}
	result, err := r.pipe.TranscribeAndCleanup(req.Context(), data, r.requestMode(req))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Runtime) handleCleanupStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cleaner := r.pipe.Cleaner()
	probeCtx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":            cleaner.Enabled(),
		"model":              cleaner.Model(),
		"available":          cleaner.CheckAvailability(probeCtx),
		"recommended_models": cleanup.RecommendedModels,
	})
}

func (r *Runtime) handleCleanupUpdate(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		Enabled *bool   `json:"enabled"`
		Model   *string `json:"model"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cleaner := r.pipe.Cleaner()
	if body.Enabled != nil {
		cleaner.SetEnabled(*body.Enabled)
	}
	if body.Model != nil && *body.Model != "" {
		cleaner.SetModel(*body.Model)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": cleaner.Enabled(),
		"model":   cleaner.Model(),
	})
}

func (r *Runtime) handleTranscripts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := r.pipe.History().Recent(req.Context(), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// requestMode resolves the cleanup mode for a request, falling back to
// the configured default when the query parameter is absent.
func (r *Runtime) requestMode(req *http.Request) cleanup.Mode {
	if raw := req.URL.Query().Get("mode"); raw != "" {
		return cleanup.ParseMode(raw)
	}
	return cleanup.ParseMode(r.cfg.Cleanup.DefaultMode)
}

// writeFailure maps pipeline and capture errors onto HTTP status codes:
// recorder state conflicts are 409, recordings with no usable speech are
// 422, missing devices or engines are 503, everything else 500.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrAlreadyRecording), errors.Is(err, capture.ErrNotRecording):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrNoAudioCaptured),
		errors.Is(err, pipeline.ErrSilentAudio),
		errors.Is(err, pipeline.ErrUnintelligibleAudio),
		errors.Is(err, audio.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, capture.ErrNoInputDevice),
		errors.Is(err, capture.ErrNoSupportedConfig),
		errors.Is(err, capture.ErrDeviceEnumeration),
		errors.Is(err, stt.ErrModelNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
