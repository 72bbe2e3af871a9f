// Package runtime assembles the dictation daemon: capture backend,
// recognizer, cleanup client, history store, optional bus, and the
// local HTTP control surface.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/dictate/internal/bus"
	"github.com/loqalabs/dictate/internal/capture"
	"github.com/loqalabs/dictate/internal/cleanup"
	"github.com/loqalabs/dictate/internal/config"
	"github.com/loqalabs/dictate/internal/history"
	"github.com/loqalabs/dictate/internal/pipeline"
	"github.com/loqalabs/dictate/internal/stt"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	backend     capture.Backend
	store       *history.Store
	busClient   *bus.Client
	pipe        *pipeline.Pipeline
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	backend, err := capture.NewBackend(r.cfg.Audio)
	if err != nil {
		return fmt.Errorf("initialize audio backend: %w", err)
	}
	r.backend = backend

	transcriber, err := stt.New(r.cfg.STT)
	if err != nil {
		return fmt.Errorf("initialize recognizer: %w", err)
	}
	if err := transcriber.Load(ctx); err != nil {
		return fmt.Errorf("load speech model: %w", err)
	}

	cleaner := cleanup.NewClient(r.cfg.Cleanup, r.logger)
	if cleaner.Enabled() {
		probeCtx, cancelProbe := context.WithTimeout(ctx, 3*time.Second)
		if !cleaner.CheckAvailability(probeCtx) {
			r.logger.Warn("cleanup service unreachable, raw transcripts will be used",
				slog.String("endpoint", r.cfg.Cleanup.Endpoint))
		}
		cancelProbe()
	}

	store, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	r.store = store

	if r.cfg.Bus.Enabled {
		busClient, err := bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			r.logger.Warn("bus unavailable, transcript broadcast disabled", slog.String("error", err.Error()))
		} else {
			r.busClient = busClient
		}
	}

	session := capture.NewSession(r.cfg.Audio, backend, r.logger)
	sessionID := uuid.NewString()
	r.pipe = pipeline.New(session, transcriber, cleaner, store, r.busClient, sessionID, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricHandler != nil {
		mux.Handle("/metrics", metricHandler)
	}
	r.registerAPI(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("dictation runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if session.IsRecording() {
		if _, err := session.Stop(); err != nil && err != capture.ErrEmptyRecording {
			r.logger.Warn("discarding in-flight recording", slog.String("error", err.Error()))
		}
	}

	r.busClient.Close()
	if err := r.store.EndSession(shutdownCtx, sessionID); err != nil {
		r.logger.Warn("clearing session transcripts failed", slog.String("error", err.Error()))
	}
	if err := r.store.Close(); err != nil {
		r.logger.Error("history close error", slog.String("error", err.Error()))
	}
	if err := r.backend.Close(); err != nil {
		r.logger.Error("audio backend close error", slog.String("error", err.Error()))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
