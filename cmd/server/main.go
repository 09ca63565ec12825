// Package main provides the sweep service: an HTTP server that runs
// parameter funnels over a configured bar series on demand, persists the
// results, and pushes run progress to websocket subscribers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"quant-sweep-lab/internal/bario"
	"quant-sweep-lab/internal/config"
	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/funnel"
	"quant-sweep-lab/internal/gate"
	"quant-sweep-lab/internal/observability"
	"quant-sweep-lab/internal/reporting"
	"quant-sweep-lab/internal/storage"
	chstore "quant-sweep-lab/internal/storage/clickhouse"
	"quant-sweep-lab/internal/storage/memory"
	"quant-sweep-lab/internal/storage/migrations"
	pgstore "quant-sweep-lab/internal/storage/postgres"
)

// Server holds the loaded workload and every component the HTTP surface
// touches.
type Server struct {
	cfg     *config.Config
	bars    domain.Series
	grid    [][]float64
	orch    *funnel.Orchestrator
	hub     *Hub
	logger  *slog.Logger
	baseCtx context.Context // cancelled on shutdown; bounds background sweeps

	runStore    storage.SweepRunStore
	resultStore storage.SweepResultStore
	barStore    storage.BarSeriesStore

	// State
	mu           sync.Mutex
	started      time.Time
	sweepRunning bool
	lastSweep    time.Time
	sweepsRun    int
	sweepsFailed int
}

func main() {
	configPath := flag.String("config", "", "Sweep definition YAML (required)")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides server.listen_addr)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage even when DSNs are configured")

	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "--config is required")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	addr := cfg.Server.ListenAddr
	if *listenAddr != "" {
		addr = *listenAddr
	}
	if addr == "" {
		addr = ":8080"
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bars, err := bario.LoadSeries(cfg.Data.Format, cfg.Data.Path)
	if err != nil {
		logger.Error("load bars", "path", cfg.Data.Path, "error", err)
		os.Exit(1)
	}
	grid := cfg.ExpandGrid()
	logger.Info("workload loaded",
		"bars", bars.Len(), "params", len(grid), "symbol", cfg.Data.Symbol)

	server := &Server{
		cfg:     cfg,
		bars:    bars,
		grid:    grid,
		logger:  logger,
		baseCtx: ctx,
		started: time.Now(),
		orch: funnel.New(funnel.Options{
			Workers:             cfg.Funnel.Workers,
			Costs:               cfg.TradingCosts(),
			OrderQty:            cfg.Funnel.OrderQty,
			MemLimitMB:          cfg.Gate.MemLimitMB,
			AllowAutoDownsample: cfg.Gate.AllowAutoDownsample,
			MinSubsampleRate:    cfg.Gate.MinSubsampleRate,
			RetainFills:         cfg.Funnel.RetainFills,
			RetainEquity:        cfg.Funnel.RetainEquity,
		}),
		hub: newHub(logger),
	}

	cleanup, err := server.createStores(ctx, *useMemory)
	if err != nil {
		logger.Error("create stores", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", server.handleStatus)
	mux.HandleFunc("GET /ws", server.handleWS)
	mux.HandleFunc("POST /sweeps", server.handleStartSweep)
	mux.HandleFunc("GET /sweeps", server.handleListSweeps)
	mux.HandleFunc("GET /sweeps/{runID}", server.handleGetSweep)
	mux.HandleFunc("GET /sweeps/{runID}/report", server.handleGetReport)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
		server.hub.Close()
	}()

	logger.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// newLogger builds a JSON slog logger; when a log file is configured the
// output also goes through a size-rotated file.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		maxSize := cfg.Logging.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, fileLogger)
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

// createStores wires run and result persistence. Memory backends are the
// default; PostgreSQL takes over when a DSN is configured, and a ClickHouse
// DSN additionally enables the bar history endpoint backed by the seeded
// series.
func (s *Server) createStores(ctx context.Context, useMemory bool) (func(), error) {
	s.runStore = memory.NewSweepRunStore()
	s.resultStore = memory.NewSweepResultStore()
	s.barStore = memory.NewBarSeriesStore()
	cleanup := func() {}

	if !useMemory && s.cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, s.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		s.runStore = pgstore.NewSweepRunStore(pool)
		s.resultStore = pgstore.NewSweepResultStore(pool)
		cleanup = pool.Close
		s.logger.Info("postgres storage enabled")
	}

	if !useMemory && s.cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, s.cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		s.barStore = chstore.NewBarSeriesStore(conn)
		pgCleanup := cleanup
		cleanup = func() {
			conn.Close()
			pgCleanup()
		}
		s.logger.Info("clickhouse storage enabled")
	}

	if err := s.seedBars(ctx); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.Info("bar history already stored", "symbol", s.cfg.Data.Symbol)
		} else {
			cleanup()
			return nil, fmt.Errorf("seed bars: %w", err)
		}
	}

	return cleanup, nil
}

// seedBars loads the raw bar file again and stores it under the configured
// symbol so the history endpoint can serve it.
func (s *Server) seedBars(ctx context.Context) error {
	raw, err := bario.NewReader(s.cfg.Data.Format).Load(s.cfg.Data.Path)
	if err != nil {
		return err
	}
	rows := make([]*domain.PriceBar, len(raw))
	for i, b := range raw {
		rows[i] = &domain.PriceBar{
			Symbol:      s.cfg.Data.Symbol,
			TimestampMs: b.Timestamp,
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
		}
	}
	return s.barStore.InsertBulk(ctx, rows)
}

// SweepRequest is the POST /sweeps body. All fields are optional overrides
// of the configured workload.
type SweepRequest struct {
	RunID string `json:"run_id,omitempty"`
	TopK  int    `json:"top_k,omitempty"`
}

// handleStartSweep launches one funnel run in the background. Only one
// sweep runs at a time; a second request gets 409.
func (s *Server) handleStartSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			httpError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Funnel.TopK
	}

	s.mu.Lock()
	if s.sweepRunning {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, "a sweep is already running")
		return
	}
	s.sweepRunning = true
	s.mu.Unlock()

	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("run-%d", time.Now().UnixMilli())
	}

	go s.runSweep(s.baseCtx, runID, topK)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": runID,
		"params": len(s.grid),
		"top_k":  topK,
	})
}

// runSweep executes one funnel run, persists it, and broadcasts progress.
func (s *Server) runSweep(ctx context.Context, runID string, topK int) {
	start := time.Now()

	defer func() {
		s.mu.Lock()
		s.sweepRunning = false
		s.lastSweep = time.Now()
		s.mu.Unlock()
	}()

	fail := func(stage string, err error) {
		s.mu.Lock()
		s.sweepsFailed++
		s.mu.Unlock()
		s.logger.Error("sweep failed", "run_id", runID, "stage", stage, "error", err)
		observability.RecordSweepRun("error", time.Now().Unix())
		s.hub.Broadcast(ProgressEvent{Type: "failed", RunID: runID, Error: err.Error()})
	}

	s.logger.Info("sweep started", "run_id", runID, "params", len(s.grid), "top_k", topK)
	s.hub.Broadcast(ProgressEvent{Type: "started", RunID: runID, Params: len(s.grid)})

	out, err := s.orch.Run(ctx, s.bars, s.grid, topK)
	if err != nil {
		fail("funnel", err)
		return
	}
	observability.RecordStageDuration("total", time.Since(start).Seconds())

	if out.Gate != nil {
		observability.RecordGateDecision(string(out.Gate.Action), out.Gate.MemEstBytes, out.Gate.FinalSubsample)
		s.hub.Broadcast(ProgressEvent{
			Type:       "gate",
			RunID:      runID,
			ConfigHash: out.ConfigHash,
			GateAction: string(out.Gate.Action),
		})
		if out.Gate.Action == gate.ActionReject {
			s.logger.Warn("sweep rejected by admission gate",
				"run_id", runID, "mem_est_bytes", out.Gate.MemEstBytes)
		}
	}

	run := &domain.SweepRun{
		RunID:       runID,
		ConfigHash:  out.ConfigHash,
		CreatedAt:   start.UnixMilli(),
		Bars:        out.Config.Bars,
		ParamsTotal: out.Config.ParamsTotal,
		TopK:        out.Config.TopK,
	}
	if out.Gate != nil {
		run.GateAction = string(out.Gate.Action)
	}

	if err := s.runStore.Insert(ctx, run); err != nil {
		fail("store run", err)
		return
	}
	if err := s.resultStore.InsertBulk(ctx, runID, out.Stage2Results); err != nil {
		fail("store results", err)
		return
	}

	s.mu.Lock()
	s.sweepsRun++
	s.mu.Unlock()

	observability.RecordSweepRun("ok", time.Now().Unix())
	s.logger.Info("sweep completed",
		"run_id", runID, "confirmed", len(out.Stage2Results), "elapsed", time.Since(start))
	s.hub.Broadcast(ProgressEvent{
		Type:       "completed",
		RunID:      runID,
		ConfigHash: out.ConfigHash,
		Confirmed:  len(out.Stage2Results),
		ElapsedSec: time.Since(start).Seconds(),
	})
}

// handleListSweeps returns the most recent runs, newest first.
func (s *Server) handleListSweeps(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.runStore.GetRecent(r.Context(), limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetSweep returns one run with its best results.
func (s *Server) handleGetSweep(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	run, err := s.runStore.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "unknown run "+runID)
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	top, err := s.resultStore.GetTopByProfit(r.Context(), runID, run.TopK)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"results": top,
	})
}

// handleGetReport renders the stored run as a Markdown report.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	report, err := reporting.NewGenerator(s.runStore, s.resultStore).
		Generate(r.Context(), runID, s.cfg.Funnel.TopK)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "unknown run "+runID)
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

// handleWS upgrades the connection and keeps it registered until the peer
// goes away. The read loop only drains control frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.Add(conn)

	go func() {
		defer s.hub.Remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	Symbol       string    `json:"symbol"`
	Bars         int       `json:"bars"`
	Params       int       `json:"params"`
	SweepRunning bool      `json:"sweep_running"`
	SweepsRun    int       `json:"sweeps_run"`
	SweepsFailed int       `json:"sweeps_failed"`
	LastSweep    time.Time `json:"last_sweep,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		Symbol:       s.cfg.Data.Symbol,
		Bars:         s.bars.Len(),
		Params:       len(s.grid),
		SweepRunning: s.sweepRunning,
		SweepsRun:    s.sweepsRun,
		SweepsFailed: s.sweepsFailed,
		LastSweep:    s.lastSweep,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
