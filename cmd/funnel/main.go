package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quant-sweep-lab/internal/bario"
	"quant-sweep-lab/internal/config"
	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/funnel"
	"quant-sweep-lab/internal/gate"
	"quant-sweep-lab/internal/observability"
	"quant-sweep-lab/internal/reporting"
	"quant-sweep-lab/internal/storage"
	"quant-sweep-lab/internal/storage/memory"
	"quant-sweep-lab/internal/storage/migrations"
	pgstore "quant-sweep-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Sweep definition YAML (required)")
	runID := flag.String("run-id", "", "Run identifier; defaults to <config-hash>-<unix>")
	persist := flag.Bool("persist", false, "Persist the run and results to PostgreSQL")
	reportPath := flag.String("report", "", "Write the Markdown report to this file instead of stdout")
	csvPath := flag.String("csv", "", "Write the full results table as CSV to this file")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[funnel] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	bars, err := bario.LoadSeries(cfg.Data.Format, cfg.Data.Path)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}

	grid := cfg.ExpandGrid()
	logger.Printf("Sweep: %d bars x %d parameter sets, top-k %d",
		bars.Len(), len(grid), cfg.Funnel.TopK)

	orch := funnel.New(funnel.Options{
		Workers:             cfg.Funnel.Workers,
		Costs:               cfg.TradingCosts(),
		OrderQty:            cfg.Funnel.OrderQty,
		MemLimitMB:          cfg.Gate.MemLimitMB,
		AllowAutoDownsample: cfg.Gate.AllowAutoDownsample,
		MinSubsampleRate:    cfg.Gate.MinSubsampleRate,
		RetainFills:         cfg.Funnel.RetainFills,
		RetainEquity:        cfg.Funnel.RetainEquity,
	})

	started := time.Now()
	out, err := orch.Run(ctx, bars, grid, cfg.Funnel.TopK)
	if err != nil {
		observability.RecordSweepRun("error", time.Now().Unix())
		logger.Fatalf("run funnel: %v", err)
	}
	observability.RecordStageDuration("total", time.Since(started).Seconds())

	if out.Gate != nil {
		observability.RecordGateDecision(string(out.Gate.Action), out.Gate.MemEstBytes, out.Gate.FinalSubsample)
		logger.Printf("Gate: %s (mem est %.1f MB, subsample %.4f -> %.4f)",
			out.Gate.Action, float64(out.Gate.MemEstBytes)/(1<<20),
			out.Gate.OriginalSubsample, out.Gate.FinalSubsample)
	}

	if out.Gate != nil && out.Gate.Action == gate.ActionReject {
		observability.RecordSweepRun("rejected", time.Now().Unix())
		logger.Printf("Workload rejected by the admission gate; nothing executed")
		os.Exit(2)
	}
	observability.RecordSweepRun("ok", time.Now().Unix())

	id := *runID
	if id == "" {
		id = fmt.Sprintf("%s-%d", out.ConfigHash, started.Unix())
	}

	run := &domain.SweepRun{
		RunID:       id,
		ConfigHash:  out.ConfigHash,
		CreatedAt:   started.UnixMilli(),
		Bars:        out.Config.Bars,
		ParamsTotal: out.Config.ParamsTotal,
		TopK:        out.Config.TopK,
		GateAction:  gateAction(out.Gate),
	}

	// Stores: memory by default, PostgreSQL when persisting. The report is
	// generated through the store interfaces either way.
	var (
		runStore    storage.SweepRunStore    = memory.NewSweepRunStore()
		resultStore storage.SweepResultStore = memory.NewSweepResultStore()
	)
	if *persist {
		if cfg.Storage.PostgresDSN == "" {
			logger.Fatal("--persist requires storage.postgres_dsn (or QSL_POSTGRES_DSN)")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
		runStore = pgstore.NewSweepRunStore(pool)
		resultStore = pgstore.NewSweepResultStore(pool)
	}

	if err := runStore.Insert(ctx, run); err != nil {
		logger.Fatalf("store run: %v", err)
	}
	if err := resultStore.InsertBulk(ctx, id, out.Stage2Results); err != nil {
		logger.Fatalf("store results: %v", err)
	}
	logger.Printf("Run %s: %d confirmed results", id, len(out.Stage2Results))

	report, err := reporting.NewGenerator(runStore, resultStore).
		Generate(ctx, id, cfg.Funnel.TopK)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}
	report.AttachGateDecision(out.Gate)

	md := reporting.RenderMarkdown(report)
	if *reportPath != "" {
		if err := os.WriteFile(*reportPath, []byte(md), 0o644); err != nil {
			logger.Fatalf("write report: %v", err)
		}
		logger.Printf("Report written to %s", *reportPath)
	} else {
		fmt.Print(md)
	}

	if *csvPath != "" {
		if err := os.WriteFile(*csvPath, []byte(reporting.RenderCSV(report.TopResults)), 0o644); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
		logger.Printf("CSV written to %s", *csvPath)
	}
}

func gateAction(d *gate.Decision) string {
	if d == nil {
		return ""
	}
	return string(d.Action)
}
