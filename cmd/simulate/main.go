package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"quant-sweep-lab/internal/bario"
	"quant-sweep-lab/internal/domain"
	"quant-sweep-lab/internal/engine"
	"quant-sweep-lab/internal/metrics"
	"quant-sweep-lab/internal/strategy"
	"quant-sweep-lab/internal/verification"
)

func main() {
	// Parse flags
	barsPath := flag.String("bars", "", "Bar file to simulate over (required)")
	barsFormat := flag.String("format", "csv", "Bar file format: csv, parquet")

	// Strategy parameters
	fast := flag.Float64("fast", 10, "Fast moving-average window")
	slow := flag.Float64("slow", 30, "Slow moving-average window")
	stopPct := flag.Float64("stop-pct", 0.02, "Protective stop offset below entry")
	targetPct := flag.Float64("target-pct", 0.04, "Profit target offset above entry")
	orderQty := flag.Int("qty", 1, "Order quantity")

	// Costs
	commission := flag.Float64("commission", 0, "Commission per fill")
	slippage := flag.Float64("slippage", 0, "Adverse slippage per fill")

	// Engine
	engineName := flag.String("engine", "book", "Matching engine: book, reference")
	verify := flag.Bool("verify", false, "Run both engines and compare every fill")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *barsPath == "" {
		logger.Fatal("--bars is required")
	}

	bars, err := bario.LoadSeries(*barsFormat, *barsPath)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	logger.Printf("Loaded %d bars from %s", bars.Len(), *barsPath)

	params := []float64{*fast, *slow, *stopPct, *targetPct}

	if *verify {
		runVerify(logger, bars, params)
		return
	}

	gen, err := strategy.FromParams(params)
	if err != nil {
		logger.Fatalf("build strategy: %v", err)
	}

	intents := gen.Intents(bars, 0)
	if *orderQty > 0 {
		for i := range intents {
			intents[i].Qty = int32(*orderQty)
		}
	}
	logger.Printf("Strategy emitted %d order intents", len(intents))

	sim := pickEngine(logger, *engineName)
	fills, err := sim.Simulate(bars, intents)
	if err != nil {
		logger.Fatalf("simulate: %v", err)
	}

	costs := metrics.Costs{Commission: *commission, Slippage: *slippage}
	perf := metrics.Compute(fills, costs)

	if *outputJSON {
		printJSON(fills, perf)
	} else {
		printResult(sim.Name(), fills, perf)
	}
}

func pickEngine(logger *log.Logger, name string) engine.Simulator {
	switch name {
	case "book":
		return engine.Book{}
	case "reference":
		return engine.Reference{}
	default:
		logger.Fatalf("Invalid engine: %s. Must be book or reference", name)
		return nil
	}
}

func runVerify(logger *log.Logger, bars domain.Series, params []float64) {
	v := verification.NewEngineVerifier(nil, nil)
	result, err := v.VerifyParam(bars, [][]float64{params}, 0)
	if err != nil {
		logger.Fatalf("verify: %v", err)
	}

	if result.Match {
		fmt.Printf("engines agree: %d fills identical\n", result.Fills)
		return
	}

	fmt.Printf("engines diverge: %d differences\n", len(result.Divergences))
	for _, d := range result.Divergences {
		fmt.Printf("  %-24s expected=%v actual=%v\n", d.Field, d.Expected, d.Actual)
	}
	os.Exit(1)
}

func printJSON(fills []domain.Fill, perf metrics.Performance) {
	out := struct {
		Fills       []domain.Fill `json:"fills"`
		NetProfit   float64       `json:"net_profit"`
		Trades      int           `json:"trades"`
		MaxDrawdown float64       `json:"max_drawdown"`
		Equity      []float64     `json:"equity"`
	}{fills, perf.NetProfit, perf.Trades, perf.MaxDrawdown, perf.Equity}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func printResult(engineName string, fills []domain.Fill, perf metrics.Performance) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Engine:        %s\n", engineName)
	fmt.Printf("Fills:         %d\n", len(fills))
	fmt.Printf("Trades:        %d\n", perf.Trades)
	fmt.Printf("Net Profit:    %.6f\n", perf.NetProfit)
	fmt.Printf("Max Drawdown:  %.6f\n", perf.MaxDrawdown)
	fmt.Println()

	if len(fills) == 0 {
		return
	}
	fmt.Println("Fills:")
	for _, f := range fills {
		fmt.Printf("  bar=%-6d id=%-12d %s %s %s @ %.6f x%d\n",
			f.BarIndex, f.OrderID, f.Role, f.Kind, f.Side, f.Price, f.Qty)
	}
}
