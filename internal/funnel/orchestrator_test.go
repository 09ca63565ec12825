package funnel

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"quant-sweep-lab/internal/gate"
	"quant-sweep-lab/internal/idgen"
)

func testGrid(n int) [][]float64 {
	grid := make([][]float64, n)
	for i := range grid {
		grid[i] = []float64{float64(1 + i%7), float64(8 + i%12)}
	}
	return grid
}

func TestOrchestrator_DeterministicAcrossWorkerCounts(t *testing.T) {
	bars := crossSeries(80)
	params := testGrid(60)

	var base *RunOutput
	for _, workers := range []int{1, 3, 8, 64} {
		o := New(Options{Workers: workers})
		out, err := o.Run(context.Background(), bars, params, 10)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if base == nil {
			base = out
			continue
		}
		if !reflect.DeepEqual(base, out) {
			t.Fatalf("workers=%d output differs from workers=1", workers)
		}
	}

	// Repeat calls on the same orchestrator reproduce the same output.
	o := New(Options{Workers: 4})
	first, err := o.Run(context.Background(), bars, params, 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Run(context.Background(), bars, params, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated run produced different output")
	}
}

func TestOrchestrator_MatchesSequentialPipeline(t *testing.T) {
	bars := crossSeries(80)
	params := testGrid(40)

	o := New(Options{Workers: 6})
	out, err := o.Run(context.Background(), bars, params, 8)
	if err != nil {
		t.Fatal(err)
	}
	if out.Gate != nil {
		t.Fatal("gate decision present with no memory limit")
	}

	stage0 := RunStage0(bars.Close, params)
	topk := SelectTopK(stage0, 8)
	stage2, err := RunStage2(bars, params, topk, Stage2Options{})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(out.Stage0Results, stage0) {
		t.Error("stage 0 differs from sequential pipeline")
	}
	if !reflect.DeepEqual(out.TopKParamIDs, topk) {
		t.Error("top-k differs from sequential pipeline")
	}
	if !reflect.DeepEqual(out.Stage2Results, stage2) {
		t.Error("stage 2 differs from sequential pipeline")
	}
	if want := idgen.SweepHash(out.Config); out.ConfigHash != want {
		t.Errorf("config hash %q does not match config %q", out.ConfigHash, want)
	}
}

func TestOrchestrator_GateReject(t *testing.T) {
	bars := crossSeries(200)
	params := testGrid(100_000)

	o := New(Options{Workers: 4, MemLimitMB: 1})
	out, err := o.Run(context.Background(), bars, params, 5)
	if err != nil {
		t.Fatal(err)
	}
	if out.Gate == nil || out.Gate.Action != gate.ActionReject {
		t.Fatalf("gate = %+v, want reject", out.Gate)
	}
	if len(out.Stage0Results) != 0 || len(out.TopKParamIDs) != 0 || len(out.Stage2Results) != 0 {
		t.Error("rejected run produced stage output")
	}
	if out.Stage0Results == nil || out.TopKParamIDs == nil || out.Stage2Results == nil {
		t.Error("rejected run returned nil slices, want empty")
	}
	if out.ConfigHash == "" {
		t.Error("rejected run carries no config hash")
	}
	if out.Config.ParamSubsampleRate != 1.0 {
		t.Errorf("rejection must not rewrite the config, rate = %g", out.Config.ParamSubsampleRate)
	}
}

func TestOrchestrator_GateAutoDownsample(t *testing.T) {
	bars := crossSeries(200)
	params := testGrid(100_000)

	// 8 MB sits between the floor estimate and the full-grid estimate,
	// so the gate shrinks the rate instead of rejecting.
	o := New(Options{Workers: 4, MemLimitMB: 8, AllowAutoDownsample: true})
	out, err := o.Run(context.Background(), bars, params, 5)
	if err != nil {
		t.Fatal(err)
	}
	if out.Gate == nil || out.Gate.Action != gate.ActionAutoDownsample {
		t.Fatalf("gate = %+v, want auto_downsample", out.Gate)
	}
	if out.Config.ParamSubsampleRate >= 1.0 {
		t.Errorf("rate = %g, want shrunk below 1", out.Config.ParamSubsampleRate)
	}
	if got, want := len(out.Stage0Results), out.Config.EvaluatedParams(); got != want {
		t.Errorf("stage 0 evaluated %d params, want %d", got, want)
	}
	if want := idgen.SweepHash(out.Config); out.ConfigHash != want {
		t.Error("config hash does not cover the shrunk config")
	}
	if len(out.TopKParamIDs) != 5 {
		t.Errorf("got %d survivors, want 5", len(out.TopKParamIDs))
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	bars := crossSeries(80)
	params := testGrid(500)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(Options{Workers: 4})
	_, err := o.Run(ctx, bars, params, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSubsampleIndices(t *testing.T) {
	got := subsampleIndices(10, 4)
	want := []int{0, 2, 5, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	full := subsampleIndices(5, 5)
	if !reflect.DeepEqual(full, []int{0, 1, 2, 3, 4}) {
		t.Errorf("full coverage: got %v", full)
	}

	over := subsampleIndices(5, 9)
	if !reflect.DeepEqual(over, []int{0, 1, 2, 3, 4}) {
		t.Errorf("evaluated > total: got %v", over)
	}
}
