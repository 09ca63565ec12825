package funnel

import (
	"errors"
	"testing"

	"quant-sweep-lab/internal/domain"
)

// stubSim returns canned fills and records the intents it was handed.
type stubSim struct {
	fills   []domain.Fill
	err     error
	intents []domain.OrderIntent
}

func (s *stubSim) Simulate(bars domain.Series, intents []domain.OrderIntent) ([]domain.Fill, error) {
	s.intents = append([]domain.OrderIntent(nil), intents...)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Fill, len(s.fills))
	copy(out, s.fills)
	return out, nil
}

func (s *stubSim) Name() string { return "stub" }

func flatSeries(n int) domain.Series {
	s := domain.Series{
		Open:  make([]float64, n),
		High:  make([]float64, n),
		Low:   make([]float64, n),
		Close: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Open[i], s.Close[i] = 100, 100
		s.High[i], s.Low[i] = 101, 99
	}
	return s
}

// crossSeries dips then rises so a fast/slow moving-average cross-up occurs
// and the strategies under test emit at least one bracket.
func crossSeries(n int) domain.Series {
	s := flatSeries(n)
	for i := 0; i < n; i++ {
		var c float64
		if i < n/2 {
			c = 100 - float64(i)
		} else {
			c = 100 - float64(n/2) + 2*float64(i-n/2)
		}
		s.Open[i], s.Close[i] = c, c
		s.High[i], s.Low[i] = c+1, c-1
	}
	return s
}

func TestRunStage2_PlaceholderForBadIDs(t *testing.T) {
	bars := crossSeries(40)
	params := [][]float64{
		{3, 8},
		{0, 8}, // factory rejects fast < 1
	}

	results, err := RunStage2(bars, params, []int{-1, 5, 1}, Stage2Options{Sim: &stubSim{}})
	if err != nil {
		t.Fatalf("RunStage2: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, wantID := range []int{-1, 5, 1} {
		r := results[i]
		if r.ParamID != wantID {
			t.Errorf("result %d ParamID = %d, want %d", i, r.ParamID, wantID)
		}
		if r.NetProfit != 0 || r.Trades != 0 || r.MaxDrawdown != 0 || r.Fills != nil || r.Equity != nil {
			t.Errorf("result %d is not a zero placeholder: %+v", i, r)
		}
	}
}

func TestRunStage2_InvalidBarsFailWholeCall(t *testing.T) {
	bad := domain.Series{Open: []float64{1}, High: []float64{2}, Low: []float64{0.5}}
	_, err := RunStage2(bad, [][]float64{{3, 8}}, []int{0}, Stage2Options{Sim: &stubSim{}})
	if !errors.Is(err, domain.ErrInvalidSeries) {
		t.Fatalf("err = %v, want ErrInvalidSeries", err)
	}
}

func TestRunStage2_QtyOverride(t *testing.T) {
	bars := crossSeries(40)
	sim := &stubSim{}
	_, err := RunStage2(bars, [][]float64{{3, 8}}, []int{0}, Stage2Options{Sim: sim, OrderQty: 7})
	if err != nil {
		t.Fatalf("RunStage2: %v", err)
	}
	if len(sim.intents) == 0 {
		t.Fatal("strategy emitted no intents; series has no cross-up")
	}
	for _, in := range sim.intents {
		if in.Qty != 7 {
			t.Errorf("intent %d has Qty %d, want 7", in.OrderID, in.Qty)
		}
	}
}

func TestRunStage2_RetainFlags(t *testing.T) {
	bars := crossSeries(40)
	fills := []domain.Fill{
		{OrderID: 1, BarIndex: 5, Role: domain.RoleEntry, Side: domain.SideBuy, Price: 100, Qty: 1},
		{OrderID: 2, BarIndex: 8, Role: domain.RoleExit, Side: domain.SideSell, Price: 104, Qty: 1},
	}

	bare, err := RunStage2(bars, [][]float64{{3, 8}}, []int{0}, Stage2Options{Sim: &stubSim{fills: fills}})
	if err != nil {
		t.Fatalf("RunStage2: %v", err)
	}
	if bare[0].Fills != nil || bare[0].Equity != nil {
		t.Error("artifacts retained without the retain flags")
	}
	if bare[0].Trades != 1 || bare[0].NetProfit != 4 {
		t.Errorf("summary = %d trades / %v profit, want 1 / 4", bare[0].Trades, bare[0].NetProfit)
	}

	full, err := RunStage2(bars, [][]float64{{3, 8}}, []int{0}, Stage2Options{
		Sim:          &stubSim{fills: fills},
		RetainFills:  true,
		RetainEquity: true,
	})
	if err != nil {
		t.Fatalf("RunStage2: %v", err)
	}
	if len(full[0].Fills) != 2 {
		t.Errorf("got %d retained fills, want 2", len(full[0].Fills))
	}
	if len(full[0].Equity) == 0 {
		t.Error("equity curve not retained")
	}
}

func TestRunStage2_EngineErrorAborts(t *testing.T) {
	bars := crossSeries(40)
	boom := errors.New("boom")
	_, err := RunStage2(bars, [][]float64{{3, 8}}, []int{0}, Stage2Options{Sim: &stubSim{err: boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}
