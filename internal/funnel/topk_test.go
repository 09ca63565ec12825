package funnel

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"quant-sweep-lab/internal/domain"
)

func TestSelectTopK_OrdersByValueThenID(t *testing.T) {
	results := []domain.Stage0Result{
		{ParamID: 5, ProxyValue: 10},
		{ParamID: 2, ProxyValue: 10},
		{ParamID: 1, ProxyValue: 10},
		{ParamID: 3, ProxyValue: 15},
	}

	got := SelectTopK(results, 3)
	want := []int{3, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectTopK_TieBreakVector(t *testing.T) {
	// Ids 5, 2, 8, 1 all at value 10, plus 3@15 and 4@12, k=3:
	// the two winners are followed by the lowest tied id.
	results := []domain.Stage0Result{
		{ParamID: 5, ProxyValue: 10},
		{ParamID: 2, ProxyValue: 10},
		{ParamID: 8, ProxyValue: 10},
		{ParamID: 1, ProxyValue: 10},
		{ParamID: 3, ProxyValue: 15},
		{ParamID: 4, ProxyValue: 12},
	}

	got := SelectTopK(results, 3)
	want := []int{3, 4, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectTopK_ShuffleInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	results := make([]domain.Stage0Result, 100)
	for i := range results {
		results[i] = domain.Stage0Result{
			ParamID:    i,
			ProxyValue: float64(rng.Intn(10)), // deliberate heavy ties
		}
	}

	base := SelectTopK(results, 20)
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]domain.Stage0Result, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if got := SelectTopK(shuffled, 20); !reflect.DeepEqual(base, got) {
			t.Fatalf("trial %d: selection depends on input order\nbase %v\ngot  %v", trial, base, got)
		}
	}
}

func TestSelectTopK_NegInfSortsLast(t *testing.T) {
	results := []domain.Stage0Result{
		{ParamID: 0, ProxyValue: math.Inf(-1)},
		{ParamID: 1, ProxyValue: -3},
		{ParamID: 2, ProxyValue: math.Inf(-1)},
		{ParamID: 3, ProxyValue: 1},
	}

	got := SelectTopK(results, 4)
	// -Inf entries are kept, after every finite value, tied among
	// themselves by id.
	want := []int{3, 1, 0, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectTopK_KBounds(t *testing.T) {
	results := []domain.Stage0Result{
		{ParamID: 0, ProxyValue: 1},
		{ParamID: 1, ProxyValue: 2},
	}

	if got := SelectTopK(results, 0); len(got) != 0 {
		t.Errorf("k=0: got %v", got)
	}
	if got := SelectTopK(results, -1); len(got) != 0 {
		t.Errorf("k<0: got %v", got)
	}
	if got := SelectTopK(results, 10); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("k>len: got %v", got)
	}
	if got := SelectTopK(nil, 3); len(got) != 0 {
		t.Errorf("empty input: got %v", got)
	}
}

func TestStage0Result_CarriesNoPnLFields(t *testing.T) {
	// The proxy stage must stay structurally incapable of leaking
	// simulation-derived values into the ranking.
	forbidden := []string{
		"profit", "loss", "pnl", "drawdown", "trade",
		"sharpe", "equity", "win", "return", "score",
	}

	typ := reflect.TypeOf(domain.Stage0Result{})
	for i := 0; i < typ.NumField(); i++ {
		name := strings.ToLower(typ.Field(i).Name)
		for _, word := range forbidden {
			if strings.Contains(name, word) {
				t.Errorf("Stage0Result field %q matches forbidden vocabulary %q", typ.Field(i).Name, word)
			}
		}
	}
}
